package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelizeCoversEveryIndexOnce(t *testing.T) {
	const n = 1037
	var hits [n]int32
	err := Parallelize(n, func(start, end int) error {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
		return nil
	})
	require.NoError(t, err)
	for i, h := range hits {
		assert.Equal(t, int32(1), h, "index %d", i)
	}
}

func TestParallelizeReturnsError(t *testing.T) {
	boom := errors.New("boom")
	err := Parallelize(100, func(start, end int) error {
		if start == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	calls := 0
	err := ParallelizeWithThreshold(10, 100, func(start, end int) error {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestParallelizeEmpty(t *testing.T) {
	called := false
	fn := func(start, end int) error { called = true; return nil }
	require.NoError(t, Parallelize(0, fn))
	require.NoError(t, ParallelizeWithThreshold(0, 10, fn))
	assert.False(t, called)
}
