package errors

import (
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover_WithPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "GradientBoostingClassifier.Fit")
		panic("index out of range")
	}

	err := fit()
	require.Error(t, err)

	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr), "expected *PanicError, got %T", err)
	assert.Equal(t, "GradientBoostingClassifier.Fit", panicErr.Operation)
	assert.Equal(t, "index out of range", panicErr.PanicValue)
	assert.NotEmpty(t, panicErr.StackTrace)
	assert.Equal(t, "panic in GradientBoostingClassifier.Fit: index out of range", panicErr.Error())
}

func TestRecover_WithoutPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "StandardScaler.Fit")
		return nil
	}
	assert.NoError(t, fit())
}

// An error already assigned before the panic must stay reachable.
func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("read failed")

	stage := func() (err error) {
		defer Recover(&err, "pipeline.ingest")
		err = originalErr
		panic("after error")
	}

	err := stage()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in pipeline.ingest")
	assert.ErrorIs(t, err, originalErr)
}

func TestSafeExecute(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		assert.NoError(t, SafeExecute("op", func() error { return nil }))
	})

	t.Run("function error passes through", func(t *testing.T) {
		want := fmt.Errorf("boom")
		assert.Same(t, want, SafeExecute("op", func() error { return want }))
	})

	t.Run("panic becomes PanicError", func(t *testing.T) {
		err := SafeExecute("op", func() error { panic(42) })
		var panicErr *PanicError
		require.True(t, errors.As(err, &panicErr))
		assert.Equal(t, 42, panicErr.PanicValue)
	})
}

func TestPanicError_String(t *testing.T) {
	panicErr := NewPanicError("TestOp", "test value")
	assert.Contains(t, panicErr.String(), "Stack trace:")
	assert.Contains(t, panicErr.String(), "panic in TestOp: test value")
	assert.Nil(t, panicErr.Unwrap())
}

func TestPanicError_UnwrapsRuntimeError(t *testing.T) {
	err := SafeExecute("predict", func() error {
		var rows []float64
		_ = rows[3]
		return nil
	})
	var rtErr runtime.Error
	require.True(t, errors.As(err, &rtErr))
	assert.Contains(t, err.Error(), "panic in predict")
}
