package heartdata

import (
	"testing"

	"github.com/YuminosukeSato/heartml/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVDeterministic(t *testing.T) {
	a, err := CSV(200, 42)
	require.NoError(t, err)
	b, err := CSV(200, 42)
	require.NoError(t, err)
	c, err := CSV(200, 43)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRowsCoverEveryCategoryAndBothLabels(t *testing.T) {
	f, err := Frame(20, 1)
	require.NoError(t, err)
	assert.Equal(t, Columns, f.Header)

	check := func(col string, want []string) {
		cells, err := f.Strings([]string{col})
		require.NoError(t, err)
		seen := map[string]bool{}
		for _, c := range cells {
			seen[c[0]] = true
		}
		for _, w := range want {
			assert.True(t, seen[w], "%s=%s missing", col, w)
		}
	}
	check("Sex", Sexes)
	check("ChestPainType", ChestPainTypes)
	check("RestingECG", RestingECGs)
	check("ExerciseAngina", Anginas)
	check("ST_Slope", STSlopes)
	check("FastingBS", []string{"0", "1"})

	big, err := Frame(300, 42)
	require.NoError(t, err)
	y, err := big.Floats([]string{Target})
	require.NoError(t, err)
	pos := 0
	for i := 0; i < big.Len(); i++ {
		if y.At(i, 0) == 1 {
			pos++
		}
	}
	assert.Greater(t, pos, 30)
	assert.Less(t, pos, 270)
}

func TestCSVParsesBack(t *testing.T) {
	b, err := CSV(50, 7)
	require.NoError(t, err)
	f, err := dataset.ParseCSV(b)
	require.NoError(t, err)
	assert.Equal(t, 50, f.Len())

	_, err = f.Floats([]string{"Age", "RestingBP", "Cholesterol", "FastingBS", "MaxHR", "Oldpeak"})
	assert.NoError(t, err)

	_, err = CSV(0, 1)
	assert.Error(t, err)
}
