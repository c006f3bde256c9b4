package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const sample = `Age,Sex,Oldpeak,HeartDisease
40,M,0,0
49, F ,1.5,1
37,M,-0.1,0
`

func TestParseCSV(t *testing.T) {
	f, err := ParseCSV([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 3, f.Len())
	assert.True(t, f.Has("Sex"))
	assert.False(t, f.Has("ST_Slope"))
	assert.Equal(t, []string{"ST_Slope", "Target"}, f.Missing([]string{"Age", "ST_Slope", "Target"}))

	cats, err := f.Strings([]string{"Sex"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"M"}, {"F"}, {"M"}}, cats)

	nums, err := f.Floats([]string{"Oldpeak", "Age"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 49}, nums.RawRowView(1))
}

func TestParseCSVRejectsEmpty(t *testing.T) {
	for _, doc := range []string{"", "Age,Sex\n"} {
		_, err := ParseCSV([]byte(doc))
		assert.True(t, errors.Is(err, errors.ErrEmptyData), "doc %q", doc)
	}

	_, err := ParseCSV([]byte("a,b\n1\n"))
	assert.Error(t, err, "ragged rows")

	_, err = ParseCSV([]byte("a,a\n1,2\n"))
	assert.Error(t, err, "duplicate header")
}

func TestFloatsReportsBadCell(t *testing.T) {
	f, err := ParseCSV([]byte("Age,Sex\n40,M\nforty,F\n"))
	require.NoError(t, err)

	_, err = f.Floats([]string{"Age"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `row 2 column "Age"`)

	_, err = f.Floats([]string{"Nope"})
	var fm *errors.FeatureMismatchError
	assert.True(t, errors.As(err, &fm))
}

func TestMatrixRoundTripIsExact(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{
		1.0 / 3.0, -0.1, 1e-300,
		math.Pi, 0, 12345678.9,
	})
	b, err := WriteMatrix(m, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "a,b,c\n"))

	got, header, err := ReadMatrix(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, header)
	assert.True(t, mat.Equal(m, got))

	_, err = WriteMatrix(m, []string{"a"})
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}
