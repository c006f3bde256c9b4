package preprocessing

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/YuminosukeSato/heartml/core/model"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestStandardScalerFitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	s := NewStandardScalerDefault()
	s.SetFeatureNames([]string{"Age", "Constant"})

	out, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Scale[0], 1e-12)
	// zero variance column keeps scale 1
	assert.Equal(t, 1.0, s.Scale[1])

	col := mat.Col(nil, 0, out)
	sum := 0.0
	for _, v := range col {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-12)
	assert.Equal(t, 0.0, out.At(2, 1))
	assert.Equal(t, []string{"Age", "Constant"}, s.GetFeatureNamesOut())

	back, err := s.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestStandardScalerErrors(t *testing.T) {
	s := NewStandardScalerDefault()
	_, err := s.Transform(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = s.Transform(mat.NewDense(1, 3, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	named := NewStandardScalerDefault()
	named.SetFeatureNames([]string{"only"})
	assert.Error(t, named.Fit(mat.NewDense(2, 2, nil)))
}

func TestStandardScalerSingleRowMatchesBatch(t *testing.T) {
	X := mat.NewDense(5, 3, []float64{
		63, 145, 2.3,
		37, 130, 3.5,
		41, 130, 1.4,
		56, 120, 0.8,
		57, 140, 0.6,
	})
	s := NewStandardScalerDefault()
	batch, err := s.FitTransform(X)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		row, err := s.Transform(X.Slice(i, i+1, 0, 3))
		require.NoError(t, err)
		for j := 0; j < 3; j++ {
			assert.Equal(t, batch.At(i, j), row.At(0, j))
		}
	}
}

func TestStandardScalerGobRoundTrip(t *testing.T) {
	s := NewStandardScalerDefault()
	s.SetFeatureNames([]string{"a", "b"})
	require.NoError(t, s.Fit(mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 7})))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(s, &buf))
	var loaded StandardScaler
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))

	assert.True(t, loaded.IsFitted())
	assert.Equal(t, s.Mean, loaded.Mean)
	assert.Equal(t, s.Scale, loaded.Scale)
	assert.Equal(t, []string{"a", "b"}, loaded.FeatureNamesIn())
}

func heartCategoricals() [][]string {
	return [][]string{
		{"M", "ASY", "Flat"},
		{"F", "ATA", "Up"},
		{"M", "NAP", "Up"},
		{"F", "ASY", "Down"},
		{"M", "TA", "Flat"},
	}
}

func TestOneHotEncoderDropFirst(t *testing.T) {
	enc := NewOneHotEncoder(true)
	enc.SetFeatureNames([]string{"Sex", "ChestPainType", "ST_Slope"})

	out, err := enc.FitTransform(heartCategoricals())
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"F", "M"},
		{"ASY", "ATA", "NAP", "TA"},
		{"Down", "Flat", "Up"},
	}, enc.Categories)
	// (2-1) + (4-1) + (3-1)
	assert.Equal(t, 6, enc.NOutputs())
	assert.Equal(t, []string{
		"Sex_M",
		"ChestPainType_ATA", "ChestPainType_NAP", "ChestPainType_TA",
		"ST_Slope_Flat", "ST_Slope_Up",
	}, enc.GetFeatureNamesOut())

	r, c := out.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 6, c)
	// M, ASY(dropped), Flat
	assert.Equal(t, []float64{1, 0, 0, 0, 1, 0}, out.RawRowView(0))
	// F(dropped), ASY(dropped), Down(dropped)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0}, out.RawRowView(3))
}

func TestOneHotEncoderKeepAll(t *testing.T) {
	enc := NewOneHotEncoder(false)
	out, err := enc.FitTransform([][]string{{"b"}, {"a"}, {"b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"x0_a", "x0_b"}, enc.GetFeatureNamesOut())
	assert.Equal(t, []float64{0, 1}, out.RawRowView(0))
	assert.Equal(t, []float64{1, 0}, out.RawRowView(1))
}

func TestOneHotEncoderUnknownCategory(t *testing.T) {
	enc := NewOneHotEncoder(true)
	enc.SetFeatureNames([]string{"Sex", "ChestPainType", "ST_Slope"})
	require.NoError(t, enc.Fit(heartCategoricals()))

	_, err := enc.Transform([][]string{{"X", "ASY", "Up"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownCategory))
	assert.Contains(t, err.Error(), `"Sex"`)

	_, err = enc.Transform([][]string{{"M", "ASY"}})
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}

func TestOneHotEncoderNotFittedAndEmpty(t *testing.T) {
	enc := NewOneHotEncoder(true)
	_, err := enc.Transform([][]string{{"a"}})
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	assert.True(t, errors.Is(enc.Fit(nil), errors.ErrEmptyData))
}

func TestOneHotEncoderGobRoundTrip(t *testing.T) {
	enc := NewOneHotEncoder(true)
	enc.SetFeatureNames([]string{"Sex", "ChestPainType", "ST_Slope"})
	want, err := enc.FitTransform(heartCategoricals())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(enc, &buf))
	var loaded OneHotEncoder
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))

	got, err := loaded.Transform(heartCategoricals())
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
	assert.Equal(t, enc.GetFeatureNamesOut(), loaded.GetFeatureNamesOut())
}

func TestSplitIndicesDeterministicAndDisjoint(t *testing.T) {
	train1, test1, err := SplitIndices(303, 0.2, 42)
	require.NoError(t, err)
	train2, test2, err := SplitIndices(303, 0.2, 42)
	require.NoError(t, err)

	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)
	// ceil(0.2 * 303) = 61
	assert.Len(t, test1, 61)
	assert.Len(t, train1, 242)

	all := append(append([]int(nil), train1...), test1...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}

	_, otherTest, err := SplitIndices(303, 0.2, 7)
	require.NoError(t, err)
	assert.NotEqual(t, test1, otherTest)
}

func TestSplitIndicesRejectsBadSize(t *testing.T) {
	for _, size := range []float64{0, 1, -0.1, 1.5, math.NaN()} {
		_, _, err := SplitIndices(10, size, 1)
		assert.Error(t, err, "test_size=%v", size)
	}
	_, _, err := SplitIndices(1, 0.5, 1)
	assert.Error(t, err)
}

func TestTrainTestSplitRows(t *testing.T) {
	n := 20
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i*10))
		y.Set(i, 0, float64(i%2))
	}

	s, err := TrainTestSplit(X, y, 0.25, 42)
	require.NoError(t, err)
	rTest, _ := s.XTest.Dims()
	rTrain, _ := s.XTrain.Dims()
	assert.Equal(t, 5, rTest)
	assert.Equal(t, 15, rTrain)

	for i, idx := range s.TestIndices {
		assert.Equal(t, float64(idx), s.XTest.At(i, 0))
		assert.Equal(t, float64(idx*10), s.XTest.At(i, 1))
		assert.Equal(t, float64(idx%2), s.YTest.At(i, 0))
	}

	_, err = TrainTestSplit(X, mat.NewDense(3, 1, nil), 0.25, 42)
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}
