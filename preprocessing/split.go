package preprocessing

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/heartml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Split holds the row indices of a train/test partition together with the
// partitioned matrices.
type Split struct {
	TrainIndices []int
	TestIndices  []int

	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.Dense
}

// SplitIndices returns a seeded train/test partition of nSamples rows.
// The test partition holds ceil(testSize*nSamples) rows, taken from the front
// of a PCG permutation seeded with seed; both partitions keep permutation
// order. Equal inputs always give equal partitions.
func SplitIndices(nSamples int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 || math.IsNaN(testSize) {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(nSamples)))
	nTrain := nSamples - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"test_size leaves an empty train or test partition")
	}

	r := rand.New(rand.NewPCG(seed, seed))
	perm := r.Perm(nSamples)
	return perm[nTest:], perm[:nTest], nil
}

// TrainTestSplit partitions the rows of X and y with SplitIndices.
//
//	s, err := preprocessing.TrainTestSplit(X, y, 0.2, 42)
//	clf.Fit(s.XTrain, s.YTrain)
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed uint64) (*Split, error) {
	n, _ := X.Dims()
	ny, _ := y.Dims()
	if n != ny {
		return nil, errors.NewDimensionError("TrainTestSplit", n, ny, 0)
	}
	train, test, err := SplitIndices(n, testSize, seed)
	if err != nil {
		return nil, err
	}
	return &Split{
		TrainIndices: train,
		TestIndices:  test,
		XTrain:       takeRows(X, train),
		XTest:        takeRows(X, test),
		YTrain:       takeRows(y, train),
		YTest:        takeRows(y, test),
	}, nil
}

func takeRows(m mat.Matrix, rows []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(r, j))
		}
	}
	return out
}
