package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func vec(v []float64) *mat.VecDense {
	if len(v) == 0 {
		return nil
	}
	return mat.NewVecDense(len(v), v)
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{name: "Perfect accuracy", yTrue: []float64{0, 1, 1, 0}, yPred: []float64{0, 1, 1, 0}, want: 1.0},
		{name: "75% accuracy", yTrue: []float64{0, 1, 1, 0}, yPred: []float64{0, 1, 0, 0}, want: 0.75},
		{name: "Zero accuracy", yTrue: []float64{0, 0, 0}, yPred: []float64{1, 1, 1}, want: 0.0},
		{name: "Empty vectors", wantErr: true},
		{name: "Dimension mismatch", yTrue: []float64{0, 1}, yPred: []float64{0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accuracy(vec(tt.yTrue), vec(tt.yPred))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)

			errRate, err := ClassificationError(vec(tt.yTrue), vec(tt.yPred))
			require.NoError(t, err)
			assert.InDelta(t, 1-tt.want, errRate, 1e-12)
		})
	}
}

func TestBinaryConfusionMatrix(t *testing.T) {
	yTrue := vec([]float64{1, 1, 1, 0, 0, 0, 1, 0})
	yPred := vec([]float64{1, 0, 1, 0, 1, 0, 1, 0})

	cm, err := BinaryConfusionMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, ConfusionMatrix{TN: 3, FP: 1, FN: 1, TP: 3}, cm)
	assert.InDelta(t, 0.75, cm.Precision(), 1e-12)
	assert.InDelta(t, 0.75, cm.Recall(), 1e-12)
	assert.InDelta(t, 0.75, cm.F1(), 1e-12)

	p, err := Precision(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, p, 1e-12)
	r, err := Recall(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, r, 1e-12)
	f, err := F1Score(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, f, 1e-12)
}

func TestConfusionMatrixZeroDivision(t *testing.T) {
	cm, err := BinaryConfusionMatrix(vec([]float64{0, 0}), vec([]float64{0, 0}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cm.Precision())
	assert.Equal(t, 0.0, cm.Recall())
	assert.Equal(t, 0.0, cm.F1())

	_, err = BinaryConfusionMatrix(vec([]float64{0, 2}), vec([]float64{0, 1}))
	assert.Error(t, err)
}

func TestBinaryLogLoss(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{name: "Perfect predictions", yTrue: []float64{0, 0, 1, 1}, yPred: []float64{0, 0, 1, 1}, want: 0.0},
		{name: "Typical case", yTrue: []float64{0, 0, 1, 1}, yPred: []float64{0.1, 0.2, 0.8, 0.9}, want: 0.164252},
		{name: "Worst predictions", yTrue: []float64{0, 0, 1, 1}, yPred: []float64{0.9, 0.9, 0.1, 0.1}, want: 2.3025851},
		{name: "Non-binary labels", yTrue: []float64{0, 0.5, 1}, yPred: []float64{0.1, 0.5, 0.9}, wantErr: true},
		{name: "Empty vectors", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BinaryLogLoss(vec(tt.yTrue), vec(tt.yPred))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-5)
		})
	}
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yScore  []float64
		want    float64
		wantErr bool
	}{
		{name: "Perfect classifier", yTrue: []float64{0, 0, 0, 1, 1, 1}, yScore: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9}, want: 1.0},
		{name: "Worst classifier", yTrue: []float64{0, 0, 0, 1, 1, 1}, yScore: []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1}, want: 0.0},
		{name: "All ties", yTrue: []float64{0, 1, 0, 1}, yScore: []float64{0.5, 0.5, 0.5, 0.5}, want: 0.5},
		{name: "Typical case", yTrue: []float64{0, 0, 1, 1}, yScore: []float64{0.1, 0.4, 0.35, 0.8}, want: 0.75},
		{name: "Single class", yTrue: []float64{1, 1, 1}, yScore: []float64{0.1, 0.4, 0.8}, want: 0.5},
		{name: "Non-binary labels", yTrue: []float64{0, 0.5, 1}, yScore: []float64{0.1, 0.5, 0.9}, wantErr: true},
		{name: "Dimension mismatch", yTrue: []float64{0, 1}, yScore: []float64{0.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(vec(tt.yTrue), vec(tt.yScore))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestAUCMatrix(t *testing.T) {
	got, err := AUCMatrix(
		mat.NewDense(4, 2, []float64{0, 9, 0, 9, 1, 9, 1, 9}),
		mat.NewDense(4, 2, []float64{0.1, 9, 0.4, 9, 0.35, 9, 0.8, 9}),
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-12)

	_, err = AUCMatrix(nil, mat.NewDense(1, 1, []float64{0.5}))
	assert.Error(t, err)
	_, err = AUCMatrix(&mat.Dense{}, &mat.Dense{})
	assert.Error(t, err)
}

func BenchmarkAUC(b *testing.B) {
	n := 1000
	yTrue := make([]float64, n)
	yScore := make([]float64, n)
	for i := 0; i < n; i++ {
		if i >= n/2 {
			yTrue[i] = 1
		}
		yScore[i] = float64(i) / float64(n)
	}
	t, s := vec(yTrue), vec(yScore)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = AUC(t, s)
	}
}
