package ensemble

import (
	"context"
	"fmt"
	"time"

	"github.com/YuminosukeSato/heartml/core/model"
	"github.com/YuminosukeSato/heartml/core/parallel"
	"github.com/YuminosukeSato/heartml/metrics"
	heartErrors "github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// ModelName is the identifier accepted in params.yaml for this classifier.
const ModelName = "GradientBoostingClassifier"

// predictParallelThreshold is the row count above which prediction is split
// across CPU cores.
const predictParallelThreshold = 512

// GradientBoostingClassifier implements binary gradient boosting with
// scikit-learn compatible defaults.
type GradientBoostingClassifier struct {
	model.StateManager

	// Hyperparameters (matching scikit-learn)
	NEstimators     int     // Number of boosting stages
	LearningRate    float64 // Shrinks the contribution of each tree
	MaxDepth        int     // Maximum depth of each regression tree
	MinSamplesSplit int     // Minimum samples required to split a node
	MinSamplesLeaf  int     // Minimum samples required at each leaf

	// Fitted state
	InitScore   float64   // Log-odds of the positive class prior
	Trees       []Tree    // One regression tree per stage
	TrainLoss   []float64 // Mean deviance on the training data after each stage
	Importances []float64 // Normalized impurity decrease per feature
	Features    []string  // Column names seen during Fit, when provided

	logger log.Logger
}

// NewGradientBoostingClassifier creates a classifier with default parameters.
func NewGradientBoostingClassifier() *GradientBoostingClassifier {
	return &GradientBoostingClassifier{
		NEstimators:     100,
		LearningRate:    0.1,
		MaxDepth:        3,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

// WithNEstimators sets the number of boosting stages
func (gb *GradientBoostingClassifier) WithNEstimators(n int) *GradientBoostingClassifier {
	gb.NEstimators = n
	return gb
}

// WithLearningRate sets the learning rate
func (gb *GradientBoostingClassifier) WithLearningRate(lr float64) *GradientBoostingClassifier {
	gb.LearningRate = lr
	return gb
}

// WithMaxDepth sets the maximum depth
func (gb *GradientBoostingClassifier) WithMaxDepth(d int) *GradientBoostingClassifier {
	gb.MaxDepth = d
	return gb
}

// WithMinSamplesSplit sets the minimum number of samples needed to split
func (gb *GradientBoostingClassifier) WithMinSamplesSplit(n int) *GradientBoostingClassifier {
	gb.MinSamplesSplit = n
	return gb
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf
func (gb *GradientBoostingClassifier) WithMinSamplesLeaf(n int) *GradientBoostingClassifier {
	gb.MinSamplesLeaf = n
	return gb
}

// WithLogger attaches a logger for training progress. The logger is not
// persisted.
func (gb *GradientBoostingClassifier) WithLogger(l log.Logger) *GradientBoostingClassifier {
	gb.logger = l
	return gb
}

// SetFeatureNames records the names of the columns Fit will see.
func (gb *GradientBoostingClassifier) SetFeatureNames(names []string) {
	gb.Features = append([]string(nil), names...)
}

// FeatureNamesIn returns the column names recorded with SetFeatureNames.
func (gb *GradientBoostingClassifier) FeatureNamesIn() []string {
	return append([]string(nil), gb.Features...)
}

func (gb *GradientBoostingClassifier) validateParams() error {
	switch {
	case gb.NEstimators < 1:
		return heartErrors.NewValidationError("n_estimators", "must be >= 1", gb.NEstimators)
	case gb.LearningRate <= 0:
		return heartErrors.NewValidationError("learning_rate", "must be > 0", gb.LearningRate)
	case gb.MaxDepth < 1:
		return heartErrors.NewValidationError("max_depth", "must be >= 1", gb.MaxDepth)
	case gb.MinSamplesSplit < 2:
		return heartErrors.NewValidationError("min_samples_split", "must be >= 2", gb.MinSamplesSplit)
	case gb.MinSamplesLeaf < 1:
		return heartErrors.NewValidationError("min_samples_leaf", "must be >= 1", gb.MinSamplesLeaf)
	}
	return nil
}

// Fit trains the classifier. y must be an n x 1 matrix of 0/1 labels with
// both classes present.
func (gb *GradientBoostingClassifier) Fit(X, y mat.Matrix) error {
	return gb.FitContext(context.Background(), X, y)
}

// FitContext is Fit that stops between boosting iterations once ctx is done.
// A stopped fit leaves the classifier unfitted.
func (gb *GradientBoostingClassifier) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer heartErrors.Recover(&err, "GradientBoostingClassifier.Fit")

	if err := gb.validateParams(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return heartErrors.NewModelError("GradientBoostingClassifier.Fit", "empty data", heartErrors.ErrEmptyData)
	}
	yRows, _ := y.Dims()
	if yRows != rows {
		return heartErrors.NewDimensionError("GradientBoostingClassifier.Fit", rows, yRows, 0)
	}
	if gb.Features != nil && len(gb.Features) != cols {
		return heartErrors.NewDimensionError("GradientBoostingClassifier.Fit", len(gb.Features), cols, 1)
	}

	labels := make([]float64, rows)
	positives := 0
	for i := range labels {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return heartErrors.NewValueError("GradientBoostingClassifier.Fit",
				fmt.Sprintf("labels must be 0 or 1, got %v at row %d", v, i))
		}
		labels[i] = v
		positives += int(v)
	}
	if positives == 0 || positives == rows {
		return heartErrors.NewValueError("GradientBoostingClassifier.Fit",
			"training data must contain both classes")
	}

	data := make([][]float64, rows)
	for i := range data {
		data[i] = mat.Row(nil, i, X)
	}

	logger := gb.logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.With(log.ModelNameKey, ModelName, log.OperationKey, log.OperationFit)
	start := time.Now()

	var loss binomialDeviance
	gb.InitScore = loss.initScore(labels)
	raw := make([]float64, rows)
	for i := range raw {
		raw[i] = gb.InitScore
	}
	residuals := make([]float64, rows)
	builder := &treeBuilder{
		params: treeParams{
			MaxDepth:        gb.MaxDepth,
			MinSamplesSplit: gb.MinSamplesSplit,
			MinSamplesLeaf:  gb.MinSamplesLeaf,
		},
		X:         data,
		residuals: residuals,
		y:         labels,
		loss:      loss,
	}

	gb.Trees = make([]Tree, 0, gb.NEstimators)
	gb.TrainLoss = make([]float64, 0, gb.NEstimators)
	for iter := 0; iter < gb.NEstimators; iter++ {
		if err := ctx.Err(); err != nil {
			gb.Trees, gb.TrainLoss = nil, nil
			gb.Reset()
			logger.Warn("Training stopped", log.IterationKey, iter, log.ErrAttrKey, err.Error())
			return heartErrors.Wrapf(err, "GradientBoostingClassifier.Fit stopped at iteration %d", iter)
		}
		for i := range residuals {
			residuals[i] = loss.negativeGradient(labels[i], raw[i])
		}
		tree := builder.build()
		for i, row := range data {
			raw[i] += gb.LearningRate * tree.Predict(row)
		}
		gb.Trees = append(gb.Trees, tree)
		gb.TrainLoss = append(gb.TrainLoss, loss.loss(labels, raw))

		if iter%10 == 0 {
			logger.Debug("Training progress",
				log.IterationKey, iter,
				log.LossKey, gb.TrainLoss[iter],
			)
		}
	}

	gb.Importances = computeImportances(gb.Trees, cols)
	gb.SetFitted(cols, rows)

	logger.Info("Training completed",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.LossKey, gb.TrainLoss[len(gb.TrainLoss)-1],
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// computeImportances sums the split gains per feature over all trees and
// normalizes them to sum to 1.
func computeImportances(trees []Tree, nFeatures int) []float64 {
	importance := make([]float64, nFeatures)
	for _, tree := range trees {
		for _, node := range tree.Nodes {
			if !node.IsLeaf() {
				importance[node.SplitFeature] += node.Gain
			}
		}
	}
	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}
	return importance
}

// DecisionFunction returns the raw log-odds score of every row of X.
func (gb *GradientBoostingClassifier) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	if err := gb.RequireFitted(ModelName, "DecisionFunction"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := gb.RequireFeatures("GradientBoostingClassifier.DecisionFunction", cols); err != nil {
		return nil, err
	}

	scores := make([]float64, rows)
	err := parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, func(start, end int) error {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			score := gb.InitScore
			for t := range gb.Trees {
				score += gb.LearningRate * gb.Trees[t].Predict(row)
			}
			scores[i] = score
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return &mat.VecDense{}, nil
	}
	return mat.NewVecDense(rows, scores), nil
}

// PredictProba returns an n x 2 matrix of class probabilities
// [P(y=0), P(y=1)].
func (gb *GradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := gb.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n := scores.Len()
	if n == 0 {
		return &mat.Dense{}, nil
	}
	proba := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		p := sigmoid(scores.AtVec(i))
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Predict returns an n x 1 matrix of 0/1 labels. A row is labeled 1 when
// P(y=1) > 0.5.
func (gb *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := gb.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := proba.Dims()
	if n == 0 {
		return &mat.Dense{}, nil
	}
	labels := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if proba.At(i, 1) > proba.At(i, 0) {
			labels.Set(i, 0, 1)
		}
	}
	return labels, nil
}

// Score returns the accuracy of Predict(X) against y.
func (gb *GradientBoostingClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := gb.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, err := metrics.FirstColumn("GradientBoostingClassifier.Score", y)
	if err != nil {
		return 0, err
	}
	yPred, err := metrics.FirstColumn("GradientBoostingClassifier.Score", pred)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(yTrue, yPred)
}

// FeatureImportances returns the normalized impurity-based importances.
func (gb *GradientBoostingClassifier) FeatureImportances() ([]float64, error) {
	if err := gb.RequireFitted(ModelName, "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), gb.Importances...), nil
}

// GetParams returns the hyperparameters
func (gb *GradientBoostingClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      gb.NEstimators,
		"learning_rate":     gb.LearningRate,
		"max_depth":         gb.MaxDepth,
		"min_samples_split": gb.MinSamplesSplit,
		"min_samples_leaf":  gb.MinSamplesLeaf,
	}
}

var (
	_ model.Classifier         = (*GradientBoostingClassifier)(nil)
	_ model.FeatureImportancer = (*GradientBoostingClassifier)(nil)
)
