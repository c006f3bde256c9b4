package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/YuminosukeSato/heartml/core/model"
	"github.com/YuminosukeSato/heartml/internal/artifact"
	"github.com/YuminosukeSato/heartml/internal/config"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"github.com/YuminosukeSato/heartml/sklearn/ensemble"
)

// NewClassifier builds the classifier named by p.
func NewClassifier(p config.ModelParams, logger log.Logger) (*ensemble.GradientBoostingClassifier, error) {
	if p.Name != ensemble.ModelName {
		return nil, errors.NewValidationError("model.name", "unsupported model", p.Name)
	}
	return ensemble.NewGradientBoostingClassifier().
		WithNEstimators(p.NEstimators).
		WithLearningRate(p.LearningRate).
		WithMaxDepth(p.MaxDepth).
		WithMinSamplesSplit(p.MinSamplesSplit).
		WithMinSamplesLeaf(p.MinSamplesLeaf).
		WithLogger(logger), nil
}

// Train fits the configured classifier on the training partition, scores it
// on the test partition and persists it. The test accuracy is returned and
// recorded on the tracker.
func Train(ctx context.Context, rc *RunContext) (float64, error) {
	span := rc.begin(log.StageTraining)

	train, err := loadPartition(ctx, rc.Store, artifact.XTrain, artifact.YTrain)
	if err != nil {
		return 0, err
	}
	test, err := loadPartition(ctx, rc.Store, artifact.XTest, artifact.YTest)
	if err != nil {
		return 0, err
	}

	clf, err := NewClassifier(rc.Params.Model, span.logger)
	if err != nil {
		return 0, err
	}
	clf.SetFeatureNames(train.features)
	if err := clf.FitContext(ctx, train.X, train.y); err != nil {
		return 0, errors.Wrap(err, "fit classifier")
	}
	acc, err := clf.Score(test.X, test.y)
	if err != nil {
		return 0, errors.Wrap(err, "score classifier")
	}

	var buf bytes.Buffer
	if err := model.SaveModelToWriter(clf, &buf); err != nil {
		return 0, err
	}
	if err := rc.Store.Put(ctx, artifact.Model, buf.Bytes()); err != nil {
		return 0, err
	}

	_ = rc.Recorder.RecordParam(ctx, "model_name", rc.Params.Model.Name)
	params := clf.GetParams()
	for _, name := range slices.Sorted(maps.Keys(params)) {
		_ = rc.Recorder.RecordParam(ctx, name, fmt.Sprint(params[name]))
	}
	_ = rc.Recorder.RecordMetric(ctx, "accuracy", acc)

	rows, cols := train.X.Dims()
	span.done(
		log.ModelNameKey, rc.Params.Model.Name,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.AccuracyKey, acc,
	)
	return acc, nil
}

// LoadModel reads the persisted classifier.
func LoadModel(ctx context.Context, store artifact.Store) (*ensemble.GradientBoostingClassifier, error) {
	var clf ensemble.GradientBoostingClassifier
	if err := loadGob(ctx, store, artifact.Model, &clf); err != nil {
		return nil, err
	}
	return &clf, nil
}
