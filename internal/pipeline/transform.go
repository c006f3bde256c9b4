package pipeline

import (
	"context"

	"github.com/YuminosukeSato/heartml/internal/artifact"
	"github.com/YuminosukeSato/heartml/internal/dataset"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"github.com/YuminosukeSato/heartml/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// Transform fits the featurizer on the full ingested dataset, splits the rows
// into train and test partitions and persists both partitions together with
// the fitted encoder and scaler.
//
// The stage is gated on the validation report: when the report is absent or
// not passed it returns false and writes nothing. Only I/O and data errors
// are returned as errors.
func Transform(ctx context.Context, rc *RunContext) (bool, error) {
	span := rc.begin(log.StageTransformation)

	report, err := LoadReport(ctx, rc.Store)
	switch {
	case errors.Is(err, errors.ErrArtifactNotFound):
		span.logger.Warn("Validation report not found, skipping transformation",
			log.ArtifactKey, artifact.ValidationReport.Path())
		return false, nil
	case err != nil:
		return false, err
	case !report.Passed:
		span.logger.Warn("Validation did not pass, skipping transformation",
			log.ColumnsKey, report.MissingColumns())
		return false, nil
	}

	frame, err := loadFrame(ctx, rc)
	if err != nil {
		return false, err
	}
	feat, err := FitFeaturizer(rc.Schema, frame)
	if err != nil {
		return false, err
	}
	X, err := feat.Transform(frame)
	if err != nil {
		return false, err
	}
	y, err := frame.Floats([]string{rc.Schema.Target})
	if err != nil {
		return false, err
	}

	split, err := preprocessing.TrainTestSplit(X, y, rc.Params.Data.TestSize, rc.Params.Data.RandomState)
	if err != nil {
		return false, err
	}

	names := feat.FeatureNames()
	target := []string{rc.Schema.Target}
	for _, out := range []struct {
		key    artifact.Key
		m      *mat.Dense
		header []string
	}{
		{artifact.XTrain, split.XTrain, names},
		{artifact.XTest, split.XTest, names},
		{artifact.YTrain, split.YTrain, target},
		{artifact.YTest, split.YTest, target},
	} {
		b, err := dataset.WriteMatrix(out.m, out.header)
		if err != nil {
			return false, errors.Wrapf(err, "encode %s", out.key)
		}
		if err := rc.Store.Put(ctx, out.key, b); err != nil {
			return false, err
		}
	}
	if err := feat.Save(ctx, rc.Store); err != nil {
		return false, err
	}

	span.done(
		log.SamplesKey, frame.Len(),
		log.FeaturesKey, len(names),
		"train_rows", len(split.TrainIndices),
		"test_rows", len(split.TestIndices),
		log.RandomSeedKey, rc.Params.Data.RandomState,
	)
	return true, nil
}

// partition is one persisted feature/label pair.
type partition struct {
	X        *mat.Dense
	y        *mat.Dense
	features []string
}

func loadPartition(ctx context.Context, store artifact.Store, xKey, yKey artifact.Key) (*partition, error) {
	xb, err := store.Get(ctx, xKey)
	if err != nil {
		return nil, err
	}
	X, header, err := dataset.ReadMatrix(xb)
	if err != nil {
		return nil, errors.Wrapf(err, "artifact %s", xKey)
	}
	yb, err := store.Get(ctx, yKey)
	if err != nil {
		return nil, err
	}
	y, _, err := dataset.ReadMatrix(yb)
	if err != nil {
		return nil, errors.Wrapf(err, "artifact %s", yKey)
	}
	return &partition{X: X, y: y, features: header}, nil
}
