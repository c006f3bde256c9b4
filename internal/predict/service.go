// Package predict serves single-record predictions from the artifacts the
// training pipeline persisted.
package predict

import (
	"context"
	"slices"
	"sync"

	"github.com/YuminosukeSato/heartml/internal/artifact"
	"github.com/YuminosukeSato/heartml/internal/pipeline"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"github.com/YuminosukeSato/heartml/sklearn/ensemble"
)

// Human-readable results.
const (
	ResultPositive = "Heart Disease Detected"
	ResultNegative = "No Heart Disease"
)

// Describe maps a predicted label to its result text.
func Describe(label int) string {
	if label == 1 {
		return ResultPositive
	}
	return ResultNegative
}

// Prediction is the response for one record.
type Prediction struct {
	Label  int    `json:"prediction"`
	Result string `json:"result"`
}

// Artifacts is the immutable set loaded for serving.
type Artifacts struct {
	Model    *ensemble.GradientBoostingClassifier
	Features *pipeline.Featurizer
}

// Service predicts with lazily loaded artifacts. Once loaded, the artifacts
// are shared read-only by every request.
type Service struct {
	store     artifact.Store
	bootstrap *Bootstrapper
	logger    log.Logger

	mu     sync.RWMutex
	loaded *Artifacts
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithBootstrap makes the service run the training pipeline when artifacts
// are missing instead of failing with ErrNotTrained.
func WithBootstrap(b *Bootstrapper) Option {
	return func(s *Service) { s.bootstrap = b }
}

// NewService returns a service reading artifacts from store.
func NewService(store artifact.Store, opts ...Option) *Service {
	s := &Service{store: store, logger: log.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trained reports whether the serving artifacts are loaded or present in
// the store.
func (s *Service) Trained(ctx context.Context) (bool, error) {
	s.mu.RLock()
	loaded := s.loaded != nil
	s.mu.RUnlock()
	if loaded {
		return true, nil
	}
	return artifact.ExistsAll(ctx, s.store, artifact.Serving...)
}

// Artifacts returns the loaded artifacts, loading them on first use. Missing
// artifacts yield ErrNotTrained, or trigger the bootstrap when configured.
func (s *Service) Artifacts(ctx context.Context) (*Artifacts, error) {
	s.mu.RLock()
	a := s.loaded
	s.mu.RUnlock()
	if a != nil {
		return a, nil
	}

	present, err := artifact.ExistsAll(ctx, s.store, artifact.Serving...)
	if err != nil {
		return nil, err
	}
	if !present {
		if s.bootstrap == nil {
			return nil, errors.WithStack(errors.ErrNotTrained)
		}
		s.logger.Warn("Artifacts missing, bootstrapping pipeline", log.ErrorCodeKey, log.ErrorArtifactMissing)
		if err := s.bootstrap.Ensure(ctx); err != nil {
			// a run started by another caller may have finished meanwhile
			if ok, _ := artifact.ExistsAll(ctx, s.store, artifact.Serving...); !ok {
				return nil, err
			}
		}
	}
	return s.load(ctx)
}

func (s *Service) load(ctx context.Context) (*Artifacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded != nil {
		return s.loaded, nil
	}

	feat, err := pipeline.LoadFeaturizer(ctx, s.store)
	if err != nil {
		return nil, notTrainedIfMissing(err)
	}
	inputs := feat.InputColumns()
	if unknown := unservedColumns(inputs); len(unknown) > 0 {
		s.logger.Error("Featurizer reads columns a record cannot carry", log.ColumnsKey, unknown)
		return nil, errors.NewFeatureMismatchError("prediction", inputs, FieldNames())
	}
	clf, err := pipeline.LoadModel(ctx, s.store)
	if err != nil {
		return nil, notTrainedIfMissing(err)
	}
	if want, got := clf.FeatureNamesIn(), feat.FeatureNames(); !slices.Equal(want, got) {
		return nil, errors.NewFeatureMismatchError("prediction", want, got)
	}

	s.loaded = &Artifacts{Model: clf, Features: feat}
	s.logger.Info("Artifacts loaded",
		log.ModelNameKey, ensemble.ModelName,
		log.FeaturesKey, len(feat.FeatureNames()),
		log.ColumnsKey, inputs,
	)
	return s.loaded, nil
}

// unservedColumns returns the columns a Record has no field for.
func unservedColumns(cols []string) []string {
	var out []string
	for _, c := range cols {
		if !slices.Contains(FieldNames(), c) {
			out = append(out, c)
		}
	}
	return out
}

func notTrainedIfMissing(err error) error {
	if errors.Is(err, errors.ErrArtifactNotFound) {
		return errors.Wrap(errors.ErrNotTrained, err.Error())
	}
	return err
}

// Predict validates rec, applies the fitted encoder and scaler and returns
// the model's label. It never falls back to a default label.
func (s *Service) Predict(ctx context.Context, rec Record) (*Prediction, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	a, err := s.Artifacts(ctx)
	if err != nil {
		return nil, err
	}

	frame, err := rec.Frame()
	if err != nil {
		return nil, err
	}
	var label int
	err = errors.SafeExecute("predict.Service.Predict", func() error {
		X, err := a.Features.Transform(frame)
		if err != nil {
			return errors.Wrap(err, "transform record")
		}
		pred, err := a.Model.Predict(X)
		if err != nil {
			return errors.Wrap(err, "predict record")
		}
		label = int(pred.At(0, 0))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Prediction served", log.OperationKey, log.OperationPredict, "label", label)
	return &Prediction{Label: label, Result: Describe(label)}, nil
}
