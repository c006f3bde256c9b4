package pipeline

import (
	"bytes"
	"context"

	"github.com/YuminosukeSato/heartml/core/model"
	"github.com/YuminosukeSato/heartml/internal/artifact"
	"github.com/YuminosukeSato/heartml/internal/config"
	"github.com/YuminosukeSato/heartml/internal/dataset"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// Featurizer turns raw rows into the model's feature matrix: scaled numeric
// columns first, then the one-hot indicators grouped by source column.
//
// The fitted encoder and scaler remember the columns they were fitted on, so
// training and prediction select exactly the same cells in the same order. A
// transformer that was never fitted (no columns of its kind in the schema)
// contributes nothing.
type Featurizer struct {
	Encoder *preprocessing.OneHotEncoder
	Scaler  *preprocessing.StandardScaler
}

// FitFeaturizer fits the encoder on the schema's str columns and the scaler
// on every other feature column, using all rows of frame.
func FitFeaturizer(schema *config.Schema, frame *dataset.Frame) (*Featurizer, error) {
	f := &Featurizer{
		Encoder: preprocessing.NewOneHotEncoder(true),
		Scaler:  preprocessing.NewStandardScalerDefault(),
	}
	numeric, categorical := schema.Numeric(), schema.Categorical()
	if len(numeric)+len(categorical) == 0 {
		return nil, errors.NewValueError("FitFeaturizer", "schema declares no feature columns")
	}

	if len(numeric) > 0 {
		X, err := frame.Floats(numeric)
		if err != nil {
			return nil, err
		}
		f.Scaler.SetFeatureNames(numeric)
		if err := f.Scaler.Fit(X); err != nil {
			return nil, err
		}
	}
	if len(categorical) > 0 {
		X, err := frame.Strings(categorical)
		if err != nil {
			return nil, err
		}
		f.Encoder.SetFeatureNames(categorical)
		if err := f.Encoder.Fit(X); err != nil {
			return nil, err
		}
	}
	if len(f.FeatureNames()) == 0 {
		return nil, errors.NewValueError("FitFeaturizer", "every categorical column has a single value and there are no numeric columns")
	}
	return f, nil
}

func (f *Featurizer) encodes() bool {
	return f.Encoder.IsFitted() && f.Encoder.NOutputs() > 0
}

// FeatureNames returns the output column names in matrix order.
func (f *Featurizer) FeatureNames() []string {
	var names []string
	if f.Scaler.IsFitted() {
		names = append(names, f.Scaler.GetFeatureNamesOut()...)
	}
	if f.encodes() {
		names = append(names, f.Encoder.GetFeatureNamesOut()...)
	}
	return names
}

// InputColumns returns the raw columns Transform reads.
func (f *Featurizer) InputColumns() []string {
	var cols []string
	if f.Scaler.IsFitted() {
		cols = append(cols, f.Scaler.FeatureNamesIn()...)
	}
	if f.Encoder.IsFitted() {
		cols = append(cols, f.Encoder.FeatureNamesIn()...)
	}
	return cols
}

// Transform applies the fitted transformers to every row of frame.
func (f *Featurizer) Transform(frame *dataset.Frame) (*mat.Dense, error) {
	var parts []mat.Matrix
	if f.Scaler.IsFitted() {
		X, err := frame.Floats(f.Scaler.FeatureNamesIn())
		if err != nil {
			return nil, err
		}
		scaled, err := f.Scaler.Transform(X)
		if err != nil {
			return nil, err
		}
		parts = append(parts, scaled)
	}
	if f.encodes() {
		X, err := frame.Strings(f.Encoder.FeatureNamesIn())
		if err != nil {
			return nil, err
		}
		encoded, err := f.Encoder.Transform(X)
		if err != nil {
			return nil, err
		}
		parts = append(parts, encoded)
	}
	if len(parts) == 0 {
		return nil, errors.NewNotFittedError("Featurizer", "Transform")
	}
	return hstack(parts...), nil
}

func hstack(parts ...mat.Matrix) *mat.Dense {
	rows, width := 0, 0
	for _, p := range parts {
		r, c := p.Dims()
		rows = r
		width += c
	}
	out := mat.NewDense(rows, width, nil)
	offset := 0
	for _, p := range parts {
		_, c := p.Dims()
		out.Slice(0, rows, offset, offset+c).(*mat.Dense).Copy(p)
		offset += c
	}
	return out
}

// Save persists the encoder and scaler.
func (f *Featurizer) Save(ctx context.Context, store artifact.Store) error {
	for _, item := range []struct {
		key artifact.Key
		obj interface{}
	}{
		{artifact.Encoder, f.Encoder},
		{artifact.Scaler, f.Scaler},
	} {
		var buf bytes.Buffer
		if err := model.SaveModelToWriter(item.obj, &buf); err != nil {
			return err
		}
		if err := store.Put(ctx, item.key, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// LoadFeaturizer reads the persisted encoder and scaler.
func LoadFeaturizer(ctx context.Context, store artifact.Store) (*Featurizer, error) {
	f := &Featurizer{
		Encoder: &preprocessing.OneHotEncoder{},
		Scaler:  &preprocessing.StandardScaler{},
	}
	if err := loadGob(ctx, store, artifact.Encoder, f.Encoder); err != nil {
		return nil, err
	}
	if err := loadGob(ctx, store, artifact.Scaler, f.Scaler); err != nil {
		return nil, err
	}
	return f, nil
}

func loadGob(ctx context.Context, store artifact.Store, key artifact.Key, dst interface{}) error {
	b, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := model.LoadModelFromReader(dst, bytes.NewReader(b)); err != nil {
		return errors.Wrapf(err, "artifact %s", key)
	}
	return nil
}
