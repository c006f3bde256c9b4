// Package artifact is the typed handoff between pipeline stages. Every stage
// output lives under a fixed key (stage + name), and a Store moves the bytes.
package artifact

import (
	"context"
	"path"
)

// Key addresses one artifact.
type Key struct {
	Stage string
	Name  string
}

// Path returns the slash-separated location of k relative to a store root.
func (k Key) Path() string {
	return path.Join(k.Stage, k.Name)
}

func (k Key) String() string { return k.Path() }

// The artifact layout. Stages read and write only these keys.
var (
	Ingested = Key{Stage: "ingestion", Name: "ingested.csv"}

	ValidationReport = Key{Stage: "validation", Name: "report.yaml"}

	XTrain  = Key{Stage: "transformation", Name: "X_train.csv"}
	XTest   = Key{Stage: "transformation", Name: "X_test.csv"}
	YTrain  = Key{Stage: "transformation", Name: "y_train.csv"}
	YTest   = Key{Stage: "transformation", Name: "y_test.csv"}
	Encoder = Key{Stage: "transformation", Name: "encoder.gob"}
	Scaler  = Key{Stage: "transformation", Name: "scaler.gob"}

	Model = Key{Stage: "model", Name: "best_model.gob"}

	Metrics           = Key{Stage: "evaluation", Name: "metrics.yaml"}
	FeatureImportance = Key{Stage: "evaluation", Name: "feature_importance.png"}
)

// Serving lists the artifacts the prediction service needs.
var Serving = []Key{Model, Encoder, Scaler}

// Store persists artifacts. Get returns an error wrapping
// errors.ErrArtifactNotFound for unknown keys.
type Store interface {
	Put(ctx context.Context, key Key, data []byte) error
	Get(ctx context.Context, key Key) ([]byte, error)
	Exists(ctx context.Context, key Key) (bool, error)
}

// ExistsAll reports whether every key is present in s.
func ExistsAll(ctx context.Context, s Store, keys ...Key) (bool, error) {
	for _, k := range keys {
		ok, err := s.Exists(ctx, k)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
