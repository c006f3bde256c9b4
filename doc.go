// Package heartml is a heart disease classification system: a staged
// training pipeline (ingestion, validation, transformation, training and
// evaluation) that persists every intermediate artifact, and a prediction
// service that serves the trained model over HTTP and a terminal form.
//
// # Layout
//
//   - internal/config: schema.yaml and params.yaml, validated at load time
//   - internal/artifact: artifact stores (directory, SQLite, memory)
//   - internal/pipeline: the five stages and Run
//   - internal/predict: record validation, lazy model loading and bootstrap
//   - internal/server: the chi based HTTP API with Prometheus metrics
//   - internal/ui: the bubbletea form
//   - sklearn/ensemble, preprocessing, metrics: the estimators
//   - cmd/heartml: the command line
//
// # Quick Start
//
//	heartml generate --out data/heart.csv
//	heartml run
//	heartml serve --addr :8080
//
//	curl -s localhost:8080/predict -d '{"Age":54,"Sex":"M","ChestPainType":"ASY",
//	  "RestingBP":130,"Cholesterol":240,"FastingBS":0,"RestingECG":"Normal",
//	  "MaxHR":140,"ExerciseAngina":"N","Oldpeak":1.0,"ST_Slope":"Flat"}'
package heartml
