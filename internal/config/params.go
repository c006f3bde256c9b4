package config

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/YuminosukeSato/heartml/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ModelGradientBoosting is the only supported value of model.name.
const ModelGradientBoosting = "GradientBoostingClassifier"

// Params is the typed stage configuration.
type Params struct {
	Data       DataParams
	Validation ValidationParams
	Model      ModelParams
}

// DataParams configures ingestion and the train/test split.
type DataParams struct {
	Source      string
	TestSize    float64
	RandomState uint64
}

// ValidationParams configures the validation gate.
type ValidationParams struct {
	StopOnFail bool
}

// ModelParams selects and tunes the classifier.
type ModelParams struct {
	Name            string
	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
}

// Default returns the optional settings; required ones stay zero.
func Default() Params {
	return Params{
		Data: DataParams{
			Source:      "data/heart.csv",
			RandomState: 42,
		},
		Model: ModelParams{
			NEstimators:     100,
			LearningRate:    0.1,
			MaxDepth:        3,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
		},
	}
}

// paramsFile mirrors params.yaml. Pointers distinguish "absent" from zero.
type paramsFile struct {
	Data struct {
		Source      *string  `yaml:"source"`
		TestSize    *float64 `yaml:"test_size"`
		RandomState *int64   `yaml:"random_state"`
	} `yaml:"data"`
	Validation struct {
		StopOnFail *bool `yaml:"stop_on_fail"`
	} `yaml:"validation"`
	Model struct {
		Name            *string  `yaml:"name"`
		NEstimators     *int     `yaml:"n_estimators"`
		LearningRate    *float64 `yaml:"learning_rate"`
		MaxDepth        *int     `yaml:"max_depth"`
		MinSamplesSplit *int     `yaml:"min_samples_split"`
		MinSamplesLeaf  *int     `yaml:"min_samples_leaf"`
	} `yaml:"model"`
}

// LoadParams reads and validates a params file.
func LoadParams(path string) (*Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read params %s", path)
	}
	return ParseParams(b, path)
}

// ParseParams decodes a params document, applies defaults and reports every
// missing or malformed field in one ConfigError.
func ParseParams(data []byte, source string) (*Params, error) {
	var raw paramsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.NewConfigError(source, []string{err.Error()})
	}

	p := Default()
	var problems []string
	required := func(field string) {
		problems = append(problems, field+": required")
	}

	if raw.Data.Source != nil {
		p.Data.Source = *raw.Data.Source
	}
	if p.Data.Source == "" {
		problems = append(problems, "data.source: must not be empty")
	}
	if raw.Data.TestSize == nil {
		required("data.test_size")
	} else if ts := *raw.Data.TestSize; !(ts > 0 && ts < 1) || math.IsNaN(ts) {
		problems = append(problems, fmt.Sprintf("data.test_size: must be in (0, 1), got %v", ts))
	} else {
		p.Data.TestSize = ts
	}
	if raw.Data.RandomState != nil {
		if *raw.Data.RandomState < 0 {
			problems = append(problems, fmt.Sprintf("data.random_state: must be >= 0, got %d", *raw.Data.RandomState))
		} else {
			p.Data.RandomState = uint64(*raw.Data.RandomState)
		}
	}

	if raw.Validation.StopOnFail == nil {
		required("validation.stop_on_fail")
	} else {
		p.Validation.StopOnFail = *raw.Validation.StopOnFail
	}

	switch {
	case raw.Model.Name == nil:
		required("model.name")
	case *raw.Model.Name != ModelGradientBoosting:
		problems = append(problems, fmt.Sprintf("model.name: unsupported model %q (supported: %s)", *raw.Model.Name, ModelGradientBoosting))
	default:
		p.Model.Name = *raw.Model.Name
	}
	atLeast := func(field string, v *int, floor int, dst *int) {
		if v == nil {
			return
		}
		if *v < floor {
			problems = append(problems, fmt.Sprintf("%s: must be >= %d, got %d", field, floor, *v))
			return
		}
		*dst = *v
	}
	atLeast("model.n_estimators", raw.Model.NEstimators, 1, &p.Model.NEstimators)
	atLeast("model.max_depth", raw.Model.MaxDepth, 1, &p.Model.MaxDepth)
	atLeast("model.min_samples_split", raw.Model.MinSamplesSplit, 2, &p.Model.MinSamplesSplit)
	atLeast("model.min_samples_leaf", raw.Model.MinSamplesLeaf, 1, &p.Model.MinSamplesLeaf)
	if raw.Model.LearningRate != nil {
		if lr := *raw.Model.LearningRate; lr <= 0 || math.IsNaN(lr) {
			problems = append(problems, fmt.Sprintf("model.learning_rate: must be > 0, got %v", lr))
		} else {
			p.Model.LearningRate = lr
		}
	}

	if err := errors.NewConfigError(source, problems); err != nil {
		return nil, err
	}
	return &p, nil
}
