package pipeline

import (
	"context"
	"sort"

	"github.com/YuminosukeSato/heartml/internal/artifact"
	"github.com/YuminosukeSato/heartml/internal/config"
	"github.com/YuminosukeSato/heartml/internal/dataset"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"gopkg.in/yaml.v3"
)

// Missing is the report value recorded for an absent column.
const Missing = "missing"

// Report is the outcome of Validate, persisted as validation/report.yaml.
// Passed is stored explicitly and is the only field the transformation gate
// reads.
type Report struct {
	Errors map[string]string `yaml:"errors"`
	Passed bool              `yaml:"passed"`
}

// MissingColumns returns the report's error keys in sorted order.
func (r *Report) MissingColumns() []string {
	cols := make([]string, 0, len(r.Errors))
	for c := range r.Errors {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// CheckColumns reports every schema column, target included, that frame
// lacks. An empty schema always passes.
func CheckColumns(schema *config.Schema, frame *dataset.Frame) *Report {
	r := &Report{Errors: map[string]string{}}
	for _, col := range frame.Missing(schema.Required()) {
		r.Errors[col] = Missing
	}
	r.Passed = len(r.Errors) == 0
	return r
}

// Validate checks the ingested data against the schema and persists the
// report. A failed report is a ValidationFailedError when
// validation.stop_on_fail is set, and a warning otherwise.
func Validate(ctx context.Context, rc *RunContext) (*Report, error) {
	span := rc.begin(log.StageValidation)

	frame, err := loadFrame(ctx, rc)
	if err != nil {
		return nil, err
	}
	report := CheckColumns(rc.Schema, frame)
	if err := saveReport(ctx, rc.Store, report); err != nil {
		return nil, err
	}

	if !report.Passed {
		if rc.Params.Validation.StopOnFail {
			err := errors.NewValidationFailedError(report.Errors)
			span.logger.Error("Validation failed", err,
				log.ErrorCodeKey, log.ErrorValidation,
				log.ColumnsKey, report.MissingColumns(),
			)
			return report, err
		}
		span.logger.Warn("Validation failed, continuing",
			log.ErrorCodeKey, log.ErrorValidation,
			log.ColumnsKey, report.MissingColumns(),
		)
	}
	span.done("passed", report.Passed, log.SamplesKey, frame.Len())
	return report, nil
}

func saveReport(ctx context.Context, store artifact.Store, r *Report) error {
	b, err := yaml.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode validation report")
	}
	return store.Put(ctx, artifact.ValidationReport, b)
}

// LoadReport reads the persisted validation report.
func LoadReport(ctx context.Context, store artifact.Store) (*Report, error) {
	b, err := store.Get(ctx, artifact.ValidationReport)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrapf(err, "artifact %s", artifact.ValidationReport)
	}
	return &r, nil
}
