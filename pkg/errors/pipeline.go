package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

var (
	// ErrNotTrained is returned when a prediction is requested before the
	// model, encoder and scaler artifacts exist.
	ErrNotTrained = New("model not trained")

	// ErrArtifactNotFound is returned by artifact stores for unknown keys.
	ErrArtifactNotFound = New("artifact not found")

	// ErrArtifactSkew is returned when re-evaluating persisted artifacts does
	// not reproduce the score computed at training time.
	ErrArtifactSkew = New("artifact skew")
)

// ConfigError lists every missing or malformed field found while loading a
// configuration file.
type ConfigError struct {
	Source   string
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("heartml: invalid configuration %s: %s", e.Source, strings.Join(e.Problems, "; "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("source", e.Source).
		Strs("problems", e.Problems).
		Str("type", "ConfigError")
}

// NewConfigError returns nil when problems is empty.
func NewConfigError(source string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return errors.WithStack(&ConfigError{Source: source, Problems: problems})
}

// ValidationFailedError aborts a pipeline run when schema validation finds
// missing columns and the run is configured to stop on failure.
type ValidationFailedError struct {
	Missing map[string]string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("heartml: data validation failed: %s", formatFields(e.Missing))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationFailedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("columns", formatFields(e.Missing)).
		Str("type", "ValidationFailedError")
}

// NewValidationFailedError は新しいValidationFailedErrorを作成します。
func NewValidationFailedError(missing map[string]string) error {
	return errors.WithStack(&ValidationFailedError{Missing: missing})
}

// InputError reports a malformed prediction request, itemized by field.
type InputError struct {
	Fields map[string]string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("heartml: invalid input: %s", formatFields(e.Fields))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InputError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("fields", formatFields(e.Fields)).
		Str("type", "InputError")
}

// NewInputError は新しいInputErrorを作成します。
func NewInputError(fields map[string]string) error {
	return errors.WithStack(&InputError{Fields: fields})
}

// formatFields renders a field map in sorted key order so messages are stable.
func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fields[k]
	}
	return strings.Join(parts, ", ")
}
