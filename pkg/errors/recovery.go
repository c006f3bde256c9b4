// Panic recovery for estimator and service entry points. A panic inside Fit,
// a stage body or a prediction is returned as a *PanicError instead of
// taking the process down.

package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// PanicError は回復したpanicの値と発生時のスタックを保持します。
type PanicError struct {
	Operation  string
	PanicValue interface{}
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap exposes the panic value when it is itself an error, such as a
// runtime.Error from an out of range index.
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// String includes the captured stack.
func (e *PanicError) String() string {
	return e.Error() + "\nStack trace:\n" + e.StackTrace
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PanicError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Str("panic", fmt.Sprint(e.PanicValue)).
		Str("type", "PanicError")
}

// NewPanicError captures the current stack for a recovered value.
func NewPanicError(operation string, value interface{}) *PanicError {
	return &PanicError{
		Operation:  operation,
		PanicValue: value,
		StackTrace: string(debug.Stack()),
	}
}

// Recover must be deferred directly by a function with a named error result:
//
//	func (gb *GradientBoostingClassifier) Fit(X, y mat.Matrix) (err error) {
//	    defer Recover(&err, "GradientBoostingClassifier.Fit")
//	    ...
//	}
//
// An error already assigned to *err is joined with the PanicError so both
// stay reachable through Is and As.
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	panicErr := NewPanicError(operation, r)
	if *err == nil {
		*err = panicErr
		return
	}
	*err = Join(panicErr, *err)
}

// SafeExecute runs fn, returning its error or the PanicError it raised.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
