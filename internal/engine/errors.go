package engine

import (
	"errors"
	"fmt"
	"strings"
)

// RuntimeError represents an error detected while evaluating a tree.
//
// Runtime errors include:
//   - Filtering failures under the Throw policy
//   - Invalid or unregistered reference sources
//   - Missing shadow bindings
//   - Numeric comparisons against non-numeric values
//   - Re-entrant field materialization
//
// A run either yields every collection or stops at the first RuntimeError.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Collection is the key of the collection being generated.
	Collection string

	// Field is the dotted path of the field being generated.
	Field string

	// Expr is the reference expression involved, if any.
	Expr string

	// Err is the underlying cause, if any.
	Err error
}

// ErrNoCandidates is the cause of a FILTERING_FAILED error raised when a
// reference's filters or condition leave nothing to select. Generator
// retries that run out do not carry it.
var ErrNoCandidates = errors.New("reference has no candidates")

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidConfig indicates bad engine options or option mappings.
	ErrCodeInvalidConfig RuntimeErrorCode = "INVALID_CONFIG"

	// ErrCodeUnknownGenerator indicates a generator name with no registration.
	ErrCodeUnknownGenerator RuntimeErrorCode = "UNKNOWN_GENERATOR"

	// ErrCodeGeneratorFailed indicates a generator returned an error.
	ErrCodeGeneratorFailed RuntimeErrorCode = "GENERATOR_FAILED"

	// ErrCodeInvalidReference indicates a reference no resolver accepts,
	// or a path into a non-object value.
	ErrCodeInvalidReference RuntimeErrorCode = "INVALID_REFERENCE"

	// ErrCodeUnregisteredSource indicates a reference to a collection or
	// tag that has not been generated yet.
	ErrCodeUnregisteredSource RuntimeErrorCode = "UNREGISTERED_SOURCE"

	// ErrCodeShadowNotFound indicates a $binding that is not bound.
	ErrCodeShadowNotFound RuntimeErrorCode = "SHADOW_NOT_FOUND"

	// ErrCodeFilteringFailed indicates exhausted retries or an empty
	// candidate set under the Throw policy.
	ErrCodeFilteringFailed RuntimeErrorCode = "FILTERING_FAILED"

	// ErrCodeTypeMismatch indicates a numeric comparison on a non-number.
	ErrCodeTypeMismatch RuntimeErrorCode = "TYPE_MISMATCH"

	// ErrCodeCyclicDependency indicates a field read while it is being
	// computed.
	ErrCodeCyclicDependency RuntimeErrorCode = "CYCLIC_DEPENDENCY"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	switch {
	case e.Collection != "" && e.Field != "":
		fmt.Fprintf(&b, " (field=%s.%s)", e.Collection, e.Field)
	case e.Collection != "":
		fmt.Fprintf(&b, " (collection=%s)", e.Collection)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func runtimeErr(code RuntimeErrorCode, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func runtimeErrExpr(code RuntimeErrorCode, expr, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Expr: expr}
}

// locate fills in the collection and field of err when they are unset.
// Errors that are not RuntimeErrors are wrapped as GENERATOR_FAILED.
func locate(err error, collection, field string) error {
	if err == nil {
		return nil
	}
	var re *RuntimeError
	if !errors.As(err, &re) {
		return &RuntimeError{
			Code:       ErrCodeGeneratorFailed,
			Message:    err.Error(),
			Collection: collection,
			Field:      field,
			Err:        err,
		}
	}
	if re.Collection == "" {
		re.Collection = collection
	}
	if re.Field == "" {
		re.Field = field
	}
	return err
}

func hasCode(err error, codes ...RuntimeErrorCode) bool {
	var re *RuntimeError
	if !errors.As(err, &re) {
		return false
	}
	for _, c := range codes {
		if re.Code == c {
			return true
		}
	}
	return false
}

// IsFilteringError returns true if err is a FILTERING_FAILED error.
func IsFilteringError(err error) bool {
	return hasCode(err, ErrCodeFilteringFailed)
}

// IsReferenceError returns true if err reports a bad, unregistered, or
// unbound reference.
func IsReferenceError(err error) bool {
	return hasCode(err, ErrCodeInvalidReference, ErrCodeUnregisteredSource, ErrCodeShadowNotFound)
}

// IsTypeError returns true if err is a TYPE_MISMATCH error.
func IsTypeError(err error) bool {
	return hasCode(err, ErrCodeTypeMismatch)
}

// IsCycleError returns true if err is a CYCLIC_DEPENDENCY error.
func IsCycleError(err error) bool {
	return hasCode(err, ErrCodeCyclicDependency)
}

// IsConfigError returns true if err is an INVALID_CONFIG or
// UNKNOWN_GENERATOR error.
func IsConfigError(err error) bool {
	return hasCode(err, ErrCodeInvalidConfig, ErrCodeUnknownGenerator)
}
