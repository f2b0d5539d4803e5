package types

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTableNotFound    = NewSchemaError("table not found")
	ErrRangeUnsupported = errors.New("range lookups are not supported by this index")
)

// SchemaError covers unknown tables/columns and values that don't fit a column's type.
type SchemaError struct{ msg string }

func NewSchemaError(msg string) *SchemaError { return &SchemaError{msg} }

func (e *SchemaError) Error() string { return e.msg }
func (e *SchemaError) Status() int   { return http.StatusBadRequest }

// Is matches schema errors carrying the same message.
func (e *SchemaError) Is(target error) bool {
	t, ok := target.(*SchemaError)
	return ok && t.msg == e.msg
}

// CorruptionError is returned when stored bytes can't be decoded into a row.
type CorruptionError struct {
	Key []byte
	Err error
}

func NewCorruptionError(key []byte, err error) *CorruptionError {
	return &CorruptionError{Key: key, Err: err}
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt row %q: %v", e.Key, e.Err)
}
func (e *CorruptionError) Unwrap() error { return e.Err }
func (e *CorruptionError) Status() int   { return http.StatusInternalServerError }

// AggregationError is returned when an aggregate has no qualifying rows.
type AggregationError struct{ msg string }

func NewAggregationError(msg string) *AggregationError { return &AggregationError{msg} }

func (e *AggregationError) Error() string { return e.msg }
func (e *AggregationError) Status() int   { return http.StatusUnprocessableEntity }

// ConflictError is returned when an insert reuses an existing primary key.
type ConflictError struct{ msg string }

func NewConflictError(msg string) *ConflictError { return &ConflictError{msg} }

func (e *ConflictError) Error() string { return e.msg }
func (e *ConflictError) Status() int   { return http.StatusConflict }

// StatusError is implemented by every error above.
type StatusError interface {
	error
	Status() int
}

// ErrorStatus maps err onto a response status, defaulting to 500.
func ErrorStatus(err error) int {
	var s StatusError
	if errors.As(err, &s) {
		return s.Status()
	}
	return http.StatusInternalServerError
}
