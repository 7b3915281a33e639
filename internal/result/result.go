package result

import (
	"fmt"
	"strings"
)

// Status classifies the outcome of an operation. The values mirror the
// familiar 4xx/5xx classes but carry no transport meaning here.
type Status int

const (
	StatusOK               Status = 200
	StatusValidationFailed Status = 400
	StatusUnauthenticated  Status = 401
	StatusForbidden        Status = 403
	StatusNotFound         Status = 404
	StatusConflict         Status = 409
	StatusInternal         Status = 500
)

// String returns a readable name for logs and metric labels.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusValidationFailed:
		return "validation_failed"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusForbidden:
		return "forbidden"
	case StatusNotFound:
		return "not_found"
	case StatusConflict:
		return "conflict"
	case StatusInternal:
		return "internal"
	default:
		return fmt.Sprintf("status_%d", int(s))
	}
}

// FieldError names one failing input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Failure is the terminal description of an unsuccessful operation.
type Failure struct {
	Status  Status
	Message string
	Fields  []FieldError
}

// Error lets a Failure travel through error-typed plumbing when needed.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Status, f.Message)
}

// Problem satisfies the Outcome interface so a bare failure can flow
// through the behavior chain.
func (f *Failure) Problem() *Failure {
	return f
}

// Outcome is the type-erased view of a Result.
type Outcome interface {
	Problem() *Failure
}

// Result is either a success carrying a value or a Failure. The zero value
// is a success with the zero T.
type Result[T any] struct {
	value   T
	failure *Failure
}

// Void is the payload of operations that return nothing.
type Void struct{}

// Success wraps a value.
func Success[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Ok is the success of a payload-less operation.
func Ok() Result[Void] {
	return Result[Void]{}
}

// Fail builds a failure with the given status class.
func Fail[T any](status Status, message string) Result[T] {
	return Result[T]{failure: &Failure{Status: status, Message: message}}
}

// FromFailure re-types an existing failure.
func FromFailure[T any](f *Failure) Result[T] {
	if f == nil {
		return Fail[T](StatusInternal, "missing failure")
	}
	cp := *f
	if len(f.Fields) > 0 {
		cp.Fields = append([]FieldError(nil), f.Fields...)
	}
	return Result[T]{failure: &cp}
}

// Invalid aggregates field errors into a single validation failure.
func Invalid[T any](fields ...FieldError) Result[T] {
	return Result[T]{failure: ValidationFailure(fields...)}
}

// ValidationFailure builds the failure used for rejected input.
func ValidationFailure(fields ...FieldError) *Failure {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	msg := "validation failed"
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, "; ")
	}
	return &Failure{
		Status:  StatusValidationFailed,
		Message: msg,
		Fields:  append([]FieldError(nil), fields...),
	}
}

func Unauthenticated[T any](message string) Result[T] {
	return Fail[T](StatusUnauthenticated, message)
}

func Forbidden[T any](message string) Result[T] {
	return Fail[T](StatusForbidden, message)
}

func NotFound[T any](resource string) Result[T] {
	return Fail[T](StatusNotFound, resource+" not found")
}

func Conflict[T any](message string) Result[T] {
	return Fail[T](StatusConflict, message)
}

func Internal[T any](message string) Result[T] {
	return Fail[T](StatusInternal, message)
}

// IsSuccess reports whether the result carries a value.
func (r Result[T]) IsSuccess() bool {
	return r.failure == nil
}

// Value returns the payload; it is the zero T on failure.
func (r Result[T]) Value() T {
	return r.value
}

// Problem returns the failure, or nil on success.
func (r Result[T]) Problem() *Failure {
	return r.failure
}

// Status returns StatusOK on success, otherwise the failure class.
func (r Result[T]) Status() Status {
	if r.failure == nil {
		return StatusOK
	}
	return r.failure.Status
}

// Message returns the failure message, or "" on success.
func (r Result[T]) Message() string {
	if r.failure == nil {
		return ""
	}
	return r.failure.Message
}

// Map transforms the payload of a successful result.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.failure != nil {
		return Result[U]{failure: r.failure}
	}
	return Success(fn(r.value))
}
