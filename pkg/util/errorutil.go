package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/personahub/chat-backend/internal/result"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHENTICATED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewTooManyRequests(message string) error {
	return NewDomainError("RATE_LIMITED", message, http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// codes maps each result status class onto its transport code and status.
var codes = map[result.Status]struct {
	code string
	http int
}{
	result.StatusValidationFailed: {"VALIDATION_FAILED", http.StatusBadRequest},
	result.StatusUnauthenticated:  {"UNAUTHENTICATED", http.StatusUnauthorized},
	result.StatusForbidden:        {"FORBIDDEN", http.StatusForbidden},
	result.StatusNotFound:         {"NOT_FOUND", http.StatusNotFound},
	result.StatusConflict:         {"CONFLICT", http.StatusConflict},
	result.StatusInternal:         {"INTERNAL_ERROR", http.StatusInternalServerError},
}

// FromFailure converts a failed Result into the transport error shape.
// Field errors become details keyed by field name.
func FromFailure(f *result.Failure) *DomainError {
	if f == nil {
		return nil
	}
	mapped, ok := codes[f.Status]
	if !ok {
		mapped = codes[result.StatusInternal]
	}
	de := NewDomainError(mapped.code, f.Message, mapped.http, nil)
	if len(f.Fields) > 0 {
		fields := make(map[string]any, len(f.Fields))
		for _, fe := range f.Fields {
			if prev, dup := fields[fe.Field]; dup {
				fields[fe.Field] = fmt.Sprintf("%v; %s", prev, fe.Message)
				continue
			}
			fields[fe.Field] = fe.Message
		}
		de.Details = map[string]any{"fields": fields}
	}
	return de
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var failure *result.Failure
	if errors.As(err, &failure) {
		return FromFailure(failure)
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return NewDomainError("NOT_FOUND", fiberErr.Message, fiberErr.Code, nil)
		case fiber.StatusMethodNotAllowed:
			return NewDomainError("METHOD_NOT_ALLOWED", fiberErr.Message, fiberErr.Code, nil)
		case fiber.StatusRequestEntityTooLarge:
			return NewDomainError("PAYLOAD_TOO_LARGE", fiberErr.Message, fiberErr.Code, nil)
		}
		if fiberErr.Code >= 400 && fiberErr.Code < 500 {
			return NewDomainError("BAD_REQUEST", fiberErr.Message, fiberErr.Code, nil)
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
