package domain

import (
	"strings"

	"github.com/personahub/chat-backend/internal/result"
)

// FiniteSet is a closed set of string-backed values with a typed parser.
type FiniteSet[T ~string] struct {
	field  string
	values []T
}

// NewFiniteSet declares the allowed values for a field.
func NewFiniteSet[T ~string](field string, values ...T) FiniteSet[T] {
	return FiniteSet[T]{field: field, values: values}
}

// Parse matches raw case-insensitively against the set. Unknown values fail
// as a validation error naming the field and the accepted values.
func (s FiniteSet[T]) Parse(raw string) result.Result[T] {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	for _, v := range s.values {
		if string(v) == norm {
			return result.Success(v)
		}
	}
	return result.Invalid[T](result.FieldError{
		Field:   s.field,
		Message: "must be one of " + s.joined(),
	})
}

// ParseAll parses a list, collecting every unknown entry.
func (s FiniteSet[T]) ParseAll(raws []string) result.Result[[]T] {
	out := make([]T, 0, len(raws))
	var bad []result.FieldError
	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		r := s.Parse(raw)
		if !r.IsSuccess() {
			bad = append(bad, result.FieldError{
				Field:   s.field,
				Message: "unknown value " + raw + "; must be one of " + s.joined(),
			})
			continue
		}
		out = append(out, r.Value())
	}
	if len(bad) > 0 {
		return result.Invalid[[]T](bad...)
	}
	return result.Success(out)
}

// Contains reports membership without normalisation.
func (s FiniteSet[T]) Contains(v T) bool {
	for _, candidate := range s.values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Values returns a copy of the allowed values.
func (s FiniteSet[T]) Values() []T {
	return append([]T(nil), s.values...)
}

func (s FiniteSet[T]) joined() string {
	parts := make([]string, len(s.values))
	for i, v := range s.values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
