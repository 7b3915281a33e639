package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/personahub/chat-backend/internal/result"
)

// NewValidator returns a validator that reports fields by their json name.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validation is the outermost behavior. Every tag and rule is evaluated;
// any failure ends the call before the handler runs.
type validation struct {
	validate *validator.Validate
}

func (b validation) Handle(ctx context.Context, call *Call, next Next) (result.Outcome, error) {
	fields, err := structFields(b.validate, call.Request)
	if err != nil {
		return nil, err
	}
	for _, rule := range call.route.rules {
		fields = append(fields, rule(call.Request)...)
	}
	if len(fields) > 0 {
		return result.ValidationFailure(fields...), nil
	}
	return next(ctx)
}

func structFields(v *validator.Validate, req Request) ([]result.FieldError, error) {
	val := reflect.ValueOf(req)
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return []result.FieldError{{Field: "request", Message: "is required"}}, nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, nil
	}

	err := v.Struct(req)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("validate %s: %w", req.RequestName(), err)
	}
	out := make([]result.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, result.FieldError{Field: fieldPath(fe), Message: fieldMessage(fe)})
	}
	return out, nil
}

// fieldPath drops the leading struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required", "required_if", "required_with", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "url", "http_url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "min":
		if text {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if text {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "notblank":
		return "must not be blank"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
