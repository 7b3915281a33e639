package dispatch

import (
	"context"
	"reflect"

	"github.com/personahub/chat-backend/internal/auth"
	"github.com/personahub/chat-backend/internal/result"
)

// Call is one dispatch as seen by the behaviors.
type Call struct {
	Name      string
	Request   Request
	Principal auth.Principal

	route *route
}

// Next continues the chain. It must be called at most once.
type Next func(ctx context.Context) (result.Outcome, error)

// Behavior wraps every handler invocation. It may return early with a
// failure, or call next and inspect what comes back.
type Behavior interface {
	Handle(ctx context.Context, call *Call, next Next) (result.Outcome, error)
}

// BehaviorFunc adapts a function to Behavior.
type BehaviorFunc func(ctx context.Context, call *Call, next Next) (result.Outcome, error)

func (f BehaviorFunc) Handle(ctx context.Context, call *Call, next Next) (result.Outcome, error) {
	return f(ctx, call, next)
}

// Option adjusts a single registration.
type Option struct {
	target reflect.Type
	apply  func(*route)
}

// SelfValidator is implemented by requests that check rules a struct tag
// cannot express. Its field errors are merged with the tag errors.
type SelfValidator interface {
	Validate() []result.FieldError
}

// Rule is an extra validation rule for Req.
type Rule[Req Request] func(req Req) []result.FieldError

// WithRules attaches validation rules to a registration.
func WithRules[Req Request](rules ...Rule[Req]) Option {
	return Option{
		target: reflect.TypeOf((*Req)(nil)).Elem(),
		apply: func(rt *route) {
			for _, rule := range rules {
				rule := rule // per-iteration copy; go.mod targets pre-1.22 loop semantics
				rt.rules = append(rt.rules, func(req Request) []result.FieldError {
					return rule(req.(Req))
				})
			}
		},
	}
}
