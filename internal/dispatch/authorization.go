package dispatch

import (
	"context"
	"reflect"

	"github.com/personahub/chat-backend/internal/result"
)

// Policy is the declarative access rule of one request type.
//
// Checks run in order: authentication, active account, admin role,
// ownership. The first failing check decides the result.
type Policy[Req Request] struct {
	// Authenticated requires a resolved principal.
	Authenticated bool
	// AllowSuspended lets a principal whose account is suspended through.
	AllowSuspended bool
	// AdminOnly rejects every non-admin principal.
	AdminOnly bool
	// Owner resolves the owner id of the targeted resource. A failed
	// result (typically NotFound) is returned as is.
	Owner func(ctx context.Context, req Req) (result.Result[string], error)
	// AdminOverride lets admins act on resources they do not own.
	AdminOverride bool
	// Resource names the target in the Forbidden message.
	Resource string
}

type policy struct {
	authenticated  bool
	allowSuspended bool
	adminOnly      bool
	adminOverride  bool
	resource       string
	owner          func(ctx context.Context, req Request) (result.Result[string], error)
}

// WithPolicy attaches p to a registration. AdminOnly and Owner imply
// Authenticated.
func WithPolicy[Req Request](p Policy[Req]) Option {
	return Option{
		target: reflect.TypeOf((*Req)(nil)).Elem(),
		apply: func(rt *route) {
			rt.policy = policy{
				authenticated:  p.Authenticated || p.AdminOnly || p.Owner != nil,
				allowSuspended: p.AllowSuspended,
				adminOnly:      p.AdminOnly,
				adminOverride:  p.AdminOverride,
				resource:       p.Resource,
			}
			if p.Owner != nil {
				owner := p.Owner
				rt.policy.owner = func(ctx context.Context, req Request) (result.Result[string], error) {
					return owner(ctx, req.(Req))
				}
			}
		},
	}
}

// Anonymous lets unauthenticated callers through.
func Anonymous() Option {
	return Option{apply: func(rt *route) { rt.policy = policy{} }}
}

// Authenticated requires any active principal. It is the default.
func Authenticated() Option {
	return Option{apply: func(rt *route) { rt.policy = policy{authenticated: true} }}
}

// AdminOnly requires an active admin principal.
func AdminOnly() Option {
	return Option{apply: func(rt *route) { rt.policy = policy{authenticated: true, adminOnly: true} }}
}

type authorization struct{}

func (authorization) Handle(ctx context.Context, call *Call, next Next) (result.Outcome, error) {
	pol := call.route.policy
	if !pol.authenticated {
		return next(ctx)
	}

	p := call.Principal
	if !p.HasID() {
		return result.Unauthenticated[result.Void]("authentication required"), nil
	}
	if p.Suspended && !pol.allowSuspended {
		return result.Forbidden[result.Void]("account is suspended"), nil
	}
	if pol.adminOnly && !p.IsAdmin {
		return result.Forbidden[result.Void]("admin privileges required"), nil
	}
	if pol.owner != nil && !(pol.adminOverride && p.IsAdmin) {
		owner, err := pol.owner(ctx, call.Request)
		if err != nil {
			return nil, err
		}
		if !owner.IsSuccess() {
			return owner, nil
		}
		if !p.Owns(owner.Value()) {
			resource := pol.resource
			if resource == "" {
				resource = "resource"
			}
			return result.Forbidden[result.Void]("you do not have access to this " + resource), nil
		}
	}
	return next(ctx)
}
