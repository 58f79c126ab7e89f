package application

import (
	"context"
	"fmt"

	"github.com/nexusiam/core/pkg/domain"
)

// PermissionEnforcer is the narrow interface PermissionMiddleware depends
// on, satisfied by internal/permission.CasbinEnforcer. Kept separate from
// that concrete type so this package stays casbin-agnostic and testable
// with a fake.
type PermissionEnforcer interface {
	Enforce(ctx context.Context, subject, resource, action, scope string) (bool, error)
}

// PermissionSubject is the optional interface a Command or Query
// implements to participate in permission checks. Requests that don't
// implement it skip the check entirely, the same fast path
// ValidationMiddleware takes for requests that aren't a Validator.
type PermissionSubject interface {
	// PermissionCheck returns the (resource, action, scope) to enforce
	// against the request's UserID as subject. scope is an org or instance
	// ID; resource/action name what is being done (e.g. "user", "create").
	PermissionCheck() (resource, action, scope string)
}

// PermissionMiddleware creates unified middleware that consults enforcer
// before the next handler runs, satisfying spec.md's Testable Property 4:
// permission precedes mutation. It is not part of ApplicationModule's
// middleware groups (pkg/application/fx.go): a request is checked only
// when this middleware is in the list its handler was registered with.
func PermissionMiddleware[Req any, Res any](enforcer PermissionEnforcer) Middleware[Req, Res] {
	return func(next Handler[Req, Res]) Handler[Req, Res] {
		return func(ctx context.Context, log domain.Logger, p Payload[Req]) (Response[Res], error) {
			subject, needsPermission := any(p.Data).(PermissionSubject)
			if !needsPermission {
				return next(ctx, log, p)
			}

			resource, action, scope := subject.PermissionCheck()
			allowed, err := enforcer.Enforce(ctx, p.UserID, resource, action, scope)
			if err != nil {
				log.Error("Permission check failed",
					"resource", resource,
					"action", action,
					"scope", scope,
					"userId", p.UserID,
					"error", err,
					"traceId", p.TraceID)
				appErr := NewApplicationError("PERMISSION_CHECK_FAILED", "permission check failed", err)
				var zero Res
				return Response[Res]{Data: zero, Error: appErr}, appErr
			}
			if !allowed {
				log.Warn("Permission denied",
					"resource", resource,
					"action", action,
					"scope", scope,
					"userId", p.UserID,
					"traceId", p.TraceID)
				appErr := NewApplicationError("PERMISSION_DENIED",
					fmt.Sprintf("user %s may not %s %s in scope %s", p.UserID, action, resource, scope), nil)
				var zero Res
				return Response[Res]{Data: zero, Error: appErr}, appErr
			}

			return next(ctx, log, p)
		}
	}
}
