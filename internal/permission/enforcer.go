// Package permission wires casbin/casbin/v3 into an RBAC/ABAC enforcer for
// the command engine's PermissionMiddleware (pkg/application), keyed on
// (subject, resource, action, scope) the way spec.md's Testable Property 4
// requires: permission precedes mutation.
package permission

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

// DefaultModelConf is the RBAC/ABAC request/matcher definition the IAM
// enforcer loads when no model file is configured: a (sub, obj, act, scope)
// request checked against identical policy rules, with a wildcard scope
// granting access across every org/instance (used for instance-level
// superadmin policies).
const DefaultModelConf = `
[request_definition]
r = sub, obj, act, scope

[policy_definition]
p = sub, obj, act, scope

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act && (r.scope == p.scope || p.scope == "*")
`

// CasbinEnforcer adapts *casbin.Enforcer to the narrow interface
// pkg/application.PermissionMiddleware depends on, so the middleware
// itself stays casbin-agnostic and testable with a fake.
type CasbinEnforcer struct {
	enforcer *casbin.Enforcer
}

// NewCasbinEnforcer loads an RBAC/ABAC model and policy from modelPath and
// policyPath (an in-memory or file-backed CSV adapter, per casbin's usual
// convention) and returns an enforcer ready for Enforce calls.
func NewCasbinEnforcer(modelPath, policyPath string) (*CasbinEnforcer, error) {
	enforcer, err := casbin.NewEnforcer(modelPath, policyPath)
	if err != nil {
		return nil, fmt.Errorf("permission: load enforcer: %w", err)
	}
	return &CasbinEnforcer{enforcer: enforcer}, nil
}

// NewInMemoryCasbinEnforcer loads DefaultModelConf with no policy adapter,
// for tests and small deployments that manage policies entirely through
// AddPolicy rather than a CSV/database-backed adapter.
func NewInMemoryCasbinEnforcer() (*CasbinEnforcer, error) {
	m, err := model.NewModelFromString(DefaultModelConf)
	if err != nil {
		return nil, fmt.Errorf("permission: parse default model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("permission: load enforcer: %w", err)
	}
	return &CasbinEnforcer{enforcer: enforcer}, nil
}

// Enforce checks whether subject may perform action on resource within
// scope (an org or instance ID), matching the RBAC/ABAC model's
// (sub, obj, act, scope) request shape.
func (e *CasbinEnforcer) Enforce(ctx context.Context, subject, resource, action, scope string) (bool, error) {
	ok, err := e.enforcer.Enforce(subject, resource, action, scope)
	if err != nil {
		return false, fmt.Errorf("permission: enforce %s/%s/%s/%s: %w", subject, resource, action, scope, err)
	}
	return ok, nil
}

// AddPolicy grants subject the right to perform action on resource within
// scope, for bootstrapping test/dev policies without a policy CSV file.
func (e *CasbinEnforcer) AddPolicy(subject, resource, action, scope string) (bool, error) {
	return e.enforcer.AddPolicy(subject, resource, action, scope)
}
