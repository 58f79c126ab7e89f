package command

import (
	"context"
	"errors"

	"github.com/nexusiam/core/internal/apperr"
	"github.com/nexusiam/core/internal/domain/policy"
	"github.com/nexusiam/core/internal/eventlog"
)

// PolicyCommands implements the §4.6 command engine for the policy
// aggregate: one instance default plus, optionally, one org override per
// (instanceID|orgID, Kind).
type PolicyCommands struct {
	repo *eventlog.Repository[*policy.Policy]
}

// NewPolicyCommands builds the command engine for the policy aggregate
// backed by store.
func NewPolicyCommands(store eventlog.Store) *PolicyCommands {
	return &PolicyCommands{repo: eventlog.NewRepository(store, policy.EntityType, policy.New)}
}

// SetInstanceDefault creates or replaces the instance-wide default for kind.
func (c *PolicyCommands) SetInstanceDefault(ctx context.Context, instanceID string, kind policy.Kind, settings map[string]interface{}) (ObjectDetails, error) {
	existing, err := c.loadOptional(ctx, policy.InstanceDefaultID(instanceID, kind))
	if err != nil {
		return ObjectDetails{}, err
	}
	if existing == nil {
		p := policy.NewInstanceDefault(instanceID, kind, settings)
		_, details, err := c.finish(ctx, p, "POLICYv2-001", "POLICYv2-002")
		return details, err
	}
	existing.UpdateSettings(settings)
	_, details, err := c.finish(ctx, existing, "POLICYv2-001", "POLICYv2-002")
	return details, err
}

// SetOrgOverride creates or replaces orgID's override for kind.
func (c *PolicyCommands) SetOrgOverride(ctx context.Context, instanceID, orgID string, kind policy.Kind, settings map[string]interface{}) (ObjectDetails, error) {
	existing, err := c.loadOptional(ctx, policy.OrgOverrideID(orgID, kind))
	if err != nil {
		return ObjectDetails{}, err
	}
	if existing == nil || existing.Removed {
		p := policy.NewOrgOverride(instanceID, orgID, kind, settings)
		_, details, err := c.finish(ctx, p, "POLICYv2-001", "POLICYv2-002")
		return details, err
	}
	existing.UpdateSettings(settings)
	_, details, err := c.finish(ctx, existing, "POLICYv2-001", "POLICYv2-002")
	return details, err
}

// RemoveOrgOverride deletes orgID's override for kind, so the instance
// default applies again on the next Resolve.
func (c *PolicyCommands) RemoveOrgOverride(ctx context.Context, orgID string, kind policy.Kind) (ObjectDetails, error) {
	return c.mutate(ctx, policy.OrgOverrideID(orgID, kind), func(p *policy.Policy) { p.Remove() })
}

// Resolve returns the effective settings for (instanceID, orgID, kind),
// applying the org-shadows-instance-default rule.
func (c *PolicyCommands) Resolve(ctx context.Context, instanceID, orgID string, kind policy.Kind) (map[string]interface{}, error) {
	instanceDefault, err := c.loadOptional(ctx, policy.InstanceDefaultID(instanceID, kind))
	if err != nil {
		return nil, err
	}
	var orgOverride *policy.Policy
	if orgID != "" {
		orgOverride, err = c.loadOptional(ctx, policy.OrgOverrideID(orgID, kind))
		if err != nil {
			return nil, err
		}
	}
	return policy.Resolve(instanceDefault, orgOverride), nil
}

func (c *PolicyCommands) loadOptional(ctx context.Context, id string) (*policy.Policy, error) {
	p, err := c.repo.Load(ctx, id)
	if err != nil {
		if errors.Is(err, eventlog.ErrNotFound) {
			return nil, nil
		}
		return nil, mapStoreErr(err, "POLICYv2-010")
	}
	return p, nil
}

func (c *PolicyCommands) mutate(ctx context.Context, id string, apply func(*policy.Policy)) (ObjectDetails, error) {
	p, err := c.loadOptional(ctx, id)
	if err != nil {
		return ObjectDetails{}, err
	}
	if p == nil {
		return ObjectDetails{}, apperr.New(apperr.NotFound, "POLICYv2-011", "policy not found")
	}
	apply(p)
	_, details, err := c.finish(ctx, p, "POLICYv2-001", "POLICYv2-002")
	return details, err
}

func (c *PolicyCommands) finish(ctx context.Context, p *policy.Policy, validationID, saveID string) (*policy.Policy, ObjectDetails, error) {
	if !p.IsValid() {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, validationID, "policy precondition failed", firstError(p.Errors()))
	}

	pending := p.UncommittedEvents()
	if len(pending) == 0 {
		return p, ObjectDetails{
			Sequence:      int64(p.Version()),
			ResourceOwner: p.OrgID,
		}, nil
	}

	if err := c.repo.Save(ctx, p); err != nil {
		return nil, ObjectDetails{}, mapStoreErr(err, saveID)
	}

	return p, detailsFromEvent(pending[len(pending)-1]), nil
}
