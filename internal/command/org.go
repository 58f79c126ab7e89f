package command

import (
	"context"

	"github.com/nexusiam/core/internal/apperr"
	"github.com/nexusiam/core/internal/domain/org"
	"github.com/nexusiam/core/internal/eventlog"
)

// OrgCommands implements the §4.3 command engine for the org aggregate.
type OrgCommands struct {
	repo *eventlog.Repository[*org.Org]
}

// NewOrgCommands builds the command engine for the org aggregate backed by
// store.
func NewOrgCommands(store eventlog.Store) *OrgCommands {
	return &OrgCommands{repo: eventlog.NewRepository(store, org.EntityType, org.New)}
}

// AddOrg creates a new org scoped to instanceID.
func (c *OrgCommands) AddOrg(ctx context.Context, instanceID, name string) (*org.Org, ObjectDetails, error) {
	o := org.NewOrg(instanceID, name)
	return c.finish(ctx, o, "ORGv2-001", "ORGv2-002")
}

// ChangeName renames an org.
func (c *OrgCommands) ChangeName(ctx context.Context, orgID, name string) (ObjectDetails, error) {
	return c.mutate(ctx, orgID, func(o *org.Org) { o.ChangeName(name) })
}

// AddDomain claims a domain for the org.
func (c *OrgCommands) AddDomain(ctx context.Context, orgID, domainName string) (ObjectDetails, error) {
	return c.mutate(ctx, orgID, func(o *org.Org) { o.AddDomain(domainName) })
}

// SetPrimaryDomain marks domainName as the org's primary domain.
func (c *OrgCommands) SetPrimaryDomain(ctx context.Context, orgID, domainName string) (ObjectDetails, error) {
	return c.mutate(ctx, orgID, func(o *org.Org) { o.SetPrimaryDomain(domainName) })
}

// RemoveDomain releases a previously claimed domain.
func (c *OrgCommands) RemoveDomain(ctx context.Context, orgID, domainName string) (ObjectDetails, error) {
	return c.mutate(ctx, orgID, func(o *org.Org) { o.RemoveDomain(domainName) })
}

// Deactivate moves an active org to inactive.
func (c *OrgCommands) Deactivate(ctx context.Context, orgID string) (ObjectDetails, error) {
	return c.mutate(ctx, orgID, func(o *org.Org) { o.Deactivate() })
}

// Reactivate moves an inactive org back to active.
func (c *OrgCommands) Reactivate(ctx context.Context, orgID string) (ObjectDetails, error) {
	return c.mutate(ctx, orgID, func(o *org.Org) { o.Reactivate() })
}

// Remove terminally removes the org.
func (c *OrgCommands) Remove(ctx context.Context, orgID string) (ObjectDetails, error) {
	return c.mutate(ctx, orgID, func(o *org.Org) { o.Remove() })
}

// Get loads an org by ID for read access (not itself a command).
func (c *OrgCommands) Get(ctx context.Context, orgID string) (*org.Org, error) {
	return c.load(ctx, orgID)
}

func (c *OrgCommands) load(ctx context.Context, orgID string) (*org.Org, error) {
	o, err := c.repo.Load(ctx, orgID)
	if err != nil {
		return nil, mapStoreErr(err, "ORGv2-010")
	}
	return o, nil
}

func (c *OrgCommands) mutate(ctx context.Context, orgID string, apply func(*org.Org)) (ObjectDetails, error) {
	o, err := c.load(ctx, orgID)
	if err != nil {
		return ObjectDetails{}, err
	}
	apply(o)
	_, details, err := c.finish(ctx, o, "ORGv2-001", "ORGv2-002")
	return details, err
}

// finish rejects invalid state transitions, treats an empty delta as an
// idempotent no-op, otherwise pushes and returns ObjectDetails from the
// newly pushed event.
func (c *OrgCommands) finish(ctx context.Context, o *org.Org, validationID, saveID string) (*org.Org, ObjectDetails, error) {
	if !o.IsValid() {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, validationID, "org precondition failed", firstError(o.Errors()))
	}

	pending := o.UncommittedEvents()
	if len(pending) == 0 {
		return o, ObjectDetails{
			Sequence:      int64(o.Version()),
			ResourceOwner: o.ID(),
		}, nil
	}

	if err := c.repo.Save(ctx, o); err != nil {
		return nil, ObjectDetails{}, mapStoreErr(err, saveID)
	}

	return o, detailsFromEvent(pending[len(pending)-1]), nil
}
