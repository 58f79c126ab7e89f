package command

import (
	"context"

	"github.com/nexusiam/core/internal/apperr"
	"github.com/nexusiam/core/internal/domain/instance"
	"github.com/nexusiam/core/internal/eventlog"
)

// InstanceCommands implements the §4.3 command engine for the instance
// aggregate.
type InstanceCommands struct {
	repo *eventlog.Repository[*instance.Instance]
}

// NewInstanceCommands builds the command engine for the instance aggregate
// backed by store.
func NewInstanceCommands(store eventlog.Store) *InstanceCommands {
	return &InstanceCommands{repo: eventlog.NewRepository(store, instance.EntityType, instance.New)}
}

// AddInstance creates a new instance.
func (c *InstanceCommands) AddInstance(ctx context.Context, name, defaultLanguage string) (*instance.Instance, ObjectDetails, error) {
	i := instance.NewInstance(name, defaultLanguage)
	return c.finish(ctx, i, "INSTANCEv2-001", "INSTANCEv2-002")
}

// SetDefaultOrg designates orgID as the instance's default org.
func (c *InstanceCommands) SetDefaultOrg(ctx context.Context, instanceID, orgID string) (ObjectDetails, error) {
	return c.mutate(ctx, instanceID, func(i *instance.Instance) { i.SetDefaultOrg(orgID) })
}

// SetDefaultLanguage changes the instance-wide default language.
func (c *InstanceCommands) SetDefaultLanguage(ctx context.Context, instanceID, lang string) (ObjectDetails, error) {
	return c.mutate(ctx, instanceID, func(i *instance.Instance) { i.SetDefaultLanguage(lang) })
}

// AddDomain claims a domain at the instance level.
func (c *InstanceCommands) AddDomain(ctx context.Context, instanceID, domainName string) (ObjectDetails, error) {
	return c.mutate(ctx, instanceID, func(i *instance.Instance) { i.AddDomain(domainName) })
}

// RemoveDomain releases a previously claimed instance-level domain.
func (c *InstanceCommands) RemoveDomain(ctx context.Context, instanceID, domainName string) (ObjectDetails, error) {
	return c.mutate(ctx, instanceID, func(i *instance.Instance) { i.RemoveDomain(domainName) })
}

// AddTrustedDomain marks a domain as allowed for cross-origin redirects.
func (c *InstanceCommands) AddTrustedDomain(ctx context.Context, instanceID, domainName string) (ObjectDetails, error) {
	return c.mutate(ctx, instanceID, func(i *instance.Instance) { i.AddTrustedDomain(domainName) })
}

// RemoveTrustedDomain revokes a previously trusted domain.
func (c *InstanceCommands) RemoveTrustedDomain(ctx context.Context, instanceID, domainName string) (ObjectDetails, error) {
	return c.mutate(ctx, instanceID, func(i *instance.Instance) { i.RemoveTrustedDomain(domainName) })
}

// SetFeature flips an instance-wide feature flag.
func (c *InstanceCommands) SetFeature(ctx context.Context, instanceID, key string, enabled bool) (ObjectDetails, error) {
	return c.mutate(ctx, instanceID, func(i *instance.Instance) { i.SetFeature(key, enabled) })
}

// Remove terminally removes the instance.
func (c *InstanceCommands) Remove(ctx context.Context, instanceID string) (ObjectDetails, error) {
	return c.mutate(ctx, instanceID, func(i *instance.Instance) { i.Remove() })
}

// Get loads an instance by ID for read access (not itself a command).
func (c *InstanceCommands) Get(ctx context.Context, instanceID string) (*instance.Instance, error) {
	return c.load(ctx, instanceID)
}

func (c *InstanceCommands) load(ctx context.Context, instanceID string) (*instance.Instance, error) {
	i, err := c.repo.Load(ctx, instanceID)
	if err != nil {
		return nil, mapStoreErr(err, "INSTANCEv2-010")
	}
	return i, nil
}

func (c *InstanceCommands) mutate(ctx context.Context, instanceID string, apply func(*instance.Instance)) (ObjectDetails, error) {
	i, err := c.load(ctx, instanceID)
	if err != nil {
		return ObjectDetails{}, err
	}
	apply(i)
	_, details, err := c.finish(ctx, i, "INSTANCEv2-001", "INSTANCEv2-002")
	return details, err
}

func (c *InstanceCommands) finish(ctx context.Context, i *instance.Instance, validationID, saveID string) (*instance.Instance, ObjectDetails, error) {
	if !i.IsValid() {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, validationID, "instance precondition failed", firstError(i.Errors()))
	}

	pending := i.UncommittedEvents()
	if len(pending) == 0 {
		return i, ObjectDetails{
			Sequence:      int64(i.Version()),
			ResourceOwner: i.ID(),
		}, nil
	}

	if err := c.repo.Save(ctx, i); err != nil {
		return nil, ObjectDetails{}, mapStoreErr(err, saveID)
	}

	return i, detailsFromEvent(pending[len(pending)-1]), nil
}
