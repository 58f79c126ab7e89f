package command

import (
	"context"

	"github.com/nexusiam/core/internal/apperr"
	"github.com/nexusiam/core/internal/domain/idp"
	"github.com/nexusiam/core/internal/eventlog"
)

// IDPCommands implements the §4.3 command engine for the IDP config
// aggregate.
type IDPCommands struct {
	repo *eventlog.Repository[*idp.IDPConfig]
}

// NewIDPCommands builds the command engine for the IDP config aggregate
// backed by store.
func NewIDPCommands(store eventlog.Store) *IDPCommands {
	return &IDPCommands{repo: eventlog.NewRepository(store, idp.EntityType, idp.New)}
}

// AddIDPConfig creates a new IDP configuration. orgID is empty for an
// instance-wide IDP.
func (c *IDPCommands) AddIDPConfig(ctx context.Context, instanceID, orgID string, typ idp.Type, name string, config idp.Config) (*idp.IDPConfig, ObjectDetails, error) {
	cfg := idp.NewIDPConfig(instanceID, orgID, typ, name, config)
	return c.finish(ctx, cfg, "IDPv2-001", "IDPv2-002")
}

// ChangeName renames an IDP config.
func (c *IDPCommands) ChangeName(ctx context.Context, idpID, name string) (ObjectDetails, error) {
	return c.mutate(ctx, idpID, func(cfg *idp.IDPConfig) { cfg.ChangeName(name) })
}

// UpdateConfig merges new keys into the IDP config.
func (c *IDPCommands) UpdateConfig(ctx context.Context, idpID string, updates idp.Config) (ObjectDetails, error) {
	return c.mutate(ctx, idpID, func(cfg *idp.IDPConfig) { cfg.UpdateConfig(updates) })
}

// Deactivate moves an active config to inactive.
func (c *IDPCommands) Deactivate(ctx context.Context, idpID string) (ObjectDetails, error) {
	return c.mutate(ctx, idpID, func(cfg *idp.IDPConfig) { cfg.Deactivate() })
}

// Reactivate moves an inactive config back to active.
func (c *IDPCommands) Reactivate(ctx context.Context, idpID string) (ObjectDetails, error) {
	return c.mutate(ctx, idpID, func(cfg *idp.IDPConfig) { cfg.Reactivate() })
}

// Remove terminally removes the config.
func (c *IDPCommands) Remove(ctx context.Context, idpID string) (ObjectDetails, error) {
	return c.mutate(ctx, idpID, func(cfg *idp.IDPConfig) { cfg.Remove() })
}

// Get loads an IDP config by ID for read access (not itself a command).
func (c *IDPCommands) Get(ctx context.Context, idpID string) (*idp.IDPConfig, error) {
	return c.load(ctx, idpID)
}

func (c *IDPCommands) load(ctx context.Context, idpID string) (*idp.IDPConfig, error) {
	cfg, err := c.repo.Load(ctx, idpID)
	if err != nil {
		return nil, mapStoreErr(err, "IDPv2-010")
	}
	return cfg, nil
}

func (c *IDPCommands) mutate(ctx context.Context, idpID string, apply func(*idp.IDPConfig)) (ObjectDetails, error) {
	cfg, err := c.load(ctx, idpID)
	if err != nil {
		return ObjectDetails{}, err
	}
	apply(cfg)
	_, details, err := c.finish(ctx, cfg, "IDPv2-001", "IDPv2-002")
	return details, err
}

func (c *IDPCommands) finish(ctx context.Context, cfg *idp.IDPConfig, validationID, saveID string) (*idp.IDPConfig, ObjectDetails, error) {
	if !cfg.IsValid() {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, validationID, "idp config precondition failed", firstError(cfg.Errors()))
	}

	pending := cfg.UncommittedEvents()
	if len(pending) == 0 {
		return cfg, ObjectDetails{
			Sequence:      int64(cfg.Version()),
			ResourceOwner: cfg.OrgID,
		}, nil
	}

	if err := c.repo.Save(ctx, cfg); err != nil {
		return nil, ObjectDetails{}, mapStoreErr(err, saveID)
	}

	return cfg, detailsFromEvent(pending[len(pending)-1]), nil
}
