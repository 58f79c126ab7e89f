package command

import (
	"context"

	"github.com/nexusiam/core/internal/apperr"
	"github.com/nexusiam/core/internal/domain/project"
	"github.com/nexusiam/core/internal/eventlog"
)

// ProjectCommands implements the §4.3 command engine for the project
// aggregate.
type ProjectCommands struct {
	repo *eventlog.Repository[*project.Project]
}

// NewProjectCommands builds the command engine for the project aggregate
// backed by store.
func NewProjectCommands(store eventlog.Store) *ProjectCommands {
	return &ProjectCommands{repo: eventlog.NewRepository(store, project.EntityType, project.New)}
}

// AddProject creates a new project scoped to orgID.
func (c *ProjectCommands) AddProject(ctx context.Context, instanceID, orgID, name string) (*project.Project, ObjectDetails, error) {
	p := project.NewProject(instanceID, orgID, name)
	return c.finish(ctx, p, "PROJECTv2-001", "PROJECTv2-002")
}

// ChangeName renames a project.
func (c *ProjectCommands) ChangeName(ctx context.Context, projectID, name string) (ObjectDetails, error) {
	return c.mutate(ctx, projectID, func(p *project.Project) { p.ChangeName(name) })
}

// SetRoleAssertion toggles project role assertion into tokens.
func (c *ProjectCommands) SetRoleAssertion(ctx context.Context, projectID string, enabled bool) (ObjectDetails, error) {
	return c.mutate(ctx, projectID, func(p *project.Project) { p.SetRoleAssertion(enabled) })
}

// SetRoleCheck toggles the project role-membership check.
func (c *ProjectCommands) SetRoleCheck(ctx context.Context, projectID string, enabled bool) (ObjectDetails, error) {
	return c.mutate(ctx, projectID, func(p *project.Project) { p.SetRoleCheck(enabled) })
}

// SetHasProjectCheck toggles the project-grant check.
func (c *ProjectCommands) SetHasProjectCheck(ctx context.Context, projectID string, enabled bool) (ObjectDetails, error) {
	return c.mutate(ctx, projectID, func(p *project.Project) { p.SetHasProjectCheck(enabled) })
}

// SetPrivateLabeling changes which branding policy the project enforces.
func (c *ProjectCommands) SetPrivateLabeling(ctx context.Context, projectID string, setting project.PrivateLabelingSetting) (ObjectDetails, error) {
	return c.mutate(ctx, projectID, func(p *project.Project) { p.SetPrivateLabeling(setting) })
}

// AddApplication attaches a new OIDC or API application to the project.
func (c *ProjectCommands) AddApplication(ctx context.Context, projectID string, appType project.AppType, name string) (ObjectDetails, error) {
	return c.mutate(ctx, projectID, func(p *project.Project) { p.AddApplication(appType, name) })
}

// RegisterClient implements registerClient (RFC 7591 Dynamic Client
// Registration) against the project's application list.
func (c *ProjectCommands) RegisterClient(ctx context.Context, projectID string, meta project.ClientMetadata) (ObjectDetails, error) {
	return c.mutate(ctx, projectID, func(p *project.Project) { p.RegisterClient(meta) })
}

// RemoveApplication detaches a child application by ID.
func (c *ProjectCommands) RemoveApplication(ctx context.Context, projectID, appID string) (ObjectDetails, error) {
	return c.mutate(ctx, projectID, func(p *project.Project) { p.RemoveApplication(appID) })
}

// Deactivate moves an active project to inactive.
func (c *ProjectCommands) Deactivate(ctx context.Context, projectID string) (ObjectDetails, error) {
	return c.mutate(ctx, projectID, func(p *project.Project) { p.Deactivate() })
}

// Reactivate moves an inactive project back to active.
func (c *ProjectCommands) Reactivate(ctx context.Context, projectID string) (ObjectDetails, error) {
	return c.mutate(ctx, projectID, func(p *project.Project) { p.Reactivate() })
}

// Remove terminally removes the project.
func (c *ProjectCommands) Remove(ctx context.Context, projectID string) (ObjectDetails, error) {
	return c.mutate(ctx, projectID, func(p *project.Project) { p.Remove() })
}

// Get loads a project by ID for read access (not itself a command).
func (c *ProjectCommands) Get(ctx context.Context, projectID string) (*project.Project, error) {
	return c.load(ctx, projectID)
}

func (c *ProjectCommands) load(ctx context.Context, projectID string) (*project.Project, error) {
	p, err := c.repo.Load(ctx, projectID)
	if err != nil {
		return nil, mapStoreErr(err, "PROJECTv2-010")
	}
	return p, nil
}

func (c *ProjectCommands) mutate(ctx context.Context, projectID string, apply func(*project.Project)) (ObjectDetails, error) {
	p, err := c.load(ctx, projectID)
	if err != nil {
		return ObjectDetails{}, err
	}
	apply(p)
	_, details, err := c.finish(ctx, p, "PROJECTv2-001", "PROJECTv2-002")
	return details, err
}

func (c *ProjectCommands) finish(ctx context.Context, p *project.Project, validationID, saveID string) (*project.Project, ObjectDetails, error) {
	if !p.IsValid() {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, validationID, "project precondition failed", firstError(p.Errors()))
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
