package command

import (
	"context"
	"time"

	"github.com/nexusiam/core/internal/apperr"
	"github.com/nexusiam/core/internal/ddstore"
	"github.com/nexusiam/core/internal/domain/webhook"
	esdomain "github.com/nexusiam/core/pkg/eventsourcing/domain"
)

// WebhookCommands implements the §4.8 command engine for the action,
// target, and execution aggregates, which are all built on the
// pkg/ddd/internal/ddstore second kernel rather than internal/eventlog.
type WebhookCommands struct {
	actions    *ddstore.Repository[*webhook.Action]
	targets    *ddstore.Repository[*webhook.Target]
	executions *ddstore.Repository[*webhook.Execution]
}

// NewWebhookCommands builds the command engine for the webhook subsystem
// backed by store.
func NewWebhookCommands(store esdomain.EventStore) *WebhookCommands {
	return &WebhookCommands{
		actions:    ddstore.NewRepository[*webhook.Action](store, webhook.New),
		targets:    ddstore.NewRepository[*webhook.Target](store, webhook.NewTargetShell),
		executions: ddstore.NewRepository[*webhook.Execution](store, webhook.NewExecutionShell),
	}
}

// AddAction creates a new inline-script action scoped to orgID.
func (c *WebhookCommands) AddAction(ctx context.Context, instanceID, orgID, name, script string, timeout time.Duration) (*webhook.Action, ObjectDetails, error) {
	a, err := webhook.NewAction(instanceID, orgID, name, script, timeout)
	if err != nil {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.InvalidArgument, "WEBHOOKv2-001", "invalid action", err)
	}
	return finishAction(ctx, c.actions, a, "WEBHOOKv2-002")
}

// SetActionScript replaces an action's script body and/or timeout.
func (c *WebhookCommands) SetActionScript(ctx context.Context, actionID, script string, timeout time.Duration) (ObjectDetails, error) {
	a, err := c.loadAction(ctx, actionID)
	if err != nil {
		return ObjectDetails{}, err
	}
	if err := a.SetScript(script, timeout); err != nil {
		return ObjectDetails{}, apperr.Wrap(apperr.InvalidArgument, "WEBHOOKv2-001", "invalid action", err)
	}
	_, details, err := finishAction(ctx, c.actions, a, "WEBHOOKv2-002")
	return details, err
}

// DeactivateAction moves an active action to inactive.
func (c *WebhookCommands) DeactivateAction(ctx context.Context, actionID string) (ObjectDetails, error) {
	return c.mutateAction(ctx, actionID, func(a *webhook.Action) error { return a.Deactivate() })
}

// ReactivateAction moves an inactive action back to active.
func (c *WebhookCommands) ReactivateAction(ctx context.Context, actionID string) (ObjectDetails, error) {
	return c.mutateAction(ctx, actionID, func(a *webhook.Action) error { return a.Reactivate() })
}

// RemoveAction terminally removes an action.
func (c *WebhookCommands) RemoveAction(ctx context.Context, actionID string) (ObjectDetails, error) {
	return c.mutateAction(ctx, actionID, func(a *webhook.Action) error { return a.Remove() })
}

// GetAction loads an action by ID for read access.
func (c *WebhookCommands) GetAction(ctx context.Context, actionID string) (*webhook.Action, error) {
	return c.loadAction(ctx, actionID)
}

func (c *WebhookCommands) loadAction(ctx context.Context, actionID string) (*webhook.Action, error) {
	a, err := c.actions.Load(ctx, actionID)
	if err != nil {
		return nil, mapDDStoreErr(err, "WEBHOOKv2-010")
	}
	return a, nil
}

func (c *WebhookCommands) mutateAction(ctx context.Context, actionID string, apply func(*webhook.Action) error) (ObjectDetails, error) {
	a, err := c.loadAction(ctx, actionID)
	if err != nil {
		return ObjectDetails{}, err
	}
	if err := apply(a); err != nil {
		return ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, "WEBHOOKv2-001", "action precondition failed", err)
	}
	_, details, err := finishAction(ctx, c.actions, a, "WEBHOOKv2-002")
	return details, err
}

func finishAction(ctx context.Context, repo *ddstore.Repository[*webhook.Action], a *webhook.Action, saveID string) (*webhook.Action, ObjectDetails, error) {
	pending := a.GetUncommittedEvents()
	if len(pending) == 0 {
		return a, ObjectDetails{Sequence: int64(a.GetSequenceNo()), ResourceOwner: a.OrgID}, nil
	}
	last := pending[len(pending)-1]
	if err := repo.Save(ctx, a); err != nil {
		return nil, ObjectDetails{}, mapDDStoreErr(err, saveID)
	}
	return a, detailsFromEnvelope(last, a.OrgID), nil
}

// AddTarget creates a new webhook/call target scoped to orgID.
func (c *WebhookCommands) AddTarget(ctx context.Context, instanceID, orgID, name string, typ webhook.TargetType, url string, timeout time.Duration) (*webhook.Target, ObjectDetails, error) {
	t, err := webhook.NewTarget(instanceID, orgID, name, typ, url, timeout)
	if err != nil {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.InvalidArgument, "WEBHOOKv2-001", "invalid target", err)
	}
	return finishTarget(ctx, c.targets, t, "WEBHOOKv2-002")
}

// ChangeTargetURL updates a target's callback URL and/or timeout.
func (c *WebhookCommands) ChangeTargetURL(ctx context.Context, targetID, url string, timeout time.Duration) (ObjectDetails, error) {
	t, err := c.loadTarget(ctx, targetID)
	if err != nil {
		return ObjectDetails{}, err
	}
	if err := t.ChangeURL(url, timeout); err != nil {
		return ObjectDetails{}, apperr.Wrap(apperr.InvalidArgument, "WEBHOOKv2-001", "invalid target", err)
	}
	_, details, err := finishTarget(ctx, c.targets, t, "WEBHOOKv2-002")
	return details, err
}

// DeactivateTarget moves an active target to inactive.
func (c *WebhookCommands) DeactivateTarget(ctx context.Context, targetID string) (ObjectDetails, error) {
	return c.mutateTarget(ctx, targetID, func(t *webhook.Target) error { return t.Deactivate() })
}

// ReactivateTarget moves an inactive target back to active.
func (c *WebhookCommands) ReactivateTarget(ctx context.Context, targetID string) (ObjectDetails, error) {
	return c.mutateTarget(ctx, targetID, func(t *webhook.Target) error { return t.Reactivate() })
}

// RemoveTarget terminally removes a target.
func (c *WebhookCommands) RemoveTarget(ctx context.Context, targetID string) (ObjectDetails, error) {
	return c.mutateTarget(ctx, targetID, func(t *webhook.Target) error { return t.Remove() })
}

// GetTarget loads a target by ID for read access.
func (c *WebhookCommands) GetTarget(ctx context.Context, targetID string) (*webhook.Target, error) {
	return c.loadTarget(ctx, targetID)
}

func (c *WebhookCommands) loadTarget(ctx context.Context, targetID string) (*webhook.Target, error) {
	t, err := c.targets.Load(ctx, targetID)
	if err != nil {
		return nil, mapDDStoreErr(err, "WEBHOOKv2-010")
	}
	return t, nil
}

func (c *WebhookCommands) mutateTarget(ctx context.Context, targetID string, apply func(*webhook.Target) error) (ObjectDetails, error) {
	t, err := c.loadTarget(ctx, targetID)
	if err != nil {
		return ObjectDetails{}, err
	}
	if err := apply(t); err != nil {
		return ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, "WEBHOOKv2-001", "target precondition failed", err)
	}
	_, details, err := finishTarget(ctx, c.targets, t, "WEBHOOKv2-002")
	return details, err
}

func finishTarget(ctx context.Context, repo *ddstore.Repository[*webhook.Target], t *webhook.Target, saveID string) (*webhook.Target, ObjectDetails, error) {
	pending := t.GetUncommittedEvents()
	if len(pending) == 0 {
		return t, ObjectDetails{Sequence: int64(t.GetSequenceNo()), ResourceOwner: t.OrgID}, nil
	}
	last := pending[len(pending)-1]
	if err := repo.Save(ctx, t); err != nil {
		return nil, ObjectDetails{}, mapDDStoreErr(err, saveID)
	}
	return t, detailsFromEnvelope(last, t.OrgID), nil
}

// SetExecution creates or upserts the binding for (condition, typ) at its
// deterministic ID, rejecting a self-include. targetIDs, actionIDs and
// includes are stored as given: they are not checked against existing
// targets, actions or executions, and a longer include cycle is only
// detected when Resolver.Resolve expands it.
func (c *WebhookCommands) SetExecution(ctx context.Context, instanceID, orgID, condition string, typ webhook.ExecutionType, targetIDs, actionIDs, includes []string) (*webhook.Execution, ObjectDetails, error) {
	existing, err := c.loadExecutionOptional(ctx, webhook.ExecutionID(condition, typ))
	if err != nil {
		return nil, ObjectDetails{}, err
	}
	e, err := webhook.SetExecution(existing, instanceID, orgID, condition, typ, targetIDs, actionIDs, includes)
	if err != nil {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.InvalidArgument, "WEBHOOKv2-001", "invalid execution", err)
	}

	pending := e.GetUncommittedEvents()
	if len(pending) == 0 {
		return e, ObjectDetails{Sequence: int64(e.GetSequenceNo()), ResourceOwner: e.OrgID}, nil
	}
	last := pending[len(pending)-1]
	if err := c.executions.Save(ctx, e); err != nil {
		return nil, ObjectDetails{}, mapDDStoreErr(err, "WEBHOOKv2-002")
	}
	return e, detailsFromEnvelope(last, e.OrgID), nil
}

// RemoveExecution deletes the binding for (condition, typ).
func (c *WebhookCommands) RemoveExecution(ctx context.Context, condition string, typ webhook.ExecutionType) (ObjectDetails, error) {
	e, err := c.loadExecution(ctx, webhook.ExecutionID(condition, typ))
	if err != nil {
		return ObjectDetails{}, err
	}
	if err := e.Remove(); err != nil {
		return ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, "WEBHOOKv2-001", "execution precondition failed", err)
	}
	pending := e.GetUncommittedEvents()
	if len(pending) == 0 {
		return ObjectDetails{Sequence: int64(e.GetSequenceNo()), ResourceOwner: e.OrgID}, nil
	}
	last := pending[len(pending)-1]
	if err := c.executions.Save(ctx, e); err != nil {
		return ObjectDetails{}, mapDDStoreErr(err, "WEBHOOKv2-002")
	}
	return detailsFromEnvelope(last, e.OrgID), nil
}

// Resolve flattens an execution's includes into the targets and actions
// that should actually run when condition/typ fires.
func (c *WebhookCommands) Resolve(ctx context.Context, condition string, typ webhook.ExecutionType) (targetIDs, actionIDs []string, err error) {
	root, err := c.loadExecution(ctx, webhook.ExecutionID(condition, typ))
	if err != nil {
		return nil, nil, err
	}
	resolver := webhook.Resolver{Load: func(id string) (*webhook.Execution, error) {
		return c.loadExecutionOptional(ctx, id)
	}}
	return resolver.Resolve(root)
}

// GetExecution loads an execution by (condition, typ) for read access.
func (c *WebhookCommands) GetExecution(ctx context.Context, condition string, typ webhook.ExecutionType) (*webhook.Execution, error) {
	return c.loadExecution(ctx, webhook.ExecutionID(condition, typ))
}

func (c *WebhookCommands) loadExecution(ctx context.Context, id string) (*webhook.Execution, error) {
	e, err := c.executions.Load(ctx, id)
	if err != nil {
		return nil, mapDDStoreErr(err, "WEBHOOKv2-010")
	}
	return e, nil
}

func (c *WebhookCommands) loadExecutionOptional(ctx context.Context, id string) (*webhook.Execution, error) {
	e, err := c.executions.Load(ctx, id)
	if err != nil {
		if isDDStoreNotFound(err) {
			return nil, nil
		}
		return nil, mapDDStoreErr(err, "WEBHOOKv2-010")
	}
	return e, nil
}

// detailsFromEnvelope builds ObjectDetails from a second-kernel event
// envelope, mirroring detailsFromEvent for the first kernel's
// pkg/domain.Event.
func detailsFromEnvelope(e esdomain.EventEnvelope[any], resourceOwner string) ObjectDetails {
	// BaseEntity numbers an aggregate's events from 0; details carry the
	// 1-based aggregate version.
	return ObjectDetails{
		Sequence:      int64(e.SequenceNo) + 1,
		EventDate:     e.Created,
		ResourceOwner: resourceOwner,
	}
}
