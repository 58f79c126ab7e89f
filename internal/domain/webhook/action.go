// Package webhook implements the action/target/execution subsystem: short
// inline scripts (actions) and external HTTP callbacks (targets) that an
// execution binds to a trigger condition, built on the pkg/ddd +
// pkg/eventsourcing/domain "second" event-sourcing kernel rather than
// pkg/domain, since every aggregate here is a flat, short-lived
// configuration object rather than a full write model with cross-aggregate
// invariants.
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/nexusiam/core/pkg/ddd"
	esdomain "github.com/nexusiam/core/pkg/eventsourcing/domain"
	"github.com/segmentio/ksuid"
)

// MaxTimeout is the upper bound spec.md §4.8 places on any action/target
// execution timeout: 300000ms (5 minutes). A timeout of exactly 0 is
// likewise rejected — every execution must eventually give up.
const MaxTimeout = 300000 * time.Millisecond

// ActionState is the action's lifecycle: active <-> inactive, or either ->
// removed (terminal).
type ActionState string

const (
	ActionStateUnspecified ActionState = "unspecified"
	ActionStateActive      ActionState = "active"
	ActionStateInactive    ActionState = "inactive"
	ActionStateRemoved     ActionState = "removed"
)

const (
	ActionEntityType = "action"

	ActionEventAdded       = "action.added"
	ActionEventScriptSet   = "action.script_set"
	ActionEventDeactivated = "action.deactivated"
	ActionEventReactivated = "action.reactivated"
	ActionEventRemoved     = "action.removed"
)

// actionSnapshot is the payload every action event carries, mirroring the
// first kernel's full-snapshot convention.
type actionSnapshot struct {
	InstanceID string        `json:"instanceId"`
	OrgID      string        `json:"orgId"`
	Name       string        `json:"name"`
	Script     string        `json:"script"`
	Timeout    time.Duration `json:"timeout"`
	State      ActionState   `json:"state"`
}

// Action is an inline script run before or after a request, scoped to one
// org.
type Action struct {
	*ddd.BaseEntity

	InstanceID string
	OrgID      string
	Name       string
	Script     string
	Timeout    time.Duration
	State      ActionState
}

// New returns an unsaved aggregate shell for a repository to replay history
// into.
func New(id string) *Action {
	return &Action{BaseEntity: ddd.NewBaseEntity(id), State: ActionStateUnspecified}
}

// NewAction creates a new action.
func NewAction(instanceID, orgID, name, script string, timeout time.Duration) (*Action, error) {
	if instanceID == "" || orgID == "" {
		return nil, fmt.Errorf("action: instanceID and orgID are required")
	}
	if name == "" {
		return nil, fmt.Errorf("action: name must not be empty")
	}
	if timeout <= 0 || timeout > MaxTimeout {
		return nil, fmt.Errorf("action: timeout must be in (0, %s], got %s", MaxTimeout, timeout)
	}

	a := New(ksuid.New().String())
	a.InstanceID = instanceID
	a.OrgID = orgID
	a.Name = name
	a.Script = script
	a.Timeout = timeout
	a.State = ActionStateActive

	if err := a.record(ActionEventAdded); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Action) record(eventType string) error {
	snap := actionSnapshot{
		InstanceID: a.InstanceID,
		OrgID:      a.OrgID,
		Name:       a.Name,
		Script:     a.Script,
		Timeout:    a.Timeout,
		State:      a.State,
	}
	return a.RecordEvent(snap, eventType)
}

func (a *Action) mustBeUsable() error {
	if a.State == ActionStateRemoved {
		return fmt.Errorf("action: cannot modify a removed action")
	}
	if a.State == ActionStateUnspecified {
		return fmt.Errorf("action: not found")
	}
	return nil
}

// SetScript replaces the action's script body and/or timeout.
func (a *Action) SetScript(script string, timeout time.Duration) error {
	if err := a.mustBeUsable(); err != nil {
		return err
	}
	if timeout <= 0 || timeout > MaxTimeout {
		return fmt.Errorf("action: timeout must be in (0, %s], got %s", MaxTimeout, timeout)
	}
	if script == a.Script && timeout == a.Timeout {
		return nil
	}
	a.Script = script
	a.Timeout = timeout
	return a.record(ActionEventScriptSet)
}

// Deactivate moves an active action to inactive.
func (a *Action) Deactivate() error {
	if a.State != ActionStateActive {
		return fmt.Errorf("action: can only deactivate an active action, current state is %q", a.State)
	}
	a.State = ActionStateInactive
	return a.record(ActionEventDeactivated)
}

// Reactivate moves an inactive action back to active.
func (a *Action) Reactivate() error {
	if a.State != ActionStateInactive {
		return fmt.Errorf("action: can only reactivate an inactive action, current state is %q", a.State)
	}
	a.State = ActionStateActive
	return a.record(ActionEventReactivated)
}

// Remove terminally removes the action. Executions that reference it are
// left unchanged; WebhookCommands.RemoveAction does not cascade to them.
func (a *Action) Remove() error {
	if a.State == ActionStateRemoved {
		return nil
	}
	if a.State == ActionStateUnspecified {
		return fmt.Errorf("action: not found")
	}
	a.State = ActionStateRemoved
	return a.record(ActionEventRemoved)
}

func (a *Action) apply(env esdomain.EventEnvelope[any]) error {
	data, err := decodeSnapshot[actionSnapshot](env.Payload)
	if err != nil {
		return err
	}
	a.InstanceID = data.InstanceID
	a.OrgID = data.OrgID
	a.Name = data.Name
	a.Script = data.Script
	a.Timeout = data.Timeout
	a.State = data.State
	return nil
}

// LoadFromHistory replays a persisted event history into a fresh Action,
// applying bookkeeping via ddd.BaseEntity.ApplyEvent and state via apply.
func (a *Action) LoadFromHistory(ctx context.Context, envelopes []esdomain.EventEnvelope[any]) error {
	for _, env := range envelopes {
		if err := a.BaseEntity.ApplyEvent(ctx, env); err != nil {
			return err
		}
		if err := a.apply(env); err != nil {
			return err
		}
	}
	return nil
}
