package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/nexusiam/core/pkg/ddd"
	esdomain "github.com/nexusiam/core/pkg/eventsourcing/domain"
	"github.com/segmentio/ksuid"
)

// TargetState is the target's lifecycle.
type TargetState string

const (
	TargetStateUnspecified TargetState = "unspecified"
	TargetStateActive      TargetState = "active"
	TargetStateInactive    TargetState = "inactive"
	TargetStateRemoved     TargetState = "removed"
)

// TargetType distinguishes delivery semantics: webhook (fire-and-forget,
// response ignored) vs call (synchronous, response can alter the flow).
type TargetType string

const (
	TargetTypeWebhook TargetType = "webhook"
	TargetTypeCall    TargetType = "call"
)

const (
	TargetEntityType = "target"

	TargetEventAdded       = "target.added"
	TargetEventURLChanged  = "target.url_changed"
	TargetEventDeactivated = "target.deactivated"
	TargetEventReactivated = "target.reactivated"
	TargetEventRemoved     = "target.removed"
)

type targetSnapshot struct {
	InstanceID string        `json:"instanceId"`
	OrgID      string        `json:"orgId"`
	Name       string        `json:"name"`
	Type       TargetType    `json:"type"`
	URL        string        `json:"url"`
	Timeout    time.Duration `json:"timeout"`
	State      TargetState   `json:"state"`
}

// Target is an external HTTP endpoint an execution can call. Its signing
// key lives in internal/domain/crypto.Store, keyed by Target.GetID(), not on
// this aggregate, since key rotation must not itself be an event-sourced
// operation (spec.md §4.8).
type Target struct {
	*ddd.BaseEntity

	InstanceID string
	OrgID      string
	Name       string
	Type       TargetType
	URL        string
	Timeout    time.Duration
	State      TargetState
}

// NewTargetShell returns an unsaved aggregate shell for a repository to
// replay history into.
func NewTargetShell(id string) *Target {
	return &Target{BaseEntity: ddd.NewBaseEntity(id), State: TargetStateUnspecified}
}

// NewTarget creates a new webhook/call target. timeout must be in
// (0, MaxTimeout].
func NewTarget(instanceID, orgID, name string, typ TargetType, url string, timeout time.Duration) (*Target, error) {
	if instanceID == "" || orgID == "" {
		return nil, fmt.Errorf("target: instanceID and orgID are required")
	}
	if name == "" || url == "" {
		return nil, fmt.Errorf("target: name and url are required")
	}
	switch typ {
	case TargetTypeWebhook, TargetTypeCall:
	default:
		return nil, fmt.Errorf("target: unsupported type %q", typ)
	}
	if timeout <= 0 || timeout > MaxTimeout {
		return nil, fmt.Errorf("target: timeout must be in (0, %s], got %s", MaxTimeout, timeout)
	}

	t := NewTargetShell(ksuid.New().String())
	t.InstanceID = instanceID
	t.OrgID = orgID
	t.Name = name
	t.Type = typ
	t.URL = url
	t.Timeout = timeout
	t.State = TargetStateActive

	if err := t.record(TargetEventAdded); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Target) record(eventType string) error {
	snap := targetSnapshot{
		InstanceID: t.InstanceID,
		OrgID:      t.OrgID,
		Name:       t.Name,
		Type:       t.Type,
		URL:        t.URL,
		Timeout:    t.Timeout,
		State:      t.State,
	}
	return t.RecordEvent(snap, eventType)
}

func (t *Target) mustBeUsable() error {
	if t.State == TargetStateRemoved {
		return fmt.Errorf("target: cannot modify a removed target")
	}
	if t.State == TargetStateUnspecified {
		return fmt.Errorf("target: not found")
	}
	return nil
}

// ChangeURL updates the target's callback URL and/or timeout.
func (t *Target) ChangeURL(url string, timeout time.Duration) error {
	if err := t.mustBeUsable(); err != nil {
		return err
	}
	if timeout <= 0 || timeout > MaxTimeout {
		return fmt.Errorf("target: timeout must be in (0, %s], got %s", MaxTimeout, timeout)
	}
	if url == t.URL && timeout == t.Timeout {
		return nil
	}
	t.URL = url
	t.Timeout = timeout
	return t.record(TargetEventURLChanged)
}

// Deactivate moves an active target to inactive.
func (t *Target) Deactivate() error {
	if t.State != TargetStateActive {
		return fmt.Errorf("target: can only deactivate an active target, current state is %q", t.State)
	}
	t.State = TargetStateInactive
	return t.record(TargetEventDeactivated)
}

// Reactivate moves an inactive target back to active.
func (t *Target) Reactivate() error {
	if t.State != TargetStateInactive {
		return fmt.Errorf("target: can only reactivate an inactive target, current state is %q", t.State)
	}
	t.State = TargetStateActive
	return t.record(TargetEventReactivated)
}

// Remove terminally removes the target.
func (t *Target) Remove() error {
	if t.State == TargetStateRemoved {
		return nil
	}
	if t.State == TargetStateUnspecified {
		return fmt.Errorf("target: not found")
	}
	t.State = TargetStateRemoved
	return t.record(TargetEventRemoved)
}

func (t *Target) apply(env esdomain.EventEnvelope[any]) error {
	data, err := decodeSnapshot[targetSnapshot](env.Payload)
	if err != nil {
		return err
	}
	t.InstanceID = data.InstanceID
	t.OrgID = data.OrgID
	t.Name = data.Name
	t.Type = data.Type
	t.URL = data.URL
	t.Timeout = data.Timeout
	t.State = data.State
	return nil
}

// LoadFromHistory replays a persisted event history into a fresh Target.
func (t *Target) LoadFromHistory(ctx context.Context, envelopes []esdomain.EventEnvelope[any]) error {
	for _, env := range envelopes {
		if err := t.BaseEntity.ApplyEvent(ctx, env); err != nil {
			return err
		}
		if err := t.apply(env); err != nil {
			return err
		}
	}
	return nil
}
