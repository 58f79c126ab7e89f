package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/nexusiam/core/pkg/ddd"
	esdomain "github.com/nexusiam/core/pkg/eventsourcing/domain"
)

// ExecutionType distinguishes where in a request's lifecycle an execution
// fires.
type ExecutionType string

const (
	ExecutionTypeRequest  ExecutionType = "request"
	ExecutionTypeResponse ExecutionType = "response"
	ExecutionTypeFunction ExecutionType = "function"
)

// MaxIncludeDepth bounds how many levels of Execution.Includes a resolver
// will follow before refusing further expansion, guarding against circular
// includes (spec.md §4.8, Testable Property / example S6).
const MaxIncludeDepth = 3

const (
	ExecutionEntityType = "execution"

	ExecutionEventSet     = "execution.set"
	ExecutionEventRemoved = "execution.removed"
)

type executionSnapshot struct {
	InstanceID string        `json:"instanceId"`
	OrgID      string        `json:"orgId"`
	Condition  string        `json:"condition"`
	Type       ExecutionType `json:"type"`
	TargetIDs  []string      `json:"targetIds"`
	ActionIDs  []string      `json:"actionIds"`
	Includes   []string      `json:"includes"`
	Removed    bool          `json:"removed"`
}

// ExecutionID deterministically derives an execution's aggregate ID from
// its (condition, type) pair, so repeated setExecution calls for the same
// trigger upsert the same aggregate instead of accumulating duplicates.
func ExecutionID(condition string, typ ExecutionType) string {
	sum := sha256.Sum256([]byte(condition + "|" + string(typ)))
	return hex.EncodeToString(sum[:])
}

// Execution binds a trigger condition to the targets, actions, and nested
// executions ("includes") that run when it fires.
type Execution struct {
	*ddd.BaseEntity

	InstanceID string
	OrgID      string
	Condition  string
	Type       ExecutionType
	TargetIDs  []string
	ActionIDs  []string
	Includes   []string
	Removed    bool
}

// NewExecutionShell returns an unsaved aggregate shell for a repository to
// replay history into.
func NewExecutionShell(id string) *Execution {
	return &Execution{BaseEntity: ddd.NewBaseEntity(id)}
}

// SetExecution creates or (if the same deterministic ID already exists in
// the caller's repository) overwrites the binding for condition/typ.
// existing is nil for a brand new execution.
func SetExecution(existing *Execution, instanceID, orgID, condition string, typ ExecutionType, targetIDs, actionIDs, includes []string) (*Execution, error) {
	if instanceID == "" || orgID == "" {
		return nil, fmt.Errorf("execution: instanceID and orgID are required")
	}
	if condition == "" {
		return nil, fmt.Errorf("execution: condition must not be empty")
	}
	for _, inc := range includes {
		if inc == ExecutionID(condition, typ) {
			return nil, fmt.Errorf("execution: an execution cannot include itself")
		}
	}

	e := existing
	if e == nil {
		e = NewExecutionShell(ExecutionID(condition, typ))
	}
	e.InstanceID = instanceID
	e.OrgID = orgID
	e.Condition = condition
	e.Type = typ
	e.TargetIDs = targetIDs
	e.ActionIDs = actionIDs
	e.Includes = includes
	e.Removed = false

	if err := e.record(ExecutionEventSet); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Execution) record(eventType string) error {
	snap := executionSnapshot{
		InstanceID: e.InstanceID,
		OrgID:      e.OrgID,
		Condition:  e.Condition,
		Type:       e.Type,
		TargetIDs:  e.TargetIDs,
		ActionIDs:  e.ActionIDs,
		Includes:   e.Includes,
		Removed:    e.Removed,
	}
	return e.RecordEvent(snap, eventType)
}

// Remove deletes the binding.
func (e *Execution) Remove() error {
	if e.Removed {
		return nil
	}
	e.Removed = true
	return e.record(ExecutionEventRemoved)
}

func (e *Execution) apply(env esdomain.EventEnvelope[any]) error {
	data, err := decodeSnapshot[executionSnapshot](env.Payload)
	if err != nil {
		return err
	}
	e.InstanceID = data.InstanceID
	e.OrgID = data.OrgID
	e.Condition = data.Condition
	e.Type = data.Type
	e.TargetIDs = data.TargetIDs
	e.ActionIDs = data.ActionIDs
	e.Includes = data.Includes
	e.Removed = data.Removed
	return nil
}

// LoadFromHistory replays a persisted event history into a fresh Execution.
func (e *Execution) LoadFromHistory(ctx context.Context, envelopes []esdomain.EventEnvelope[any]) error {
	for _, env := range envelopes {
		if err := e.BaseEntity.ApplyEvent(ctx, env); err != nil {
			return err
		}
		if err := e.apply(env); err != nil {
			return err
		}
	}
	return nil
}

// Resolver expands an execution's includes into the flattened set of
// target/action IDs that should actually run, detecting circular includes
// and refusing to expand past MaxIncludeDepth.
type Resolver struct {
	// Load returns the Execution bound to the given deterministic ID, or
	// nil if none exists.
	Load func(id string) (*Execution, error)
}

// Resolve flattens root's own targets/actions plus those of every
// transitively included execution, up to MaxIncludeDepth levels. A cycle or
// an excessive include chain returns an error rather than looping forever.
func (r Resolver) Resolve(root *Execution) (targetIDs, actionIDs []string, err error) {
	seen := map[string]bool{}
	var walk func(e *Execution, depth int) error
	walk = func(e *Execution, depth int) error {
		if depth > MaxIncludeDepth {
			return fmt.Errorf("execution: include chain exceeds max depth %d", MaxIncludeDepth)
		}
		if seen[e.GetID()] {
			return fmt.Errorf("execution: circular include detected at %q", e.GetID())
		}
		seen[e.GetID()] = true

		targetIDs = append(targetIDs, e.TargetIDs...)
		actionIDs = append(actionIDs, e.ActionIDs...)

		for _, includeID := range e.Includes {
			included, loadErr := r.Load(includeID)
			if loadErr != nil {
				return loadErr
			}
			if included == nil {
				continue
			}
			if err := walk(included, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, 0); err != nil {
		return nil, nil, err
	}
	return targetIDs, actionIDs, nil
}
