// Package policy implements the Policy aggregate: instance-wide defaults
// for login/label/privacy/lockout/password-complexity/password-age/domain/
// security behavior, each of which an org may override. An org override
// shadows the instance default on read; it never mutates it.
package policy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nexusiam/core/pkg/domain"
)

// Kind enumerates the policy families spec.md §4.6 names. One Policy
// aggregate instance exists per (kind, level, scope) triple.
type Kind string

const (
	KindLogin               Kind = "login"
	KindLabel               Kind = "label"
	KindPrivacy             Kind = "privacy"
	KindLockout             Kind = "lockout"
	KindPasswordComplexity  Kind = "password_complexity"
	KindPasswordAge         Kind = "password_age"
	KindDomain              Kind = "domain"
	KindSecurity            Kind = "security"
)

// Level distinguishes an instance-wide default from an org-level override.
type Level string

const (
	LevelInstance Level = "instance"
	LevelOrg      Level = "org"
)

const (
	EntityType = "policy"

	EventSet     = "set"
	EventUpdated = "updated"
	EventRemoved = "removed"
)

// InstanceDefaultID is the aggregate ID of the instance-wide default for
// kind. Command handlers use this to load/save the default without a
// separate index.
func InstanceDefaultID(instanceID string, kind Kind) string {
	return fmt.Sprintf("instance:%s:%s", instanceID, kind)
}

// OrgOverrideID is the aggregate ID of org orgID's override for kind, if
// any exists.
func OrgOverrideID(orgID string, kind Kind) string {
	return fmt.Sprintf("org:%s:%s", orgID, kind)
}

// Policy is the aggregate root. Unlike the other IAM aggregates it uses the
// teacher's flexible domain.StandardEvent (map-keyed payload) rather than a
// typed snapshot struct, since each Kind carries a different settings
// shape and a generated payload type per kind is not warranted.
type Policy struct {
	*domain.Entity

	InstanceID string                 `json:"instanceId"`
	OrgID      string                 `json:"orgId,omitempty"`
	Kind       Kind                   `json:"kind"`
	Settings   map[string]interface{} `json:"settings"`
	Removed    bool                   `json:"removed"`

	ChangedAt time.Time `json:"changedAt"`
}

// Level reports whether this Policy is an instance default or an org
// override.
func (p *Policy) Level() Level {
	if p.OrgID == "" {
		return LevelInstance
	}
	return LevelOrg
}

// New returns an unsaved aggregate shell for Repository.Load.
func New() *Policy {
	return &Policy{Entity: new(domain.Entity)}
}

// NewInstanceDefault creates the instance-wide default policy of kind.
func NewInstanceDefault(instanceID string, kind Kind, settings map[string]interface{}) *Policy {
	return newPolicy(InstanceDefaultID(instanceID, kind), instanceID, "", kind, settings)
}

// NewOrgOverride creates an org-level override of kind, scoped to orgID.
func NewOrgOverride(instanceID, orgID string, kind Kind, settings map[string]interface{}) *Policy {
	return newPolicy(OrgOverrideID(orgID, kind), instanceID, orgID, kind, settings)
}

func newPolicy(id, instanceID, orgID string, kind Kind, settings map[string]interface{}) *Policy {
	p := &Policy{Entity: new(domain.Entity).WithID(id)}
	if instanceID == "" {
		p.AddError(fmt.Errorf("policy: instanceID is required"))
		return p
	}
	if kind == "" {
		p.AddError(fmt.Errorf("policy: kind is required"))
		return p
	}
	if settings == nil {
		settings = map[string]interface{}{}
	}

	p.InstanceID = instanceID
	p.OrgID = orgID
	p.Kind = kind
	p.Settings = settings
	p.ChangedAt = time.Now()
	p.emit(EventSet)
	return p
}

func (p *Policy) emit(eventType string) {
	p.ChangedAt = time.Now()
	data := map[string]interface{}{
		"event_type":   EntityType + "." + eventType,
		"aggregate_id": p.ID(),
		"account_id":   p.OrgID,
		"instance_id":  p.InstanceID,
		"kind":         string(p.Kind),
		"level":        string(p.Level()),
		"settings":     p.Settings,
		"removed":      p.Removed,
	}
	p.AddEvent(domain.NewStandardEventFromMap(data))
}

func (p *Policy) mustExist() bool {
	if p.Removed {
		p.AddError(fmt.Errorf("policy: cannot modify a removed policy"))
		return false
	}
	if p.Kind == "" {
		p.AddError(fmt.Errorf("policy: not found"))
		return false
	}
	return true
}

// UpdateSettings replaces the policy's settings map wholesale. Individual
// field validation (e.g. lockout threshold bounds) is the command layer's
// responsibility, since valid ranges differ per Kind.
func (p *Policy) UpdateSettings(settings map[string]interface{}) {
	if !p.mustExist() {
		return
	}
	if settings == nil {
		settings = map[string]interface{}{}
	}
	if mapsEqual(p.Settings, settings) {
		return
	}
	p.Settings = settings
	p.emit(EventUpdated)
}

// Remove deletes an org override, causing the instance default to apply
// again on the next resolve. Removing an instance default is not
// meaningful (there is always a fallback) and is rejected by the command
// layer before it reaches here.
func (p *Policy) Remove() {
	if p.Removed {
		return
	}
	if p.Kind == "" {
		p.AddError(fmt.Errorf("policy: not found"))
		return
	}
	p.Removed = true
	p.emit(EventRemoved)
}

func mapsEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return string(aj) == string(bj)
}

// snapshot mirrors the fields emit() writes into a StandardEvent's payload,
// so LoadFromHistory can decode each event generically regardless of Kind.
type snapshot struct {
	InstanceID string                 `json:"instance_id"`
	AccountID  string                 `json:"account_id"`
	Kind       string                 `json:"kind"`
	Settings   map[string]interface{} `json:"settings"`
	Removed    bool                   `json:"removed"`
}

// LoadFromHistory reconstructs the aggregate from its StandardEvent history.
func (p *Policy) LoadFromHistory(events []domain.Event) {
	p.Entity.LoadFromHistory(events)
	for _, event := range events {
		var snap snapshot
		if err := json.Unmarshal(event.Payload(), &snap); err != nil {
			p.AddError(err)
			continue
		}
		p.InstanceID = snap.InstanceID
		p.OrgID = snap.AccountID
		p.Kind = Kind(snap.Kind)
		p.Settings = snap.Settings
		p.Removed = snap.Removed
	}
}

// Resolve applies the org-shadows-instance-default rule: a present,
// non-removed org override's settings are returned; otherwise the instance
// default's settings are returned. Either argument may be nil.
func Resolve(instanceDefault, orgOverride *Policy) map[string]interface{} {
	if orgOverride != nil && !orgOverride.Removed {
		return orgOverride.Settings
	}
	if instanceDefault != nil {
		return instanceDefault.Settings
	}
	return nil
}
