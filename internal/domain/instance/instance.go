// Package instance implements the Instance aggregate: the top-level tenant
// container that owns orgs, instance-wide defaults, and trusted domains.
package instance

import (
	"fmt"
	"time"

	"github.com/nexusiam/core/pkg/domain"
	"github.com/segmentio/ksuid"
)

const (
	EntityType = "instance"

	EventAdded                = "added"
	EventDefaultOrgSet        = "default_org_set"
	EventDefaultLanguageSet   = "default_language_set"
	EventDomainAdded          = "domain_added"
	EventDomainRemoved        = "domain_removed"
	EventTrustedDomainAdded   = "trusted_domain_added"
	EventTrustedDomainRemoved = "trusted_domain_removed"
	EventFeatureSet           = "feature_set"
	EventRemoved              = "removed"
)

// Instance is the aggregate root for a deployment's top-level tenant
// boundary. Events carry a full snapshot, matching internal/domain/user's
// convention.
type Instance struct {
	*domain.Entity

	Name            string          `json:"name"`
	DefaultOrgID    string          `json:"defaultOrgId,omitempty"`
	DefaultLanguage string          `json:"defaultLanguage"`
	Domains         []string        `json:"domains,omitempty"`
	TrustedDomains  []string        `json:"trustedDomains,omitempty"`
	Features        map[string]bool `json:"features,omitempty"`
	Removed         bool            `json:"removed"`

	CreatedAt time.Time `json:"createdAt"`
	ChangedAt time.Time `json:"changedAt"`
}

// New returns an unsaved aggregate shell for Repository.Load.
func New() *Instance {
	return &Instance{Entity: new(domain.Entity)}
}

// NewInstance creates a new instance with a default language (defaulting
// to "en" if unset).
func NewInstance(name, defaultLanguage string) *Instance {
	i := &Instance{Entity: new(domain.Entity).WithID(ksuid.New().String())}
	if name == "" {
		i.AddError(fmt.Errorf("instance: name must not be empty"))
		return i
	}
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}

	now := time.Now()
	i.Name = name
	i.DefaultLanguage = defaultLanguage
	i.Features = map[string]bool{}
	i.CreatedAt = now
	i.ChangedAt = now
	i.emit(EventAdded)
	return i
}

func (i *Instance) emit(eventType string) {
	i.ChangedAt = time.Now()
	event := domain.NewEntityEvent(EntityType, eventType, i.ID(), "", "", i).WithScope(i.ID())
	i.AddEvent(event)
}

func (i *Instance) mustBeUsable() bool {
	if i.Removed {
		i.AddError(fmt.Errorf("instance: cannot modify a removed instance"))
		return false
	}
	return true
}

// SetDefaultOrg designates orgID as the instance's default org, used when a
// login flow doesn't specify one explicitly.
func (i *Instance) SetDefaultOrg(orgID string) {
	if !i.mustBeUsable() {
		return
	}
	if orgID == i.DefaultOrgID {
		return
	}
	i.DefaultOrgID = orgID
	i.emit(EventDefaultOrgSet)
}

// SetDefaultLanguage changes the instance-wide default language.
func (i *Instance) SetDefaultLanguage(lang string) {
	if !i.mustBeUsable() {
		return
	}
	if lang == "" || lang == i.DefaultLanguage {
		return
	}
	i.DefaultLanguage = lang
	i.emit(EventDefaultLanguageSet)
}

// AddDomain claims a domain at the instance level (distinct from an org's
// own claimed domains).
func (i *Instance) AddDomain(name string) {
	if !i.mustBeUsable() {
		return
	}
	for _, d := range i.Domains {
		if d == name {
			return
		}
	}
	i.Domains = append(i.Domains, name)
	i.emit(EventDomainAdded)
}

// RemoveDomain releases a previously claimed instance-level domain.
func (i *Instance) RemoveDomain(name string) {
	if !i.mustBeUsable() {
		return
	}
	kept := make([]string, 0, len(i.Domains))
	found := false
	for _, d := range i.Domains {
		if d == name {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		return
	}
	i.Domains = kept
	i.emit(EventDomainRemoved)
}

// AddTrustedDomain marks a domain as allowed for cross-origin redirects
// (e.g. federated-auth callback allow-listing) without claiming ownership.
func (i *Instance) AddTrustedDomain(name string) {
	if !i.mustBeUsable() {
		return
	}
	for _, d := range i.TrustedDomains {
		if d == name {
			return
		}
	}
	i.TrustedDomains = append(i.TrustedDomains, name)
	i.emit(EventTrustedDomainAdded)
}

// RemoveTrustedDomain revokes a previously trusted domain.
func (i *Instance) RemoveTrustedDomain(name string) {
	if !i.mustBeUsable() {
		return
	}
	kept := make([]string, 0, len(i.TrustedDomains))
	found := false
	for _, d := range i.TrustedDomains {
		if d == name {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		return
	}
	i.TrustedDomains = kept
	i.emit(EventTrustedDomainRemoved)
}

// SetFeature flips an instance-wide feature flag.
func (i *Instance) SetFeature(key string, enabled bool) {
	if !i.mustBeUsable() {
		return
	}
	if i.Features == nil {
		i.Features = map[string]bool{}
	}
	if i.Features[key] == enabled {
		return
	}
	i.Features[key] = enabled
	i.emit(EventFeatureSet)
}

// Remove terminally removes the instance. Its orgs are not removed with it:
// InstanceCommands.Remove changes only this aggregate.
func (i *Instance) Remove() {
	if i.Removed {
		return
	}
	i.Removed = true
	i.emit(EventRemoved)
}

// LoadFromHistory reconstructs the aggregate by replaying the snapshot
// carried in each event's payload.
func (i *Instance) LoadFromHistory(events []domain.Event) {
	i.Entity.LoadFromHistory(events)
	for _, event := range events {
		if err := unmarshalSnapshot(event, i); err != nil {
			i.AddError(err)
		}
	}
}
