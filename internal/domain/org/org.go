// Package org implements the Org aggregate (a tenant within one instance)
// and the cross-aggregate UsernameIndex write model folded over it.
package org

import (
	"fmt"
	"time"

	"github.com/nexusiam/core/pkg/domain"
	"github.com/segmentio/ksuid"
)

// State is the org's lifecycle: active -> inactive -> active, or
// active/inactive -> removed (terminal).
type State string

const (
	StateUnspecified State = "unspecified"
	StateActive      State = "active"
	StateInactive    State = "inactive"
	StateRemoved     State = "removed"
)

const (
	EntityType = "org"

	EventAdded          = "added"
	EventNameChanged    = "name_changed"
	EventDomainAdded    = "domain_added"
	EventDomainPrimary  = "domain_set_primary"
	EventDomainRemoved  = "domain_removed"
	EventDeactivated    = "deactivated"
	EventReactivated    = "reactivated"
	EventRemoved        = "removed"
)

// Domain is a domain name claimed by an org; Verified records whether the
// claim has been confirmed. At most one is primary at a time.
type Domain struct {
	Name      string `json:"name"`
	Primary   bool   `json:"primary"`
	Verified  bool   `json:"verified"`
}

// Org is the aggregate root for a tenant. Events carry a full snapshot of
// the aggregate, matching the convention internal/domain/user.User uses.
type Org struct {
	*domain.Entity

	InstanceID string   `json:"instanceId"`
	Name       string   `json:"name"`
	State      State    `json:"state"`
	Domains    []Domain `json:"domains,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ChangedAt time.Time `json:"changedAt"`
}

// New returns an unsaved aggregate shell for Repository.Load.
func New() *Org {
	return &Org{Entity: new(domain.Entity)}
}

// NewOrg creates a new org scoped to instanceID. name uniqueness within the
// instance is the caller's responsibility (see internal/command).
func NewOrg(instanceID, name string) *Org {
	o := &Org{Entity: new(domain.Entity).WithID(ksuid.New().String())}
	if instanceID == "" {
		o.AddError(fmt.Errorf("org: instanceID is required"))
		return o
	}
	if name == "" {
		o.AddError(fmt.Errorf("org: name must not be empty"))
		return o
	}

	now := time.Now()
	o.InstanceID = instanceID
	o.Name = name
	o.State = StateActive
	o.CreatedAt = now
	o.ChangedAt = now
	o.emit(EventAdded)
	return o
}

func (o *Org) emit(eventType string) {
	o.ChangedAt = time.Now()
	event := domain.NewEntityEvent(EntityType, eventType, o.ID(), "", o.ID(), o).WithScope(o.InstanceID)
	o.AddEvent(event)
}

func (o *Org) mustBeUsable() bool {
	if o.State == StateRemoved {
		o.AddError(fmt.Errorf("org: cannot modify a removed org"))
		return false
	}
	if o.State == StateUnspecified {
		o.AddError(fmt.Errorf("org: not found"))
		return false
	}
	return true
}

// ChangeName renames the org.
func (o *Org) ChangeName(name string) {
	if !o.mustBeUsable() {
		return
	}
	if name == "" {
		o.AddError(fmt.Errorf("org: name must not be empty"))
		return
	}
	if name == o.Name {
		return
	}
	o.Name = name
	o.emit(EventNameChanged)
}

// AddDomain claims an unverified domain for the org. The first domain added
// automatically becomes primary.
func (o *Org) AddDomain(name string) {
	if !o.mustBeUsable() {
		return
	}
	for _, d := range o.Domains {
		if d.Name == name {
			return // idempotent
		}
	}
	o.Domains = append(o.Domains, Domain{Name: name, Primary: len(o.Domains) == 0})
	o.emit(EventDomainAdded)
}

// SetPrimaryDomain marks name as the org's primary domain, demoting any
// previous primary. name must already have been added.
func (o *Org) SetPrimaryDomain(name string) {
	if !o.mustBeUsable() {
		return
	}
	found := false
	for i := range o.Domains {
		if o.Domains[i].Name == name {
			found = true
			break
		}
	}
	if !found {
		o.AddError(fmt.Errorf("org: domain %q is not claimed by this org", name))
		return
	}
	for i := range o.Domains {
		o.Domains[i].Primary = o.Domains[i].Name == name
	}
	o.emit(EventDomainPrimary)
}

// RemoveDomain releases a previously claimed domain.
func (o *Org) RemoveDomain(name string) {
	if !o.mustBeUsable() {
		return
	}
	kept := make([]Domain, 0, len(o.Domains))
	found := false
	for _, d := range o.Domains {
		if d.Name == name {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		return
	}
	o.Domains = kept
	o.emit(EventDomainRemoved)
}

// Deactivate moves an active org to inactive.
func (o *Org) Deactivate() {
	if o.State != StateActive {
		o.AddError(fmt.Errorf("org: can only deactivate an active org, current state is %q", o.State))
		return
	}
	o.State = StateInactive
	o.emit(EventDeactivated)
}

// Reactivate moves an inactive org back to active.
func (o *Org) Reactivate() {
	if o.State != StateInactive {
		o.AddError(fmt.Errorf("org: can only reactivate an inactive org, current state is %q", o.State))
		return
	}
	o.State = StateActive
	o.emit(EventReactivated)
}

// Remove terminally removes the org.
func (o *Org) Remove() {
	if o.State == StateRemoved {
		return
	}
	if o.State == StateUnspecified {
		o.AddError(fmt.Errorf("org: not found"))
		return
	}
	o.State = StateRemoved
	o.emit(EventRemoved)
}

// LoadFromHistory reconstructs the aggregate by replaying the snapshot
// carried in each event's payload.
func (o *Org) LoadFromHistory(events []domain.Event) {
	o.Entity.LoadFromHistory(events)
	for _, event := range events {
		if err := unmarshalSnapshot(event, o); err != nil {
			o.AddError(err)
		}
	}
}
