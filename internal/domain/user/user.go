// Package user implements the User aggregate: a human or machine account
// scoped to exactly one org, with a username unique within that org, an
// activity state machine, optional verified email/phone, and links to
// external identity providers.
package user

import (
	"fmt"
	"time"

	"github.com/nexusiam/core/pkg/domain"
	"github.com/segmentio/ksuid"
)

// Type distinguishes a human operator from a service/machine account.
type Type string

const (
	TypeHuman   Type = "human"
	TypeMachine Type = "machine"
)

// State is the user's activity state machine: unspecified -> active ->
// {inactive, locked, deleted}. inactive and locked both return to active;
// deleted is terminal.
type State string

const (
	StateUnspecified State = "unspecified"
	StateActive      State = "active"
	StateInactive    State = "inactive"
	StateLocked      State = "locked"
	StateDeleted     State = "deleted"
)

// Entity type and event-type suffixes used to build eventlog.Event records
// for this aggregate (EventType() renders as "user.<suffix>").
const (
	EntityType = "user"

	EventHumanAdded     = "human_added"
	EventMachineAdded   = "machine_added"
	EventUsernameChanged = "username_changed"
	EventEmailChanged   = "email_changed"
	EventEmailVerified  = "email_verified"
	EventPhoneChanged   = "phone_changed"
	EventPhoneVerified  = "phone_verified"
	EventDeactivated    = "deactivated"
	EventReactivated    = "reactivated"
	EventLocked         = "locked"
	EventUnlocked       = "unlocked"
	EventDeleted        = "deleted"
	EventIDPLinkAdded   = "idp_link_added"
	EventIDPLinkRemoved = "idp_link_removed"
	EventPATAdded       = "pat_added"
	EventPATRevoked     = "pat_revoked"
)

// IDPLink identifies an external identity a user authenticates as, keyed by
// the (idpConfigID, externalUserID) pair per spec.
type IDPLink struct {
	IDPConfigID    string `json:"idpConfigId"`
	ExternalUserID string `json:"externalUserId"`
}

// User is the aggregate root. Its events carry a full snapshot of the
// aggregate as payload (the teacher's pkg/domain/user.go convention), so
// LoadFromHistory simply replays the latest snapshot rather than applying
// per-field deltas.
type User struct {
	*domain.Entity

	InstanceID string `json:"instanceId"`
	OrgID      string `json:"orgId"`
	Type       Type   `json:"type"`
	State      State  `json:"state"`
	Username   string `json:"username"`

	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
	Phone         string `json:"phone,omitempty"`
	PhoneVerified bool   `json:"phoneVerified"`

	IDPLinks []IDPLink `json:"idpLinks,omitempty"`
	PATs     []PAT     `json:"pats,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ChangedAt time.Time `json:"changedAt"`
}

// New returns an unsaved, empty aggregate shell for Repository.Load to
// reconstruct through LoadFromHistory. Command constructors (NewHuman,
// NewMachine) are the entry points for creating a new user.
func New() *User {
	return &User{Entity: new(domain.Entity)}
}

// NewHuman creates a human user. The caller is responsible for checking
// username availability against the org's username index before calling
// this (see internal/command), since that check spans aggregates.
func NewHuman(instanceID, orgID, username, email, phone string) *User {
	return newUser(instanceID, orgID, TypeHuman, username, email, phone)
}

// NewMachine creates a machine (service) account. Machine accounts have no
// email/phone.
func NewMachine(instanceID, orgID, username string) *User {
	return newUser(instanceID, orgID, TypeMachine, username, "", "")
}

func newUser(instanceID, orgID string, typ Type, username, email, phone string) *User {
	u := &User{Entity: new(domain.Entity).WithID(ksuid.New().String())}

	if username == "" {
		u.AddError(fmt.Errorf("user: username must not be empty"))
		return u
	}
	if instanceID == "" || orgID == "" {
		u.AddError(fmt.Errorf("user: instanceID and orgID are required"))
		return u
	}

	now := time.Now()
	u.InstanceID = instanceID
	u.OrgID = orgID
	u.Type = typ
	u.State = StateActive
	u.Username = username
	u.Email = email
	u.Phone = phone
	u.CreatedAt = now
	u.ChangedAt = now

	eventType := EventHumanAdded
	if typ == TypeMachine {
		eventType = EventMachineAdded
	}
	u.emit(eventType)
	return u
}

// emit appends a snapshot event scoped to the user's instance and org.
func (u *User) emit(eventType string) {
	u.ChangedAt = time.Now()
	event := domain.NewEntityEvent(EntityType, eventType, u.ID(), "", u.OrgID, u).WithScope(u.InstanceID)
	u.AddEvent(event)
}

// mustBeActive enforces the precondition most mutations share: the user
// must exist and not be deleted. Locked/inactive users may still be
// reactivated/unlocked, so those two transitions check state explicitly
// instead of going through this guard.
func (u *User) mustBeActive() bool {
	if u.State == StateDeleted {
		u.AddError(fmt.Errorf("user: cannot modify a deleted user"))
		return false
	}
	if u.State == StateUnspecified {
		u.AddError(fmt.Errorf("user: not found"))
		return false
	}
	return true
}

// ChangeUsername renames the user. Uniqueness within the org is the
// caller's responsibility (see internal/command.ChangeUsername).
func (u *User) ChangeUsername(newUsername string) {
	if !u.mustBeActive() {
		return
	}
	if newUsername == "" {
		u.AddError(fmt.Errorf("user: username must not be empty"))
		return
	}
	if newUsername == u.Username {
		return // idempotent no-op per §4.3 step 5
	}
	u.Username = newUsername
	u.emit(EventUsernameChanged)
}

// ChangeEmail sets a new email address and resets the verified flag, since
// a changed address has not been re-confirmed.
func (u *User) ChangeEmail(newEmail string) {
	if !u.mustBeActive() {
		return
	}
	if newEmail == "" {
		u.AddError(fmt.Errorf("user: email must not be empty"))
		return
	}
	if newEmail == u.Email {
		return
	}
	u.Email = newEmail
	u.EmailVerified = false
	u.emit(EventEmailChanged)
}

// VerifyEmail marks the current email address as verified.
func (u *User) VerifyEmail() {
	if !u.mustBeActive() {
		return
	}
	if u.Email == "" {
		u.AddError(fmt.Errorf("user: no email address to verify"))
		return
	}
	if u.EmailVerified {
		return
	}
	u.EmailVerified = true
	u.emit(EventEmailVerified)
}

// ChangePhone sets a new phone number and resets the verified flag.
func (u *User) ChangePhone(newPhone string) {
	if !u.mustBeActive() {
		return
	}
	if newPhone == u.Phone {
		return
	}
	u.Phone = newPhone
	u.PhoneVerified = false
	u.emit(EventPhoneChanged)
}

// VerifyPhone marks the current phone number as verified.
func (u *User) VerifyPhone() {
	if !u.mustBeActive() {
		return
	}
	if u.Phone == "" {
		u.AddError(fmt.Errorf("user: no phone number to verify"))
		return
	}
	if u.PhoneVerified {
		return
	}
	u.PhoneVerified = true
	u.emit(EventPhoneVerified)
}

// Deactivate moves an active user to inactive. The username is retained.
func (u *User) Deactivate() {
	if u.State != StateActive {
		u.AddError(fmt.Errorf("user: can only deactivate an active user, current state is %q", u.State))
		return
	}
	u.State = StateInactive
	u.emit(EventDeactivated)
}

// Reactivate moves an inactive user back to active.
func (u *User) Reactivate() {
	if u.State != StateInactive {
		u.AddError(fmt.Errorf("user: can only reactivate an inactive user, current state is %q", u.State))
		return
	}
	u.State = StateActive
	u.emit(EventReactivated)
}

// Lock moves an active user to locked, typically after repeated auth
// failures (see the policy subsystem's lockout policy). The username is
// retained.
func (u *User) Lock() {
	if u.State != StateActive {
		u.AddError(fmt.Errorf("user: can only lock an active user, current state is %q", u.State))
		return
	}
	u.State = StateLocked
	u.emit(EventLocked)
}

// Unlock moves a locked user back to active.
func (u *User) Unlock() {
	if u.State != StateLocked {
		u.AddError(fmt.Errorf("user: can only unlock a locked user, current state is %q", u.State))
		return
	}
	u.State = StateActive
	u.emit(EventUnlocked)
}

// Delete terminally removes the user and releases its username for reuse
// within the org (enforced by the username index reduce, not here).
func (u *User) Delete() {
	if u.State == StateDeleted {
		return // idempotent
	}
	if u.State == StateUnspecified {
		u.AddError(fmt.Errorf("user: not found"))
		return
	}
	u.State = StateDeleted
	u.emit(EventDeleted)
}

// HasIDPLink reports whether the given external identity is already linked.
func (u *User) HasIDPLink(idpConfigID, externalUserID string) bool {
	for _, link := range u.IDPLinks {
		if link.IDPConfigID == idpConfigID && link.ExternalUserID == externalUserID {
			return true
		}
	}
	return false
}

// AddIDPLink links an external identity to this user.
func (u *User) AddIDPLink(idpConfigID, externalUserID string) {
	if !u.mustBeActive() {
		return
	}
	if idpConfigID == "" || externalUserID == "" {
		u.AddError(fmt.Errorf("user: idpConfigID and externalUserID are required"))
		return
	}
	if u.HasIDPLink(idpConfigID, externalUserID) {
		return // idempotent
	}
	u.IDPLinks = append(u.IDPLinks, IDPLink{IDPConfigID: idpConfigID, ExternalUserID: externalUserID})
	u.emit(EventIDPLinkAdded)
}

// RemoveIDPLink unlinks a previously linked external identity.
func (u *User) RemoveIDPLink(idpConfigID, externalUserID string) {
	if !u.mustBeActive() {
		return
	}
	links := make([]IDPLink, 0, len(u.IDPLinks))
	found := false
	for _, link := range u.IDPLinks {
		if link.IDPConfigID == idpConfigID && link.ExternalUserID == externalUserID {
			found = true
			continue
		}
		links = append(links, link)
	}
	if !found {
		return
	}
	u.IDPLinks = links
	u.emit(EventIDPLinkRemoved)
}

// LoadFromHistory reconstructs the aggregate by replaying the snapshot
// carried in each event's payload, mirroring the teacher's
// pkg/domain/user.go LoadFromHistory.
func (u *User) LoadFromHistory(events []domain.Event) {
	u.Entity.LoadFromHistory(events)

	for _, event := range events {
		if err := unmarshalSnapshot(event, u); err != nil {
			u.AddError(err)
		}
	}
}
