// Package idp implements the IDPConfig aggregate: a configured external
// identity provider (OIDC, OAuth2, SAML, or JWT-bearer) an instance or org
// can let users authenticate against.
package idp

import (
	"fmt"
	"time"

	"github.com/nexusiam/core/pkg/domain"
	"github.com/segmentio/ksuid"
)

// Type is the tagged-union discriminant for Config's key/value shape.
type Type string

const (
	TypeOIDC  Type = "oidc"
	TypeOAuth Type = "oauth"
	TypeSAML  Type = "saml"
	TypeJWT   Type = "jwt"
)

// State is the IDP config's lifecycle.
type State string

const (
	StateUnspecified State = "unspecified"
	StateActive      State = "active"
	StateInactive    State = "inactive"
	StateRemoved     State = "removed"
)

const (
	EntityType = "idp_config"

	EventAdded          = "added"
	EventConfigUpdated  = "config_updated"
	EventNameChanged    = "name_changed"
	EventDeactivated    = "deactivated"
	EventReactivated    = "reactivated"
	EventRemoved        = "removed"
)

// Config is deliberately a flat string map rather than one struct per Type:
// OIDC needs issuer/clientId/clientSecret/scopes, SAML needs a metadata URL
// and certificate, JWT needs a JWKS URI and header name, and the set of
// required keys per Type is validated by the command layer, not this
// aggregate.
type Config map[string]string

// IDPConfig is the aggregate root. Events carry a full snapshot, matching
// the convention internal/domain/user.User uses.
type IDPConfig struct {
	*domain.Entity

	InstanceID string `json:"instanceId"`
	OrgID      string `json:"orgId,omitempty"`
	Type       Type   `json:"type"`
	Name       string `json:"name"`
	State      State  `json:"state"`
	Config     Config `json:"config"`

	CreatedAt time.Time `json:"createdAt"`
	ChangedAt time.Time `json:"changedAt"`
}

// New returns an unsaved aggregate shell for Repository.Load.
func New() *IDPConfig {
	return &IDPConfig{Entity: new(domain.Entity)}
}

// NewIDPConfig creates a new IDP configuration. orgID is empty for an
// instance-wide IDP available to every org.
func NewIDPConfig(instanceID, orgID string, typ Type, name string, config Config) *IDPConfig {
	c := &IDPConfig{Entity: new(domain.Entity).WithID(ksuid.New().String())}
	if instanceID == "" {
		c.AddError(fmt.Errorf("idp: instanceID is required"))
		return c
	}
	if name == "" {
		c.AddError(fmt.Errorf("idp: name must not be empty"))
		return c
	}
	switch typ {
	case TypeOIDC, TypeOAuth, TypeSAML, TypeJWT:
	default:
		c.AddError(fmt.Errorf("idp: unsupported type %q", typ))
		return c
	}
	if config == nil {
		config = Config{}
	}

	now := time.Now()
	c.InstanceID = instanceID
	c.OrgID = orgID
	c.Type = typ
	c.Name = name
	c.State = StateActive
	c.Config = config
	c.CreatedAt = now
	c.ChangedAt = now
	c.emit(EventAdded)
	return c
}

func (c *IDPConfig) emit(eventType string) {
	c.ChangedAt = time.Now()
	event := domain.NewEntityEvent(EntityType, eventType, c.ID(), "", c.OrgID, c).WithScope(c.InstanceID)
	c.AddEvent(event)
}

func (c *IDPConfig) mustBeUsable() bool {
	if c.State == StateRemoved {
		c.AddError(fmt.Errorf("idp: cannot modify a removed config"))
		return false
	}
	if c.State == StateUnspecified {
		c.AddError(fmt.Errorf("idp: not found"))
		return false
	}
	return true
}

// ChangeName renames the IDP config.
func (c *IDPConfig) ChangeName(name string) {
	if !c.mustBeUsable() {
		return
	}
	if name == "" {
		c.AddError(fmt.Errorf("idp: name must not be empty"))
		return
	}
	if name == c.Name {
		return
	}
	c.Name = name
	c.emit(EventNameChanged)
}

// UpdateConfig merges the given keys into the config (e.g. rotating a
// client secret or JWKS URI).
func (c *IDPConfig) UpdateConfig(updates Config) {
	if !c.mustBeUsable() {
		return
	}
	if len(updates) == 0 {
		return
	}
	changed := false
	if c.Config == nil {
		c.Config = Config{}
	}
	for k, v := range updates {
		if c.Config[k] != v {
			c.Config[k] = v
			changed = true
		}
	}
	if !changed {
		return
	}
	c.emit(EventConfigUpdated)
}

// Deactivate moves an active config to inactive, blocking new logins
// through it without losing the configuration.
func (c *IDPConfig) Deactivate() {
	if c.State != StateActive {
		c.AddError(fmt.Errorf("idp: can only deactivate an active config, current state is %q", c.State))
		return
	}
	c.State = StateInactive
	c.emit(EventDeactivated)
}

// Reactivate moves an inactive config back to active.
func (c *IDPConfig) Reactivate() {
	if c.State != StateInactive {
		c.AddError(fmt.Errorf("idp: can only reactivate an inactive config, current state is %q", c.State))
		return
	}
	c.State = StateActive
	c.emit(EventReactivated)
}

// Remove terminally removes the config. Users' IDP links to it are left as
// they are: IDPCommands.Remove changes no user aggregate.
func (c *IDPConfig) Remove() {
	if c.State == StateRemoved {
		return
	}
	if c.State == StateUnspecified {
		c.AddError(fmt.Errorf("idp: not found"))
		return
	}
	c.State = StateRemoved
	c.emit(EventRemoved)
}

// LoadFromHistory reconstructs the aggregate by replaying the snapshot
// carried in each event's payload.
func (c *IDPConfig) LoadFromHistory(events []domain.Event) {
	c.Entity.LoadFromHistory(events)
	for _, event := range events {
		if err := unmarshalSnapshot(event, c); err != nil {
			c.AddError(err)
		}
	}
}
