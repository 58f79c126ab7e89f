// Package project implements the Project aggregate: an application
// container scoped to one org, with role-assertion settings and child
// OIDC/API application references.
package project

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/nexusiam/core/pkg/domain"
	"github.com/segmentio/ksuid"
)

// State is the project's lifecycle: active <-> inactive, or either ->
// removed (terminal).
type State string

const (
	StateUnspecified State = "unspecified"
	StateActive      State = "active"
	StateInactive    State = "inactive"
	StateRemoved     State = "removed"
)

// AppType distinguishes the kind of child application attached to a
// project.
type AppType string

const (
	AppOIDC AppType = "oidc"
	AppAPI  AppType = "api"
)

const (
	EntityType = "project"

	EventAdded                  = "added"
	EventNameChanged            = "name_changed"
	EventRoleAssertionSet       = "role_assertion_set"
	EventRoleCheckSet           = "role_check_set"
	EventHasProjectCheckSet     = "has_project_check_set"
	EventPrivateLabelingSet     = "private_labeling_set"
	EventApplicationAdded       = "application_added"
	EventClientRegistered       = "client_registered"
	EventApplicationRemoved     = "application_removed"
	EventDeactivated            = "deactivated"
	EventReactivated            = "reactivated"
	EventRemoved                = "removed"
)

// PrivateLabelingSetting controls whether a project's own branding or the
// instance default is shown during login, and whether that is enforced.
type PrivateLabelingSetting string

const (
	PrivateLabelingUnspecified     PrivateLabelingSetting = "unspecified"
	PrivateLabelingEnforceProject  PrivateLabelingSetting = "enforce_project_resource_owner_policy"
	PrivateLabelingEnforceInstance PrivateLabelingSetting = "enforce_system_resource_owner_policy"
)

// Application is a child OIDC or API client of a project. The DCR fields
// are populated only for applications created via RegisterClient; a plain
// AddApplication leaves them zero.
type Application struct {
	ID   string  `json:"id"`
	Type AppType `json:"type"`
	Name string  `json:"name"`

	RedirectURIs            []string `json:"redirectUris,omitempty"`
	GrantTypes              []string `json:"grantTypes,omitempty"`
	ResponseTypes           []string `json:"responseTypes,omitempty"`
	ApplicationType         string   `json:"applicationType,omitempty"`
	TokenEndpointAuthMethod string   `json:"tokenEndpointAuthMethod,omitempty"`
	ClientID                string   `json:"clientId,omitempty"`
	ClientSecret            string   `json:"clientSecret,omitempty"`
	ClientSecretExpiresAt   int64    `json:"clientSecretExpiresAt"`
}

// ClientMetadata is the RFC 7591 dynamic-client-registration request body
// RegisterClient validates and turns into an Application.
type ClientMetadata struct {
	ClientName              string
	ApplicationType         string // "web" or "native"
	RedirectURIs            []string
	GrantTypes              []string
	ResponseTypes           []string
	TokenEndpointAuthMethod string // e.g. "client_secret_basic", "none", "private_key_jwt"
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Project is the aggregate root. Events carry a full snapshot of the
// aggregate, matching the convention internal/domain/user.User uses.
type Project struct {
	*domain.Entity

	InstanceID string `json:"instanceId"`
	OrgID      string `json:"orgId"`
	Name       string `json:"name"`
	State      State  `json:"state"`

	ProjectRoleAssertion bool                   `json:"projectRoleAssertion"`
	ProjectRoleCheck     bool                   `json:"projectRoleCheck"`
	HasProjectCheck      bool                   `json:"hasProjectCheck"`
	PrivateLabeling      PrivateLabelingSetting `json:"privateLabeling"`

	Applications []Application `json:"applications,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ChangedAt time.Time `json:"changedAt"`
}

// New returns an unsaved aggregate shell for Repository.Load.
func New() *Project {
	return &Project{Entity: new(domain.Entity)}
}

// NewProject creates a new project scoped to orgID.
func NewProject(instanceID, orgID, name string) *Project {
	p := &Project{Entity: new(domain.Entity).WithID(ksuid.New().String())}
	if instanceID == "" || orgID == "" {
		p.AddError(fmt.Errorf("project: instanceID and orgID are required"))
		return p
	}
	if name == "" {
		p.AddError(fmt.Errorf("project: name must not be empty"))
		return p
	}

	now := time.Now()
	p.InstanceID = instanceID
	p.OrgID = orgID
	p.Name = name
	p.State = StateActive
	p.PrivateLabeling = PrivateLabelingEnforceInstance
	p.CreatedAt = now
	p.ChangedAt = now
	p.emit(EventAdded)
	return p
}

func (p *Project) emit(eventType string) {
	p.ChangedAt = time.Now()
	event := domain.NewEntityEvent(EntityType, eventType, p.ID(), "", p.OrgID, p).WithScope(p.InstanceID)
	p.AddEvent(event)
}

func (p *Project) mustBeUsable() bool {
	if p.State == StateRemoved {
		p.AddError(fmt.Errorf("project: cannot modify a removed project"))
		return false
	}
	if p.State == StateUnspecified {
		p.AddError(fmt.Errorf("project: not found"))
		return false
	}
	return true
}

// ChangeName renames the project.
func (p *Project) ChangeName(name string) {
	if !p.mustBeUsable() {
		return
	}
	if name == "" {
		p.AddError(fmt.Errorf("project: name must not be empty"))
		return
	}
	if name == p.Name {
		return
	}
	p.Name = name
	p.emit(EventNameChanged)
}

// SetRoleAssertion toggles whether authorization requests against this
// project assert the caller's project roles into the token.
func (p *Project) SetRoleAssertion(enabled bool) {
	if !p.mustBeUsable() {
		return
	}
	if p.ProjectRoleAssertion == enabled {
		return
	}
	p.ProjectRoleAssertion = enabled
	p.emit(EventRoleAssertionSet)
}

// SetRoleCheck toggles whether authentication requires the user to have at
// least one role granted on this project.
func (p *Project) SetRoleCheck(enabled bool) {
	if !p.mustBeUsable() {
		return
	}
	if p.ProjectRoleCheck == enabled {
		return
	}
	p.ProjectRoleCheck = enabled
	p.emit(EventRoleCheckSet)
}

// SetHasProjectCheck toggles whether authentication requires the user to be
// granted to this project at all (independent of roles).
func (p *Project) SetHasProjectCheck(enabled bool) {
	if !p.mustBeUsable() {
		return
	}
	if p.HasProjectCheck == enabled {
		return
	}
	p.HasProjectCheck = enabled
	p.emit(EventHasProjectCheckSet)
}

// SetPrivateLabeling changes which branding policy login flows for this
// project's applications enforce.
func (p *Project) SetPrivateLabeling(setting PrivateLabelingSetting) {
	if !p.mustBeUsable() {
		return
	}
	if setting == p.PrivateLabeling {
		return
	}
	p.PrivateLabeling = setting
	p.emit(EventPrivateLabelingSet)
}

// AddApplication attaches a new OIDC or API application to the project.
func (p *Project) AddApplication(appType AppType, name string) {
	if !p.mustBeUsable() {
		return
	}
	if name == "" {
		p.AddError(fmt.Errorf("project: application name must not be empty"))
		return
	}
	p.Applications = append(p.Applications, Application{ID: ksuid.New().String(), Type: appType, Name: name})
	p.emit(EventApplicationAdded)
}

// RegisterClient implements registerClient (RFC 7591 Dynamic Client
// Registration): it validates meta, mints client_id/client_secret (UUIDs)
// unless the auth method makes a secret unnecessary, and attaches the
// resulting OIDC application to the project.
func (p *Project) RegisterClient(meta ClientMetadata) {
	if !p.mustBeUsable() {
		return
	}
	if len(meta.RedirectURIs) == 0 {
		p.AddError(fmt.Errorf("project: registerClient requires at least one redirect_uri"))
		return
	}
	if meta.ApplicationType == "web" {
		for _, raw := range meta.RedirectURIs {
			u, err := url.Parse(raw)
			if err != nil {
				p.AddError(fmt.Errorf("project: registerClient: invalid redirect_uri %q: %w", raw, err))
				return
			}
			if u.Scheme != "https" && u.Hostname() != "localhost" {
				p.AddError(fmt.Errorf("project: registerClient: web redirect_uri %q must be https unless host is localhost", raw))
				return
			}
		}
	}

	grantTypes := meta.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{"authorization_code"}
	}
	responseTypes := meta.ResponseTypes
	if len(responseTypes) == 0 {
		responseTypes = []string{"code"}
	}
	if contains(grantTypes, "authorization_code") != contains(responseTypes, "code") {
		p.AddError(fmt.Errorf("project: registerClient: authorization_code grant and code response type must be used together"))
		return
	}
	if contains(grantTypes, "implicit") && !contains(responseTypes, "token") && !contains(responseTypes, "id_token") {
		p.AddError(fmt.Errorf("project: registerClient: implicit grant requires a token or id_token response type"))
		return
	}

	authMethod := meta.TokenEndpointAuthMethod
	if authMethod == "" {
		authMethod = "client_secret_basic"
	}

	app := Application{
		ID:                      ksuid.New().String(),
		Type:                    AppOIDC,
		Name:                    meta.ClientName,
		RedirectURIs:            meta.RedirectURIs,
		GrantTypes:              grantTypes,
		ResponseTypes:           responseTypes,
		ApplicationType:         meta.ApplicationType,
		TokenEndpointAuthMethod: authMethod,
		ClientID:                uuid.NewString(),
		ClientSecretExpiresAt:   0,
	}
	if authMethod != "none" && authMethod != "private_key_jwt" {
		app.ClientSecret = uuid.NewString()
	}

	p.Applications = append(p.Applications, app)
	p.emit(EventClientRegistered)
}

// RemoveApplication detaches a child application by ID.
func (p *Project) RemoveApplication(appID string) {
	if !p.mustBeUsable() {
		return
	}
	kept := make([]Application, 0, len(p.Applications))
	found := false
	for _, a := range p.Applications {
		if a.ID == appID {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return
	}
	p.Applications = kept
	p.emit(EventApplicationRemoved)
}

// Deactivate moves an active project to inactive, blocking new
// authentications against its applications.
func (p *Project) Deactivate() {
	if p.State != StateActive {
		p.AddError(fmt.Errorf("project: can only deactivate an active project, current state is %q", p.State))
		return
	}
	p.State = StateInactive
	p.emit(EventDeactivated)
}

// Reactivate moves an inactive project back to active.
func (p *Project) Reactivate() {
	if p.State != StateInactive {
		p.AddError(fmt.Errorf("project: can only reactivate an inactive project, current state is %q", p.State))
		return
	}
	p.State = StateActive
	p.emit(EventReactivated)
}

// Remove terminally removes the project. ProjectCommands.Remove calls only
// this method; it records no separate removal for the project's
// applications.
func (p *Project) Remove() {
	if p.State == StateRemoved {
		return
	}
	if p.State == StateUnspecified {
		p.AddError(fmt.Errorf("project: not found"))
		return
	}
	p.State = StateRemoved
	p.emit(EventRemoved)
}

// LoadFromHistory reconstructs the aggregate by replaying the snapshot
// carried in each event's payload.
func (p *Project) LoadFromHistory(events []domain.Event) {
	p.Entity.LoadFromHistory(events)
	for _, event := range events {
		if err := unmarshalSnapshot(event, p); err != nil {
			p.AddError(err)
		}
	}
}
