package fedauth

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/nexusiam/core/pkg/ddd"
	esdomain "github.com/nexusiam/core/pkg/eventsourcing/domain"
	"github.com/segmentio/ksuid"
)

// SAMLRequestState is the request's lifecycle: added -> linked|failed,
// either terminal. spec.md requires duplicate terminal transitions be
// idempotent rather than erroring.
type SAMLRequestState string

const (
	SAMLRequestStateUnspecified SAMLRequestState = "unspecified"
	SAMLRequestStateAdded       SAMLRequestState = "added"
	SAMLRequestStateLinked      SAMLRequestState = "linked"
	SAMLRequestStateFailed      SAMLRequestState = "failed"
)

const (
	SAMLRequestEntityType = "saml_request"

	SAMLRequestEventAdded         = "saml.request.added"
	SAMLRequestEventSessionLinked = "saml.request.session.linked"
	SAMLRequestEventFailed        = "saml.request.failed"
)

type samlRequestSnapshot struct {
	InstanceID  string           `json:"instanceId"`
	OrgID       string           `json:"orgId"`
	Binding     string           `json:"binding"`
	Destination string           `json:"destination"`
	ACSURL      string           `json:"acsUrl"`
	RequestID   string           `json:"requestId"`
	Issuer      string           `json:"issuer"`
	State       SAMLRequestState `json:"state"`
	SessionID   string           `json:"sessionId,omitempty"`
	FailReason  string           `json:"failReason,omitempty"`
}

// SAMLRequest is the server-side record of an outstanding SAML AuthnRequest
// awaiting its IDP response.
type SAMLRequest struct {
	*ddd.BaseEntity

	InstanceID  string
	OrgID       string
	Binding     string
	Destination string
	ACSURL      string
	RequestID   string
	Issuer      string
	State       SAMLRequestState
	SessionID   string
	FailReason  string
}

// NewSAMLRequestShell returns an unsaved aggregate shell for a repository
// to replay history into.
func NewSAMLRequestShell(id string) *SAMLRequest {
	return &SAMLRequest{BaseEntity: ddd.NewBaseEntity(id), State: SAMLRequestStateUnspecified}
}

// AddSAMLRequest implements addSAMLRequest: persists the binding,
// destination, ACS URL, IDP requestID, and issuer with state added.
func AddSAMLRequest(instanceID, orgID, binding, destination, acsURL, requestID, issuer string) (*SAMLRequest, error) {
	if instanceID == "" || orgID == "" {
		return nil, fmt.Errorf("saml request: instanceID and orgID are required")
	}
	if binding == "" || destination == "" || acsURL == "" {
		return nil, fmt.Errorf("saml request: binding, destination, and acsURL are required")
	}
	if requestID == "" {
		return nil, fmt.Errorf("saml request: requestID is required")
	}

	r := NewSAMLRequestShell(ksuid.New().String())
	r.InstanceID = instanceID
	r.OrgID = orgID
	r.Binding = binding
	r.Destination = destination
	r.ACSURL = acsURL
	r.RequestID = requestID
	r.Issuer = issuer
	r.State = SAMLRequestStateAdded

	if err := r.record(SAMLRequestEventAdded); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SAMLRequest) record(eventType string) error {
	snap := samlRequestSnapshot{
		InstanceID:  r.InstanceID,
		OrgID:       r.OrgID,
		Binding:     r.Binding,
		Destination: r.Destination,
		ACSURL:      r.ACSURL,
		RequestID:   r.RequestID,
		Issuer:      r.Issuer,
		State:       r.State,
		SessionID:   r.SessionID,
		FailReason:  r.FailReason,
	}
	return r.RecordEvent(snap, eventType)
}

// LinkSession transitions the request from added to linked, recording the
// SAML session created from it. Re-linking to the same session is
// idempotent; linking from any state other than added or re-linking a
// different session fails.
func (r *SAMLRequest) LinkSession(sessionID string) error {
	if r.State == SAMLRequestStateLinked {
		if r.SessionID == sessionID {
			return nil
		}
		return fmt.Errorf("saml request: already linked to a different session")
	}
	if r.State != SAMLRequestStateAdded {
		return fmt.Errorf("saml request: cannot link from state %q", r.State)
	}
	r.State = SAMLRequestStateLinked
	r.SessionID = sessionID
	return r.record(SAMLRequestEventSessionLinked)
}

// Fail transitions the request from added to failed. A duplicate Fail call
// with the same reason is idempotent.
func (r *SAMLRequest) Fail(reason string) error {
	if r.State == SAMLRequestStateFailed {
		return nil
	}
	if r.State != SAMLRequestStateAdded {
		return fmt.Errorf("saml request: cannot fail from state %q", r.State)
	}
	r.State = SAMLRequestStateFailed
	r.FailReason = reason
	return r.record(SAMLRequestEventFailed)
}

func (r *SAMLRequest) apply(env esdomain.EventEnvelope[any]) error {
	data, err := decodeSnapshot[samlRequestSnapshot](env.Payload)
	if err != nil {
		return err
	}
	r.InstanceID = data.InstanceID
	r.OrgID = data.OrgID
	r.Binding = data.Binding
	r.Destination = data.Destination
	r.ACSURL = data.ACSURL
	r.RequestID = data.RequestID
	r.Issuer = data.Issuer
	r.State = data.State
	r.SessionID = data.SessionID
	r.FailReason = data.FailReason
	return nil
}

// LoadFromHistory replays a persisted event history into a fresh SAMLRequest.
func (r *SAMLRequest) LoadFromHistory(ctx context.Context, envelopes []esdomain.EventEnvelope[any]) error {
	for _, env := range envelopes {
		if err := r.BaseEntity.ApplyEvent(ctx, env); err != nil {
			return err
		}
		if err := r.apply(env); err != nil {
			return err
		}
	}
	return nil
}

// --- SAML session ---

const (
	SAMLSessionEntityType = "saml_session"

	SAMLSessionEventCreated    = "saml.session.created"
	SAMLSessionEventTerminated = "saml.session.terminated"
)

type samlSessionSnapshot struct {
	InstanceID string    `json:"instanceId"`
	OrgID      string    `json:"orgId"`
	RequestID  string    `json:"requestId"`
	UserID     string    `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Terminated bool      `json:"terminated"`
}

// SAMLSession is established once a SAMLRequest is successfully linked; it
// bears an absolute expiration and can be closed either explicitly or by
// time alone.
type SAMLSession struct {
	*ddd.BaseEntity

	InstanceID string
	OrgID      string
	RequestID  string
	UserID     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Terminated bool
}

// NewSAMLSessionShell returns an unsaved aggregate shell for a repository
// to replay history into.
func NewSAMLSessionShell(id string) *SAMLSession {
	return &SAMLSession{BaseEntity: ddd.NewBaseEntity(id)}
}

// NewSAMLSession creates the session a successfully linked SAMLRequest
// establishes, valid for ttl.
func NewSAMLSession(instanceID, orgID, requestID, userID string, ttl time.Duration) (*SAMLSession, error) {
	if instanceID == "" || orgID == "" {
		return nil, fmt.Errorf("saml session: instanceID and orgID are required")
	}
	if requestID == "" || userID == "" {
		return nil, fmt.Errorf("saml session: requestID and userID are required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("saml session: ttl must be positive")
	}

	now := time.Now()
	s := NewSAMLSessionShell(ksuid.New().String())
	s.InstanceID = instanceID
	s.OrgID = orgID
	s.RequestID = requestID
	s.UserID = userID
	s.CreatedAt = now
	s.ExpiresAt = now.Add(ttl)

	if err := s.record(SAMLSessionEventCreated); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SAMLSession) record(eventType string) error {
	snap := samlSessionSnapshot{
		InstanceID: s.InstanceID,
		OrgID:      s.OrgID,
		RequestID:  s.RequestID,
		UserID:     s.UserID,
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
		Terminated: s.Terminated,
	}
	return s.RecordEvent(snap, eventType)
}

// IsActive reports whether the session is neither explicitly terminated
// nor past its absolute expiration as of now.
func (s *SAMLSession) IsActive(now time.Time) bool {
	return !s.Terminated && now.Before(s.ExpiresAt)
}

// Terminate explicitly closes the session. Terminating an already-
// terminated session is idempotent.
func (s *SAMLSession) Terminate() error {
	if s.Terminated {
		return nil
	}
	s.Terminated = true
	return s.record(SAMLSessionEventTerminated)
}

func (s *SAMLSession) apply(env esdomain.EventEnvelope[any]) error {
	data, err := decodeSnapshot[samlSessionSnapshot](env.Payload)
	if err != nil {
		return err
	}
	s.InstanceID = data.InstanceID
	s.OrgID = data.OrgID
	s.RequestID = data.RequestID
	s.UserID = data.UserID
	s.CreatedAt = data.CreatedAt
	s.ExpiresAt = data.ExpiresAt
	s.Terminated = data.Terminated
	return nil
}

// LoadFromHistory replays a persisted event history into a fresh SAMLSession.
func (s *SAMLSession) LoadFromHistory(ctx context.Context, envelopes []esdomain.EventEnvelope[any]) error {
	for _, env := range envelopes {
		if err := s.BaseEntity.ApplyEvent(ctx, env); err != nil {
			return err
		}
		if err := s.apply(env); err != nil {
			return err
		}
	}
	return nil
}

// metadataEntityDescriptor is the minimal shape checked when SAML IDP
// metadata is supplied inline: it must at least contain an
// EntityDescriptor element (spec.md §4.7).
type metadataEntityDescriptor struct {
	XMLName  xml.Name `xml:"EntityDescriptor"`
	EntityID string   `xml:"entityID,attr"`
}

// ValidateMetadataXML checks that raw minimally contains an
// EntityDescriptor, the way internal/domain/idp validates inline SAML
// metadata before accepting an IDP config.
func ValidateMetadataXML(raw []byte) error {
	var descriptor metadataEntityDescriptor
	if err := xml.Unmarshal(raw, &descriptor); err != nil {
		return fmt.Errorf("saml metadata: invalid XML: %w", err)
	}
	if descriptor.XMLName.Local != "EntityDescriptor" {
		return fmt.Errorf("saml metadata: missing EntityDescriptor element")
	}
	return nil
}
