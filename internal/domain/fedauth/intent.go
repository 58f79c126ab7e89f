package fedauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/nexusiam/core/pkg/ddd"
	esdomain "github.com/nexusiam/core/pkg/eventsourcing/domain"
	"github.com/segmentio/ksuid"
)

// IntentExpiry is how long an IDP intent lives before handleOAuthCallback
// must reject it with PRECONDITION_FAILED (spec.md §4.5).
const IntentExpiry = 10 * time.Minute

// IntentType distinguishes a plain OAuth2 flow (no ID token, no nonce
// validation) from OIDC (ID token with nonce/issuer/audience checks).
type IntentType string

const (
	IntentOAuth IntentType = "oauth"
	IntentOIDC  IntentType = "oidc"
)

// IntentState is the intent's lifecycle: started -> succeeded|failed,
// single-use past that point.
type IntentState string

const (
	IntentStateUnspecified IntentState = "unspecified"
	IntentStateStarted     IntentState = "started"
	IntentStateSucceeded   IntentState = "succeeded"
	IntentStateFailed      IntentState = "failed"
)

const (
	IntentEntityType = "idp_intent"

	IntentEventStarted   = "idp.intent.started"
	IntentEventSucceeded = "idp.intent.succeeded"
	IntentEventFailed    = "idp.intent.failed"
)

// Claims is the normalized userinfo/ID-token claim set handleOAuthCallback
// produces, independent of the specific IDP's raw claim names.
type Claims struct {
	ExternalUserID string `json:"externalUserId"`
	Email          string `json:"email"`
	EmailVerified  bool   `json:"emailVerified"`
	Username       string `json:"username"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	DisplayName    string `json:"displayName"`
	AvatarURL      string `json:"avatarUrl"`
	Locale         string `json:"locale"`
}

type intentSnapshot struct {
	InstanceID    string      `json:"instanceId"`
	OrgID         string      `json:"orgId"`
	IDPID         string      `json:"idpId"`
	Type          IntentType  `json:"type"`
	RedirectURI   string      `json:"redirectUri"`
	AuthRequestID string      `json:"authRequestId,omitempty"`
	State         string      `json:"state"`
	CodeVerifier  string      `json:"codeVerifier"`
	Nonce         string      `json:"nonce"`
	CreatedAt     time.Time   `json:"createdAt"`
	ExpiresAt     time.Time   `json:"expiresAt"`
	Status        IntentState `json:"status"`
	UserID        string      `json:"userId,omitempty"`
	Claims        *Claims     `json:"claims,omitempty"`
	FailReason    string      `json:"failReason,omitempty"`
}

// Intent is the server-side state of an in-flight federated-login attempt
// against one configured IDP.
type Intent struct {
	*ddd.BaseEntity

	InstanceID    string
	OrgID         string
	IDPID         string
	Type          IntentType
	RedirectURI   string
	AuthRequestID string

	// State is the random, unguessable value (≥32 bytes, hex-encoded) a
	// caller must echo back on callback; it is also this aggregate's own
	// identity so getIDPIntentByState is a direct point lookup.
	State        string
	CodeVerifier string
	Nonce        string

	CreatedAt time.Time
	ExpiresAt time.Time
	Status    IntentState

	UserID     string
	Claims     *Claims
	FailReason string
}

// NewIntentShell returns an unsaved aggregate shell for a repository to
// replay history into.
func NewIntentShell(id string) *Intent {
	return &Intent{BaseEntity: ddd.NewBaseEntity(id), Status: IntentStateUnspecified}
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// StartIntent implements startIDPIntent: it mints a cryptographically
// random state (32 bytes, well past the spec's 32-byte floor once
// hex-encoded), a PKCE code verifier, and an OIDC nonce, and records
// idp.intent.started. The returned Intent's State field is both the
// random value and the aggregate's own ID.
func StartIntent(instanceID, orgID, idpID string, typ IntentType, redirectURI, authRequestID string) (*Intent, error) {
	if instanceID == "" || orgID == "" {
		return nil, fmt.Errorf("idp intent: instanceID and orgID are required")
	}
	if idpID == "" {
		return nil, fmt.Errorf("idp intent: idpID is required")
	}
	if redirectURI == "" {
		return nil, fmt.Errorf("idp intent: redirectURI is required")
	}
	switch typ {
	case IntentOAuth, IntentOIDC:
	default:
		return nil, fmt.Errorf("idp intent: unsupported type %q", typ)
	}

	state, err := randomHex(32)
	if err != nil {
		return nil, fmt.Errorf("idp intent: generate state: %w", err)
	}
	verifier, err := randomHex(32)
	if err != nil {
		return nil, fmt.Errorf("idp intent: generate code verifier: %w", err)
	}
	nonce, err := randomHex(16)
	if err != nil {
		return nil, fmt.Errorf("idp intent: generate nonce: %w", err)
	}

	now := time.Now()
	i := NewIntentShell(state)
	i.InstanceID = instanceID
	i.OrgID = orgID
	i.IDPID = idpID
	i.Type = typ
	i.RedirectURI = redirectURI
	i.AuthRequestID = authRequestID
	i.State = state
	i.CodeVerifier = verifier
	i.Nonce = nonce
	i.CreatedAt = now
	i.ExpiresAt = now.Add(IntentExpiry)
	i.Status = IntentStateStarted

	if err := i.record(IntentEventStarted); err != nil {
		return nil, err
	}
	return i, nil
}

func (i *Intent) record(eventType string) error {
	snap := intentSnapshot{
		InstanceID:    i.InstanceID,
		OrgID:         i.OrgID,
		IDPID:         i.IDPID,
		Type:          i.Type,
		RedirectURI:   i.RedirectURI,
		AuthRequestID: i.AuthRequestID,
		State:         i.State,
		CodeVerifier:  i.CodeVerifier,
		Nonce:         i.Nonce,
		CreatedAt:     i.CreatedAt,
		ExpiresAt:     i.ExpiresAt,
		Status:        i.Status,
		UserID:        i.UserID,
		Claims:        i.Claims,
		FailReason:    i.FailReason,
	}
	return i.RecordEvent(snap, eventType)
}

// IsExpired reports whether now is past the intent's expiry.
func (i *Intent) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Succeed records idp.intent.succeeded with the provisioned or matched
// user and the callback's normalized claims. At most one of Succeed/Fail
// may ever apply to a given intent (spec.md Testable Property 7).
func (i *Intent) Succeed(userID string, claims Claims) error {
	if i.Status != IntentStateStarted {
		return fmt.Errorf("idp intent: cannot succeed from state %q", i.Status)
	}
	i.Status = IntentStateSucceeded
	i.UserID = userID
	i.Claims = &claims
	return i.record(IntentEventSucceeded)
}

// Fail records idp.intent.failed, terminally closing the intent without a
// user match.
func (i *Intent) Fail(reason string) error {
	if i.Status != IntentStateStarted {
		return fmt.Errorf("idp intent: cannot fail from state %q", i.Status)
	}
	i.Status = IntentStateFailed
	i.FailReason = reason
	return i.record(IntentEventFailed)
}

func (i *Intent) apply(env esdomain.EventEnvelope[any]) error {
	data, err := decodeSnapshot[intentSnapshot](env.Payload)
	if err != nil {
		return err
	}
	i.InstanceID = data.InstanceID
	i.OrgID = data.OrgID
	i.IDPID = data.IDPID
	i.Type = data.Type
	i.RedirectURI = data.RedirectURI
	i.AuthRequestID = data.AuthRequestID
	i.State = data.State
	i.CodeVerifier = data.CodeVerifier
	i.Nonce = data.Nonce
	i.CreatedAt = data.CreatedAt
	i.ExpiresAt = data.ExpiresAt
	i.Status = data.Status
	i.UserID = data.UserID
	i.Claims = data.Claims
	i.FailReason = data.FailReason
	return nil
}

// LoadFromHistory replays a persisted event history into a fresh Intent.
func (i *Intent) LoadFromHistory(ctx context.Context, envelopes []esdomain.EventEnvelope[any]) error {
	for _, env := range envelopes {
		if err := i.BaseEntity.ApplyEvent(ctx, env); err != nil {
			return err
		}
		if err := i.apply(env); err != nil {
			return err
		}
	}
	return nil
}

// NewProvisionedUsername derives a username for a newly provisioned user
// from the callback's claims, per spec.md §4.5: claim username, else the
// email local-part, else a random fallback.
func NewProvisionedUsername(claims Claims) string {
	if claims.Username != "" {
		return claims.Username
	}
	if claims.Email != "" {
		for idx, r := range claims.Email {
			if r == '@' {
				return claims.Email[:idx]
			}
		}
		return claims.Email
	}
	return "user_" + ksuid.New().String()[:8]
}
