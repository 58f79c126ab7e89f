package fedauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/nexusiam/core/pkg/ddd"
	esdomain "github.com/nexusiam/core/pkg/eventsourcing/domain"
)

// PARExpiry is the RFC 9126 lifetime of a pushed authorization request's
// request_uri: 90 seconds.
const PARExpiry = 90 * time.Second

// RequestURIPrefix is the URN prefix every generated request_uri carries,
// per RFC 9126 §2.2.
const RequestURIPrefix = "urn:ietf:params:oauth:request_uri:"

const (
	AuthRequestEntityType = "auth_request"

	AuthRequestEventCreated  = "auth_request.created"
	AuthRequestEventConsumed = "auth_request.consumed"
)

type authRequestSnapshot struct {
	InstanceID string            `json:"instanceId"`
	OrgID      string            `json:"orgId"`
	ClientID   string            `json:"clientId"`
	Params     map[string]string `json:"params"`
	CreatedAt  time.Time         `json:"createdAt"`
	ExpiresAt  time.Time         `json:"expiresAt"`
	Consumed   bool              `json:"consumed"`
}

// AuthRequest is a pushed authorization request (RFC 9126): the
// authorization parameters a client pushed server-side, addressable
// thereafter by its request_uri instead of a query string.
type AuthRequest struct {
	*ddd.BaseEntity

	InstanceID string
	OrgID      string
	ClientID   string
	Params     map[string]string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Consumed   bool
}

// NewAuthRequestShell returns an unsaved aggregate shell for a repository
// to replay history into. id is the request_uri (including its URN
// prefix), making a point lookup by request_uri a direct aggregate load.
func NewAuthRequestShell(id string) *AuthRequest {
	return &AuthRequest{BaseEntity: ddd.NewBaseEntity(id)}
}

// CreatePushedAuthRequest implements createPushedAuthRequest: it stores
// params under a freshly generated request_uri with a 90-second lifetime.
func CreatePushedAuthRequest(instanceID, orgID, clientID string, params map[string]string) (*AuthRequest, error) {
	if instanceID == "" || orgID == "" {
		return nil, fmt.Errorf("auth request: instanceID and orgID are required")
	}
	if clientID == "" {
		return nil, fmt.Errorf("auth request: clientID is required")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("auth request: generate request_uri: %w", err)
	}
	requestURI := RequestURIPrefix + hex.EncodeToString(buf)

	now := time.Now()
	cp := make(map[string]string, len(params))
	for k, v := range params {
		cp[k] = v
	}

	a := NewAuthRequestShell(requestURI)
	a.InstanceID = instanceID
	a.OrgID = orgID
	a.ClientID = clientID
	a.Params = cp
	a.CreatedAt = now
	a.ExpiresAt = now.Add(PARExpiry)

	if err := a.record(AuthRequestEventCreated); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AuthRequest) record(eventType string) error {
	snap := authRequestSnapshot{
		InstanceID: a.InstanceID,
		OrgID:      a.OrgID,
		ClientID:   a.ClientID,
		Params:     a.Params,
		CreatedAt:  a.CreatedAt,
		ExpiresAt:  a.ExpiresAt,
		Consumed:   a.Consumed,
	}
	return a.RecordEvent(snap, eventType)
}

// IsExpired reports whether now is past the request's 90-second window.
func (a *AuthRequest) IsExpired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// Consume marks the request_uri used, enforcing RFC 9126's single-use
// requirement: a second Consume call on the same request fails.
func (a *AuthRequest) Consume() error {
	if a.Consumed {
		return fmt.Errorf("auth request: request_uri already consumed")
	}
	a.Consumed = true
	return a.record(AuthRequestEventConsumed)
}

func (a *AuthRequest) apply(env esdomain.EventEnvelope[any]) error {
	data, err := decodeSnapshot[authRequestSnapshot](env.Payload)
	if err != nil {
		return err
	}
	a.InstanceID = data.InstanceID
	a.OrgID = data.OrgID
	a.ClientID = data.ClientID
	a.Params = data.Params
	a.CreatedAt = data.CreatedAt
	a.ExpiresAt = data.ExpiresAt
	a.Consumed = data.Consumed
	return nil
}

// LoadFromHistory replays a persisted event history into a fresh AuthRequest.
func (a *AuthRequest) LoadFromHistory(ctx context.Context, envelopes []esdomain.EventEnvelope[any]) error {
	for _, env := range envelopes {
		if err := a.BaseEntity.ApplyEvent(ctx, env); err != nil {
			return err
		}
		if err := a.apply(env); err != nil {
			return err
		}
	}
	return nil
}
