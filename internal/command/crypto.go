package command

import (
	"context"
	"time"

	"github.com/nexusiam/core/internal/apperr"
	"github.com/nexusiam/core/internal/domain/crypto"
	"github.com/nexusiam/core/internal/domain/user"
	"github.com/nexusiam/core/internal/eventlog"
	"github.com/segmentio/ksuid"
)

// CryptoCommands implements the §4.8 command engine for non-event-sourced
// key material: PAT issuance (which also mutates the user aggregate) and
// webhook signing key rotation.
type CryptoCommands struct {
	store    crypto.Store
	userRepo *eventlog.Repository[*user.User]
}

// NewCryptoCommands builds the command engine for PAT and signing-key
// commands, backed by keyStore for key material and eventStore for the
// user aggregate.
func NewCryptoCommands(keyStore crypto.Store, eventStore eventlog.Store) *CryptoCommands {
	return &CryptoCommands{
		store:    keyStore,
		userRepo: eventlog.NewRepository(eventStore, user.EntityType, user.New),
	}
}

// IssuePAT mints a new personal access token for userID and records its
// digest on the user aggregate. The plaintext token is returned exactly
// once and is never persisted.
func (c *CryptoCommands) IssuePAT(ctx context.Context, userID string, expiresAt time.Time) (token string, details ObjectDetails, err error) {
	u, err := c.userRepo.Load(ctx, userID)
	if err != nil {
		return "", ObjectDetails{}, mapStoreErr(err, "CRYPTOv2-010")
	}

	token, digest, err := crypto.GeneratePAT()
	if err != nil {
		return "", ObjectDetails{}, apperr.Wrap(apperr.Internal, "CRYPTOv2-001", "failed to generate PAT", err)
	}

	u.AddPAT(ksuid.New().String(), digest, expiresAt)
	if !u.IsValid() {
		return "", ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, "CRYPTOv2-002", "pat precondition failed", firstError(u.Errors()))
	}

	pending := u.UncommittedEvents()
	if len(pending) == 0 {
		return "", ObjectDetails{}, apperr.New(apperr.Internal, "CRYPTOv2-003", "pat issuance produced no event")
	}
	if err := c.userRepo.Save(ctx, u); err != nil {
		return "", ObjectDetails{}, mapStoreErr(err, "CRYPTOv2-004")
	}
	return token, detailsFromEvent(pending[len(pending)-1]), nil
}

// RevokePAT invalidates a previously issued token by ID.
func (c *CryptoCommands) RevokePAT(ctx context.Context, userID, patID string) (ObjectDetails, error) {
	u, err := c.userRepo.Load(ctx, userID)
	if err != nil {
		return ObjectDetails{}, mapStoreErr(err, "CRYPTOv2-010")
	}
	u.RevokePAT(patID)
	if !u.IsValid() {
		return ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, "CRYPTOv2-002", "pat precondition failed", firstError(u.Errors()))
	}

	pending := u.UncommittedEvents()
	if len(pending) == 0 {
		return ObjectDetails{Sequence: int64(u.Version()), ResourceOwner: u.OrgID}, nil
	}
	if err := c.userRepo.Save(ctx, u); err != nil {
		return ObjectDetails{}, mapStoreErr(err, "CRYPTOv2-004")
	}
	return detailsFromEvent(pending[len(pending)-1]), nil
}

// RotateWebhookSigningKey generates a fresh HMAC key for targetID, keeping
// the previous key live for the rollout window (spec.md §4.8) so
// in-flight signature verification against the old key does not break.
func (c *CryptoCommands) RotateWebhookSigningKey(targetID string) (*crypto.WebhookSigningKey, error) {
	newKey, err := crypto.GenerateKey(32)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "CRYPTOv2-001", "failed to generate signing key", err)
	}
	key, err := c.store.RotateWebhookSigningKey(targetID, newKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "CRYPTOv2-005", "failed to rotate signing key", err)
	}
	return key, nil
}

// GetWebhookSigningKey returns the current (and, during rollout, previous)
// signing key for targetID.
func (c *CryptoCommands) GetWebhookSigningKey(targetID string) (*crypto.WebhookSigningKey, error) {
	key, err := c.store.GetWebhookSigningKey(targetID)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "CRYPTOv2-011", "signing key not found", err)
	}
	return key, nil
}
