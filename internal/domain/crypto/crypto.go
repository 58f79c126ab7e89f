// Package crypto holds the cryptographic material IAM operations depend on
// that is deliberately NOT event sourced: encryption keys and webhook
// signing keys are looked up by current value, not replayed from history,
// so they live in a plain keyed table instead of internal/eventlog.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrKeyNotFound is returned by a Store lookup when no key is registered
// for the given instance/identifier pair.
var ErrKeyNotFound = errors.New("crypto: key not found")

// EncryptionKey is a symmetric key used to encrypt sensitive aggregate
// fields at rest (e.g. IDP client secrets, SAML signing certs). Unique per
// (InstanceID, Identifier).
type EncryptionKey struct {
	InstanceID string    `gorm:"primaryKey;column:instance_id"`
	Identifier string    `gorm:"primaryKey;column:identifier"`
	Material   []byte    `gorm:"column:material"`
	Algorithm  string    `gorm:"column:algorithm"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// WebhookSigningKey is the current (and, during a rotation window,
// previous) HMAC key used to sign webhook deliveries for one target, so a
// receiver validating with the previous key during rollout is not rejected.
type WebhookSigningKey struct {
	TargetID  string    `gorm:"primaryKey;column:target_id"`
	Current   []byte    `gorm:"column:current"`
	Previous  []byte    `gorm:"column:previous"`
	RotatedAt time.Time `gorm:"column:rotated_at"`
}

// Store is the persistence boundary for non-event-sourced key material.
// GormStore is the production implementation; MemoryStore backs tests.
type Store interface {
	GetEncryptionKey(instanceID, identifier string) (*EncryptionKey, error)
	PutEncryptionKey(key *EncryptionKey) error

	GetWebhookSigningKey(targetID string) (*WebhookSigningKey, error)
	RotateWebhookSigningKey(targetID string, newKey []byte) (*WebhookSigningKey, error)
}

// GenerateKey returns n cryptographically random bytes, used for both
// encryption key material and webhook signing keys.
func GenerateKey(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return buf, nil
}

// GeneratePAT mints a new personal access token: a random 32-byte
// plaintext token (returned once, never persisted) and its SHA-256 digest
// (the only form stored, on the user aggregate via user.User.AddPAT).
func GeneratePAT() (token string, digest string, err error) {
	raw, err := GenerateKey(32)
	if err != nil {
		return "", "", err
	}
	token = "pat_" + hex.EncodeToString(raw)
	return token, HashToken(token), nil
}

// HashToken returns the hex-encoded SHA-256 digest of token, the only form
// of a PAT that is ever persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
