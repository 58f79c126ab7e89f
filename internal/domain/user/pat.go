package user

import (
	"fmt"
	"time"
)

// PAT is a personal access token issued to a human or machine user. Only
// the SHA-256 digest is stored in the event log (see
// internal/domain/crypto.HashToken); the plaintext token is returned to the
// caller exactly once, at issuance, and never persisted.
type PAT struct {
	ID         string    `json:"id"`
	Digest     string    `json:"digest"`
	ExpiresAt  time.Time `json:"expiresAt,omitempty"`
	Revoked    bool      `json:"revoked"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AddPAT records a newly issued token's digest against the user. The
// plaintext token and its ID are minted by the command layer (see
// internal/domain/crypto.GeneratePAT) before this is called.
func (u *User) AddPAT(id, digest string, expiresAt time.Time) {
	if !u.mustBeActive() {
		return
	}
	if id == "" || digest == "" {
		u.AddError(fmt.Errorf("user: pat id and digest are required"))
		return
	}
	u.PATs = append(u.PATs, PAT{ID: id, Digest: digest, ExpiresAt: expiresAt, CreatedAt: time.Now()})
	u.emit(EventPATAdded)
}

// RevokePAT invalidates a previously issued token by ID.
func (u *User) RevokePAT(id string) {
	if !u.mustBeActive() {
		return
	}
	for i := range u.PATs {
		if u.PATs[i].ID == id {
			if u.PATs[i].Revoked {
				return
			}
			u.PATs[i].Revoked = true
			u.emit(EventPATRevoked)
			return
		}
	}
	u.AddError(fmt.Errorf("user: pat %q not found", id))
}

// MatchPAT reports whether digest matches a live (non-revoked,
// non-expired) token on this user, and if so returns its ID.
func (u *User) MatchPAT(digest string, now time.Time) (string, bool) {
	for _, p := range u.PATs {
		if p.Digest != digest || p.Revoked {
			continue
		}
		if !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt) {
			continue
		}
		return p.ID, true
	}
	return "", false
}
