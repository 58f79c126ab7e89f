// Package org implements the Org aggregate and the cross-aggregate write
// models scoped to one org, chief among them the username uniqueness index
// required by §4.3 of the command engine design.
package org

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nexusiam/core/internal/eventlog"
)

// ErrUsernameTaken is returned by commands that try to claim a username
// already held by another active/inactive/locked user in the org.
var ErrUsernameTaken = errors.New("org: username already taken")

// userSnapshot is the subset of the user aggregate's event payload the
// index needs. Every user.* event carries a full state snapshot (see
// internal/domain/user), so this partial decode works for any of them.
type userSnapshot struct {
	Username string `json:"username"`
	State    string `json:"state"`
}

// UsernameIndex is a dedicated write model folding every user.* event
// scoped to one org into a case-insensitive username -> userID map, per
// §4.3's "cross-aggregate uniqueness" design. Deleted users release their
// name; deactivated or locked users retain it.
type UsernameIndex struct {
	OrgID string
	names map[string]string // lowercased username -> userID
}

// NewUsernameIndex returns an empty index for the given org, ready to
// Reduce events into.
func NewUsernameIndex(orgID string) *UsernameIndex {
	return &UsernameIndex{OrgID: orgID, names: make(map[string]string)}
}

// Reduce folds one event into the index. Events not addressed to this
// org, or not a user event, are ignored.
func (idx *UsernameIndex) Reduce(event *eventlog.Event) {
	if event.AggregateType() != "user" || event.Owner() != idx.OrgID {
		return
	}

	var snap userSnapshot
	if err := json.Unmarshal(event.Payload(), &snap); err != nil {
		return
	}

	userID := event.AggregateID()
	if snap.State == "deleted" {
		for name, id := range idx.names {
			if id == userID {
				delete(idx.names, name)
			}
		}
		return
	}
	if snap.Username == "" {
		return
	}

	key := strings.ToLower(snap.Username)
	// A rename may have freed the previous key; drop any stale entry for
	// this user before recording the current one.
	for name, id := range idx.names {
		if id == userID && name != key {
			delete(idx.names, name)
		}
	}
	idx.names[key] = userID
}

// Available reports whether username is free within the org, or already
// held by holderID (so a no-op rename to one's own current name passes).
func (idx *UsernameIndex) Available(username, holderID string) bool {
	id, taken := idx.names[strings.ToLower(username)]
	return !taken || id == holderID
}

// Lookup returns the userID currently holding username, if any.
func (idx *UsernameIndex) Lookup(username string) (string, bool) {
	id, ok := idx.names[strings.ToLower(username)]
	return id, ok
}

// LoadUsernameIndex queries the event log for every user.* event scoped to
// orgID and folds it into a fresh index. Per §4.2, this load happens in the
// same transaction/snapshot-of-the-log as the user aggregate being mutated,
// so a caller adding a new user should load both before deciding.
func LoadUsernameIndex(ctx context.Context, store eventlog.Store, orgID string) (*UsernameIndex, error) {
	events, err := store.Query(ctx, eventlog.Filter{
		Owner:          orgID,
		AggregateTypes: []string{"user"},
	})
	if err != nil {
		return nil, err
	}

	idx := NewUsernameIndex(orgID)
	for _, event := range events {
		idx.Reduce(event)
	}
	return idx, nil
}
