package command

import (
	"context"

	"github.com/nexusiam/core/internal/apperr"
	"github.com/nexusiam/core/internal/domain/user"
	"github.com/nexusiam/core/internal/eventlog"
	"github.com/nexusiam/core/internal/query"
)

// UserCommands implements the §4.3 command engine for the user aggregate.
// Commands that touch the username (AddHumanUser, AddMachineUser,
// ChangeUsername) additionally consult the query layer's UsernameIndex to
// enforce cross-aggregate uniqueness before pushing (spec.md §2: the query
// layer is the only way a command may observe another aggregate's state).
type UserCommands struct {
	queries *query.Service
	repo    *eventlog.Repository[*user.User]
}

// NewUserCommands builds the command engine for the user aggregate backed
// by store, routing cross-aggregate reads through queries.
func NewUserCommands(store eventlog.Store, queries *query.Service) *UserCommands {
	return &UserCommands{
		queries: queries,
		repo:    eventlog.NewRepository(store, user.EntityType, user.New),
	}
}

// AddHumanUser creates a human user in cmdCtx.OrgID. Rejects with
// ALREADY_EXISTS when the username is already held case-insensitively by
// another user in the org (spec.md §4.3, Testable Property 5 / example S1).
func (c *UserCommands) AddHumanUser(ctx context.Context, cmdCtx Context, username, email, phone string) (*user.User, ObjectDetails, error) {
	if username == "" {
		return nil, ObjectDetails{}, apperr.New(apperr.InvalidArgument, "USERv2-001", "username is required")
	}

	idx, err := c.queries.UsernameIndex(ctx, cmdCtx.OrgID)
	if err != nil {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.Unavailable, "USERv2-002", "failed to load username index", err)
	}
	if !idx.Available(username, "") {
		return nil, ObjectDetails{}, apperr.New(apperr.AlreadyExists, "USERv2-003", "username already taken in this org")
	}

	u := user.NewHuman(cmdCtx.InstanceID, cmdCtx.OrgID, username, email, phone)
	return c.save(ctx, u, "USERv2-004", "USERv2-005")
}

// AddMachineUser creates a machine (service) account, subject to the same
// per-org username uniqueness as human users.
func (c *UserCommands) AddMachineUser(ctx context.Context, cmdCtx Context, username string) (*user.User, ObjectDetails, error) {
	if username == "" {
		return nil, ObjectDetails{}, apperr.New(apperr.InvalidArgument, "USERv2-001", "username is required")
	}

	idx, err := c.queries.UsernameIndex(ctx, cmdCtx.OrgID)
	if err != nil {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.Unavailable, "USERv2-002", "failed to load username index", err)
	}
	if !idx.Available(username, "") {
		return nil, ObjectDetails{}, apperr.New(apperr.AlreadyExists, "USERv2-003", "username already taken in this org")
	}

	u := user.NewMachine(cmdCtx.InstanceID, cmdCtx.OrgID, username)
	return c.save(ctx, u, "USERv2-004", "USERv2-005")
}

// ChangeUsername renames a user, rejecting with ALREADY_EXISTS if another
// user in the same org already holds the new name.
func (c *UserCommands) ChangeUsername(ctx context.Context, cmdCtx Context, userID, newUsername string) (ObjectDetails, error) {
	u, err := c.load(ctx, userID)
	if err != nil {
		return ObjectDetails{}, err
	}

	idx, err := c.queries.UsernameIndex(ctx, cmdCtx.OrgID)
	if err != nil {
		return ObjectDetails{}, apperr.Wrap(apperr.Unavailable, "USERv2-002", "failed to load username index", err)
	}
	if !idx.Available(newUsername, userID) {
		return ObjectDetails{}, apperr.New(apperr.AlreadyExists, "USERv2-003", "username already taken in this org")
	}

	u.ChangeUsername(newUsername)
	_, details, err := c.finish(ctx, u, "USERv2-004", "USERv2-005")
	return details, err
}

// ChangeEmail updates a user's email address (resets its verified flag).
func (c *UserCommands) ChangeEmail(ctx context.Context, userID, newEmail string) (ObjectDetails, error) {
	return c.mutate(ctx, userID, func(u *user.User) { u.ChangeEmail(newEmail) })
}

// VerifyEmail marks a user's current email address as verified.
func (c *UserCommands) VerifyEmail(ctx context.Context, userID string) (ObjectDetails, error) {
	return c.mutate(ctx, userID, func(u *user.User) { u.VerifyEmail() })
}

// ChangePhone updates a user's phone number (resets its verified flag).
func (c *UserCommands) ChangePhone(ctx context.Context, userID, newPhone string) (ObjectDetails, error) {
	return c.mutate(ctx, userID, func(u *user.User) { u.ChangePhone(newPhone) })
}

// VerifyPhone marks a user's current phone number as verified.
func (c *UserCommands) VerifyPhone(ctx context.Context, userID string) (ObjectDetails, error) {
	return c.mutate(ctx, userID, func(u *user.User) { u.VerifyPhone() })
}

// Deactivate moves an active user to inactive.
func (c *UserCommands) Deactivate(ctx context.Context, userID string) (ObjectDetails, error) {
	return c.mutate(ctx, userID, func(u *user.User) { u.Deactivate() })
}

// Reactivate moves an inactive user back to active.
func (c *UserCommands) Reactivate(ctx context.Context, userID string) (ObjectDetails, error) {
	return c.mutate(ctx, userID, func(u *user.User) { u.Reactivate() })
}

// Lock moves an active user to locked (e.g. after repeated auth failures).
func (c *UserCommands) Lock(ctx context.Context, userID string) (ObjectDetails, error) {
	return c.mutate(ctx, userID, func(u *user.User) { u.Lock() })
}

// Unlock moves a locked user back to active.
func (c *UserCommands) Unlock(ctx context.Context, userID string) (ObjectDetails, error) {
	return c.mutate(ctx, userID, func(u *user.User) { u.Unlock() })
}

// Delete terminally removes a user, releasing its username for reuse.
func (c *UserCommands) Delete(ctx context.Context, userID string) (ObjectDetails, error) {
	return c.mutate(ctx, userID, func(u *user.User) { u.Delete() })
}

// AddIDPLink links an external identity to a user.
func (c *UserCommands) AddIDPLink(ctx context.Context, userID, idpConfigID, externalUserID string) (ObjectDetails, error) {
	return c.mutate(ctx, userID, func(u *user.User) { u.AddIDPLink(idpConfigID, externalUserID) })
}

// RemoveIDPLink unlinks a previously linked external identity.
func (c *UserCommands) RemoveIDPLink(ctx context.Context, userID, idpConfigID, externalUserID string) (ObjectDetails, error) {
	return c.mutate(ctx, userID, func(u *user.User) { u.RemoveIDPLink(idpConfigID, externalUserID) })
}

// Get loads a user by ID for read access (not itself a command).
func (c *UserCommands) Get(ctx context.Context, userID string) (*user.User, error) {
	return c.load(ctx, userID)
}

func (c *UserCommands) load(ctx context.Context, userID string) (*user.User, error) {
	u, err := c.repo.Load(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err, "USERv2-010")
	}
	return u, nil
}

// mutate loads the user, applies mutate, and saves — the shared shape of
// every single-aggregate user command that has no cross-aggregate
// precondition to check first.
func (c *UserCommands) mutate(ctx context.Context, userID string, apply func(*user.User)) (ObjectDetails, error) {
	u, err := c.load(ctx, userID)
	if err != nil {
		return ObjectDetails{}, err
	}
	apply(u)
	_, details, err := c.finish(ctx, u, "USERv2-004", "USERv2-005")
	return details, err
}

// save validates a newly constructed aggregate and persists it.
func (c *UserCommands) save(ctx context.Context, u *user.User, validationID, saveID string) (*user.User, ObjectDetails, error) {
	return c.finish(ctx, u, validationID, saveID)
}

// finish is the tail shared by every command: reject invalid state
// transitions, treat an empty delta as an idempotent no-op (§4.3 step 5),
// otherwise push and return ObjectDetails from the newly pushed event.
func (c *UserCommands) finish(ctx context.Context, u *user.User, validationID, saveID string) (*user.User, ObjectDetails, error) {
	if !u.IsValid() {
		return nil, ObjectDetails{}, apperr.Wrap(apperr.PreconditionFailed, validationID, "user precondition failed", firstError(u.Errors()))
	}

	pending := u.UncommittedEvents()
	if len(pending) == 0 {
		return u, ObjectDetails{
			Sequence:      int64(u.Version()),
			ResourceOwner: u.OrgID,
		}, nil
	}

	if err := c.repo.Save(ctx, u); err != nil {
		return nil, ObjectDetails{}, mapStoreErr(err, saveID)
	}

	return u, detailsFromEvent(pending[len(pending)-1]), nil
}
