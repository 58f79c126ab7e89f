package command

import (
	"errors"

	"github.com/nexusiam/core/internal/apperr"
	"github.com/nexusiam/core/internal/ddstore"
	"github.com/nexusiam/core/internal/eventlog"
	pkgdomain "github.com/nexusiam/core/pkg/domain"
	esdomain "github.com/nexusiam/core/pkg/eventsourcing/domain"
)

// mapStoreErr classifies an eventlog.Store error into the closed taxonomy
// (spec.md §7): concurrency conflicts and not-found are distinguished from
// generic storage unavailability.
func mapStoreErr(err error, id string) *apperr.Error {
	switch {
	case errors.Is(err, eventlog.ErrConcurrency):
		return apperr.Wrap(apperr.ConcurrencyConflict, id, "aggregate was modified concurrently", err)
	case errors.Is(err, eventlog.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, id, "aggregate not found", err)
	default:
		return apperr.Wrap(apperr.Unavailable, id, "event store unavailable", err)
	}
}

// mapDDStoreErr is mapStoreErr's counterpart for the second kernel's
// internal/ddstore.Repository.
func mapDDStoreErr(err error, id string) *apperr.Error {
	switch {
	case errors.Is(err, esdomain.ErrConcurrencyConflict):
		return apperr.Wrap(apperr.ConcurrencyConflict, id, "aggregate was modified concurrently", err)
	case isDDStoreNotFound(err):
		return apperr.Wrap(apperr.NotFound, id, "aggregate not found", err)
	default:
		return apperr.Wrap(apperr.Unavailable, id, "event store unavailable", err)
	}
}

func isDDStoreNotFound(err error) bool {
	return errors.Is(err, ddstore.ErrNotFound)
}

// firstError returns the first validation error an aggregate collected, or
// a generic fallback if the slice is unexpectedly empty.
func firstError(errs []error) error {
	if len(errs) == 0 {
		return pkgdomain.NewValidationError("", "validation failed", nil)
	}
	return errs[0]
}
