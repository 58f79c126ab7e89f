// Package query implements the §2/§4.4 query layer: point lookups and
// searches over the event log and its projections, the only way a command
// may observe state belonging to an aggregate it is not itself loading.
// Command engines depend on *Service instead of reaching into eventlog.Store
// or internal/projection directly, so every cross-aggregate read goes
// through one auditable seam.
package query

import (
	"context"

	"github.com/nexusiam/core/internal/domain/org"
	"github.com/nexusiam/core/internal/eventlog"
)

// Service is the read API described by spec.md's system overview table:
// "Point lookups and searches over projections". It wraps the same
// eventlog.Store the write side uses (cross-aggregate reads must see events
// up to the same global position a command's own load did) plus, where
// configured, a point-lookup projection for state that would be expensive
// to rebuild by folding the whole log on every read.
type Service struct {
	store  eventlog.Store
	lookup PointLookup
}

// PointLookup is the narrow interface internal/projection.BigtableLookupProjection
// satisfies, kept here so this package doesn't import cloud.google.com/go/bigtable
// transitively just to declare its dependency.
type PointLookup interface {
	Lookup(ctx context.Context, key string) (payload []byte, ok bool, err error)
}

// NewService builds a query service backed by store with no point-lookup
// projection wired in; Lookup returns ErrNoLookupConfigured until one is.
func NewService(store eventlog.Store) *Service {
	return &Service{store: store}
}

// NewServiceWithLookup builds a query service backed by store and a
// configured point-lookup projection (e.g. the Bigtable-backed one keyed on
// OAuth/SAML state or PAR request_uri).
func NewServiceWithLookup(store eventlog.Store, lookup PointLookup) *Service {
	return &Service{store: store, lookup: lookup}
}

// Events runs a cross-aggregate search over the log, per spec.md §3's
// `query(filter) -> events`: results come back in (aggregateID,
// aggregateVersion) order for a single aggregate, or globalPosition order
// across several.
func (s *Service) Events(ctx context.Context, filter eventlog.Filter) ([]*eventlog.Event, error) {
	return s.store.Query(ctx, filter)
}

// UsernameIndex rebuilds the org's username uniqueness index by folding
// every user.* event scoped to orgID, the way internal/command/user.go
// needs it before accepting a new or renamed username.
func (s *Service) UsernameIndex(ctx context.Context, orgID string) (*org.UsernameIndex, error) {
	return org.LoadUsernameIndex(ctx, s.store, orgID)
}

// ErrNoLookupConfigured is returned by Lookup when the service was built
// with NewService rather than NewServiceWithLookup.
var ErrNoLookupConfigured = lookupNotConfiguredError{}

type lookupNotConfiguredError struct{}

func (lookupNotConfiguredError) Error() string {
	return "query: no point-lookup projection configured"
}

// Lookup resolves key (an OAuth/SAML state token or PAR request_uri)
// against the configured point-lookup projection.
func (s *Service) Lookup(ctx context.Context, key string) (payload []byte, ok bool, err error) {
	if s.lookup == nil {
		return nil, false, ErrNoLookupConfigured
	}
	return s.lookup.Lookup(ctx, key)
}
