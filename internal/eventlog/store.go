package eventlog

import (
	"context"
	"errors"
)

// ErrConcurrency is returned by Push/PushMany when expectedVersion does not
// match the aggregate's current version in the store.
var ErrConcurrency = errors.New("eventlog: concurrency conflict")

// ErrNotFound is returned by Load when no events exist for the aggregate.
var ErrNotFound = errors.New("eventlog: aggregate not found")

// Store is the append-only persistence boundary every IAM aggregate is
// built on. GormStore, MemoryStore, and DynamoStore all implement it, so a
// deployment can swap the backing store without touching aggregate code.
type Store interface {
	// Push appends a single event for aggregateID, failing with
	// ErrConcurrency if expectedVersion does not match the aggregate's
	// current version. Returns the event with AggregateVersion and
	// GlobalPosition populated.
	Push(ctx context.Context, aggregateID string, expectedVersion int64, event *Event) (*Event, error)

	// PushMany appends a batch of events for aggregateID atomically, under
	// a single expectedVersion check against the version before the first
	// event in the batch.
	PushMany(ctx context.Context, aggregateID string, expectedVersion int64, events []*Event) ([]*Event, error)

	// Load returns every event recorded for aggregateID, ordered by
	// AggregateVersion ascending.
	Load(ctx context.Context, aggregateID string) ([]*Event, error)

	// LoadFromVersion returns events for aggregateID with
	// AggregateVersion >= fromVersion, for incremental reconstruction.
	LoadFromVersion(ctx context.Context, aggregateID string, fromVersion int64) ([]*Event, error)

	// Query returns events across aggregates matching filter, ordered by
	// GlobalPosition ascending. Used by the projection runtime and audit
	// exports, never by aggregate reconstruction.
	Query(ctx context.Context, filter Filter) ([]*Event, error)

	// CurrentVersion returns the latest AggregateVersion recorded for
	// aggregateID, or 0 if the aggregate has no events yet.
	CurrentVersion(ctx context.Context, aggregateID string) (int64, error)

	Close() error
}
