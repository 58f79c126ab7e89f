package ddstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/nexusiam/core/pkg/eventsourcing/domain"
)

// ErrNotFound is returned by Repository.Load when an aggregate has no
// recorded history, mirroring internal/eventlog.ErrNotFound for the second
// kernel.
var ErrNotFound = errors.New("ddstore: aggregate not found")

// Replayable is the shape every pkg/ddd.BaseEntity-based aggregate exposes,
// enough for Repository to load and save it without knowing its concrete
// type's state-mutation logic.
type Replayable interface {
	GetID() string
	GetSequenceNo() int
	GetUncommittedEvents() []domain.EventEnvelope[any]
	ClearUncommittedEvents()
	LoadFromHistory(ctx context.Context, events []domain.EventEnvelope[any]) error
}

// NewAggregateFunc constructs an unsaved shell of T with the given ID, for
// Repository.Load to replay history into.
type NewAggregateFunc[T Replayable] func(id string) T

// Repository is the generic load/save boundary for the second kernel,
// mirroring internal/eventlog.Repository's shape for the first.
type Repository[T Replayable] struct {
	store        domain.EventStore
	newAggregate NewAggregateFunc[T]
}

// NewRepository builds a Repository backed by store, using newAggregate to
// construct empty shells on Load.
func NewRepository[T Replayable](store domain.EventStore, newAggregate NewAggregateFunc[T]) *Repository[T] {
	return &Repository[T]{store: store, newAggregate: newAggregate}
}

// Load replays id's full event history into a fresh T. Returns ErrNotFound
// if no events are recorded.
func (r *Repository[T]) Load(ctx context.Context, id string) (T, error) {
	var zero T
	events, err := r.store.GetEvents(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("ddstore: load %q: %w", id, err)
	}
	if len(events) == 0 {
		return zero, ErrNotFound
	}

	aggregate := r.newAggregate(id)
	if err := aggregate.LoadFromHistory(ctx, events); err != nil {
		return zero, fmt.Errorf("ddstore: replay %q: %w", id, err)
	}
	return aggregate, nil
}

// Save appends aggregate's uncommitted events, enforcing that no other
// writer has appended to the same aggregate since it was loaded, then
// clears the uncommitted buffer.
func (r *Repository[T]) Save(ctx context.Context, aggregate T) error {
	pending := aggregate.GetUncommittedEvents()
	if len(pending) == 0 {
		return nil
	}

	expectedVersion := aggregate.GetSequenceNo() - len(pending) + 1
	if err := r.store.Append(ctx, aggregate.GetID(), expectedVersion, pending...); err != nil {
		return fmt.Errorf("ddstore: save %q: %w", aggregate.GetID(), err)
	}
	aggregate.ClearUncommittedEvents()
	return nil
}
