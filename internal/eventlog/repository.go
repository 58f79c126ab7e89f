package eventlog

import (
	"context"
	"fmt"

	"github.com/nexusiam/core/pkg/domain"
)

// NewAggregateFunc constructs a zero-value aggregate ready to have history
// replayed into it via LoadFromHistory.
type NewAggregateFunc[T domain.AggregateRoot] func() T

// Repository adapts a Store to the teacher's generic
// domain.Repository[T AggregateRoot] interface. One Repository instance is
// built per aggregate type (user, org, project, ...), each pointed at the
// same underlying Store.
type Repository[T domain.AggregateRoot] struct {
	store         Store
	aggregateType string
	newAggregate  NewAggregateFunc[T]
}

// NewRepository builds a Repository for one aggregate type.
func NewRepository[T domain.AggregateRoot](store Store, aggregateType string, newAggregate NewAggregateFunc[T]) *Repository[T] {
	return &Repository[T]{store: store, aggregateType: aggregateType, newAggregate: newAggregate}
}

// Save persists the aggregate's uncommitted events and marks them
// committed. It is a no-op if the aggregate has nothing new to save.
func (r *Repository[T]) Save(ctx context.Context, aggregate T) error {
	events := aggregate.UncommittedEvents()
	if len(events) == 0 {
		return nil
	}

	wrapped := make([]*Event, 0, len(events))
	for _, e := range events {
		wrapped = append(wrapped, asEvent(e))
	}

	expectedVersion := int64(aggregate.Version() - len(events))

	if _, err := r.store.PushMany(ctx, aggregate.ID(), expectedVersion, wrapped); err != nil {
		return fmt.Errorf("eventlog: save %s %s: %w", r.aggregateType, aggregate.ID(), err)
	}

	aggregate.MarkEventsAsCommitted()
	return nil
}

// Load reconstructs the aggregate from its full event history.
func (r *Repository[T]) Load(ctx context.Context, id string) (T, error) {
	var zero T

	events, err := r.store.Load(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("eventlog: load %s %s: %w", r.aggregateType, id, err)
	}
	if len(events) == 0 {
		return zero, fmt.Errorf("%w: %s %s", ErrNotFound, r.aggregateType, id)
	}

	aggregate := r.newAggregate()
	history := make([]domain.Event, len(events))
	for i, e := range events {
		history[i] = e
	}
	aggregate.LoadFromHistory(history)

	return aggregate, nil
}

// asEvent wraps whatever domain.Event an aggregate produced into the
// canonical *Event shape a Store persists, so aggregates never need to
// import internal/eventlog themselves to call AddEvent.
func asEvent(e domain.Event) *Event {
	switch v := e.(type) {
	case *Event:
		return v
	case *domain.EntityEvent:
		return WrapEntityEvent(v)
	default:
		return &Event{EntityEvent: &domain.EntityEvent{
			EntityType:  e.EventType(),
			Type:        e.EventType(),
			AggregateId: e.AggregateID(),
			SequenceNum: e.SequenceNo(),
			CreatedTime: e.CreatedAt(),
			UserId:      e.User(),
			AccountId:   e.Account(),
			PayloadData: e.Payload(),
		}}
	}
}
