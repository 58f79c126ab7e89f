// Package eventlog is the append-only event store for every IAM aggregate.
// It generalizes the teacher's pkg/infrastructure.GormEventStore into a
// storage-agnostic Store interface with three interchangeable backends.
package eventlog

import (
	"time"

	"github.com/nexusiam/core/pkg/domain"
)

// Event is the canonical persisted event record. It embeds the teacher's
// EntityEvent rather than replacing it, so every IAM aggregate built on
// pkg/domain.Entity can AddEvent an *Event directly and existing
// LoadFromHistory switches keep working against *domain.EntityEvent.
//
// AccountId is reused as the resource-owner: every IAM aggregate is either
// instance-scoped (owner empty) or org-scoped (owner is the org ID), and
// that distinction is what filtering and permission checks key off, not an
// opaque "account".
type Event struct {
	*domain.EntityEvent
}

// New constructs an Event the way domain.NewEntityEvent does, for call
// sites that already have userID/owner in hand.
func New(aggregateType, eventType, aggregateID, userID, owner string, data interface{}) *Event {
	return &Event{EntityEvent: domain.NewEntityEvent(aggregateType, eventType, aggregateID, userID, owner, data)}
}

// Owner returns the resource-owner (org) this event is scoped to.
func (e Event) Owner() string {
	return e.AccountId
}

// AggregateType returns the entity type this event was recorded against.
func (e Event) AggregateType() string {
	return e.EntityType
}

// AggregateVersion returns the event's sequence number within its aggregate.
func (e Event) AggregateVersion() int64 {
	return e.SequenceNum
}

// OccurredAt returns when the event was created in the domain, matching the
// naming projections use in place of the teacher's CreatedAt.
func (e Event) OccurredAt() time.Time {
	return e.CreatedTime
}

// WrapEntityEvent adapts a *domain.EntityEvent produced by an aggregate into
// the Event type a Store persists. Aggregates call domain.NewEntityEvent
// directly (to stay compatible with pkg/domain's AggregateRoot contract);
// the repository wraps the result on the way into the store.
func WrapEntityEvent(e *domain.EntityEvent) *Event {
	return &Event{EntityEvent: e}
}
