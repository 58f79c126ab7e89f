// Package ddstore is the shared EventStore for every aggregate built on
// the pkg/ddd + pkg/eventsourcing/domain "second" kernel (the
// action/target/execution webhook subsystem and the federated-auth state
// machines). It replaces pkg/eventsourcing/infrastructure.MemoryStore,
// which references a field (EventEnvelope.Version) that does not exist on
// pkg/eventsourcing/domain.EventEnvelope — that package does not compile as
// shipped, so rather than inherit the bug this reimplements the same
// map-of-slices shape directly against SequenceNo.
package ddstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nexusiam/core/pkg/eventsourcing/domain"
)

// MemoryStore is an in-process, mutex-guarded implementation of
// domain.EventStore.
type MemoryStore struct {
	mu         sync.RWMutex
	events     map[string][]domain.EventEnvelope[any]
	eventsByID map[string]domain.EventEnvelope[any]
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:     map[string][]domain.EventEnvelope[any]{},
		eventsByID: map[string]domain.EventEnvelope[any]{},
	}
}

// Append appends events for aggregateID, enforcing expectedVersion
// (-1 skips the check) against the number of events already recorded.
func (m *MemoryStore) Append(ctx context.Context, aggregateID string, expectedVersion int, events ...domain.EventEnvelope[any]) error {
	if len(events) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := len(m.events[aggregateID])
	if expectedVersion != -1 && current != expectedVersion {
		return fmt.Errorf("%w: expected version %d, got %d", domain.ErrConcurrencyConflict, expectedVersion, current)
	}

	for _, e := range events {
		if e.AggregateID != aggregateID {
			return fmt.Errorf("%w: aggregate ID mismatch", domain.ErrInvalidEvent)
		}
		m.events[aggregateID] = append(m.events[aggregateID], e)
		m.eventsByID[e.ID] = e
	}
	return nil
}

// GetEvents returns every event recorded for aggregateID, ordered by
// SequenceNo ascending.
func (m *MemoryStore) GetEvents(ctx context.Context, aggregateID string) ([]domain.EventEnvelope[any], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.EventEnvelope[any]{}, m.events[aggregateID]...), nil
}

// GetEventsFromVersion returns events with SequenceNo >= fromVersion.
func (m *MemoryStore) GetEventsFromVersion(ctx context.Context, aggregateID string, fromVersion int) ([]domain.EventEnvelope[any], error) {
	all := m.events[aggregateID]
	out := make([]domain.EventEnvelope[any], 0, len(all))
	for _, e := range all {
		if e.SequenceNo >= fromVersion {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetEventsRange returns events with fromVersion <= SequenceNo <= toVersion.
// toVersion of -1 means unbounded.
func (m *MemoryStore) GetEventsRange(ctx context.Context, aggregateID string, fromVersion, toVersion int) ([]domain.EventEnvelope[any], error) {
	if fromVersion == -1 {
		fromVersion = 0
	}
	all := m.events[aggregateID]
	out := make([]domain.EventEnvelope[any], 0, len(all))
	for _, e := range all {
		if e.SequenceNo < fromVersion {
			continue
		}
		if toVersion != -1 && e.SequenceNo > toVersion {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNo < out[j].SequenceNo })
	return out, nil
}

// GetEventByID returns the single event with the given ID.
func (m *MemoryStore) GetEventByID(ctx context.Context, eventID string) (domain.EventEnvelope[any], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.eventsByID[eventID]
	if !ok {
		return domain.EventEnvelope[any]{}, domain.ErrEventNotFound
	}
	return e, nil
}

// GetCurrentVersion returns the number of events recorded for aggregateID.
func (m *MemoryStore) GetCurrentVersion(ctx context.Context, aggregateID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events[aggregateID]), nil
}

// Close releases resources. MemoryStore holds none.
func (m *MemoryStore) Close() error { return nil }

var _ domain.EventStore = (*MemoryStore)(nil)
