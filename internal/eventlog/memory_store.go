package eventlog

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store, grounded on the teacher's
// pkg/eventsourcing/infrastructure.MemoryStore. Useful for unit tests; does
// not persist across restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	byAgg    map[string][]*Event
	all      []*Event
	versions map[string]int64
}

// NewMemoryStore creates a new in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byAgg:    make(map[string][]*Event),
		versions: make(map[string]int64),
	}
}

func (m *MemoryStore) Push(ctx context.Context, aggregateID string, expectedVersion int64, event *Event) (*Event, error) {
	events, err := m.PushMany(ctx, aggregateID, expectedVersion, []*Event{event})
	if err != nil {
		return nil, err
	}
	return events[0], nil
}

func (m *MemoryStore) PushMany(ctx context.Context, aggregateID string, expectedVersion int64, events []*Event) ([]*Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	currentVersion := m.versions[aggregateID]
	if currentVersion != expectedVersion {
		return nil, fmt.Errorf("%w: aggregate %s expected version %d, got %d",
			ErrConcurrency, aggregateID, expectedVersion, currentVersion)
	}

	saved := make([]*Event, 0, len(events))
	for i, event := range events {
		version := currentVersion + int64(i) + 1
		position := int64(len(m.all) + 1)

		event.AggregateId = aggregateID
		event.SequenceNum = version
		event.SetGlobalPosition(position)

		m.byAgg[aggregateID] = append(m.byAgg[aggregateID], event)
		m.all = append(m.all, event)
		saved = append(saved, event)
	}
	m.versions[aggregateID] = currentVersion + int64(len(events))

	return saved, nil
}

func (m *MemoryStore) Load(ctx context.Context, aggregateID string) ([]*Event, error) {
	return m.LoadFromVersion(ctx, aggregateID, 0)
}

func (m *MemoryStore) LoadFromVersion(ctx context.Context, aggregateID string, fromVersion int64) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := m.byAgg[aggregateID]
	result := make([]*Event, 0, len(events))
	for _, e := range events {
		if e.AggregateVersion() >= fromVersion {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MemoryStore) Query(ctx context.Context, filter Filter) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Event, 0)
	for _, e := range m.all {
		if e.GlobalPosition() <= filter.SinceGlobalPosition {
			continue
		}
		if filter.InstanceID != "" && e.InstanceID() != filter.InstanceID {
			continue
		}
		if filter.Owner != "" && e.Owner() != filter.Owner {
			continue
		}
		if !filter.matchesAggregateType(e.AggregateType()) {
			continue
		}
		if !filter.matchesAggregateID(e.AggregateID()) {
			continue
		}
		if !filter.matchesEventType(e.EventType()) {
			continue
		}
		result = append(result, e)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func (m *MemoryStore) CurrentVersion(ctx context.Context, aggregateID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.versions[aggregateID], nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byAgg = make(map[string][]*Event)
	m.all = nil
	m.versions = make(map[string]int64)
	return nil
}
