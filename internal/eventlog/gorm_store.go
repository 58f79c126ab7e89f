package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// EventRecord is the GORM schema for the events table. It generalizes the
// teacher's EventRecord (pkg/infrastructure/eventstore.go) with the
// multi-tenant and global-ordering columns the IAM write side needs:
// InstanceID, Owner, and GlobalPosition.
type EventRecord struct {
	ID               string `gorm:"primaryKey"`
	InstanceID       string `gorm:"index:idx_events_instance_agg"`
	AggregateType    string `gorm:"index"`
	AggregateID      string `gorm:"index:idx_events_instance_agg;index:idx_events_aggregate"`
	AggregateVersion int64  `gorm:"index:idx_events_aggregate"`
	Owner            string `gorm:"index"`
	EventType        string `gorm:"index"`
	GlobalPosition   int64  `gorm:"uniqueIndex"`
	UserID           string
	Data             string `gorm:"type:text"`
	Metadata         string `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"index"`
}

// TableName returns the table name for GORM.
func (EventRecord) TableName() string {
	return "events"
}

// GormStore is the default Store implementation, backed by any SQL dialect
// GORM supports. Grounded on the teacher's GormEventStore: same
// AutoMigrate-on-construct, transaction-per-write shape.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GORM-backed event store and migrates the events
// table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("eventlog: migrate events table: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Push(ctx context.Context, aggregateID string, expectedVersion int64, event *Event) (*Event, error) {
	events, err := s.PushMany(ctx, aggregateID, expectedVersion, []*Event{event})
	if err != nil {
		return nil, err
	}
	return events[0], nil
}

func (s *GormStore) PushMany(ctx context.Context, aggregateID string, expectedVersion int64, events []*Event) ([]*Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	var saved []*Event

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int64
		if err := tx.Model(&EventRecord{}).
			Where("aggregate_id = ?", aggregateID).
			Select("COALESCE(MAX(aggregate_version), 0)").
			Scan(&currentVersion).Error; err != nil {
			return fmt.Errorf("eventlog: read current version: %w", err)
		}
		if currentVersion != expectedVersion {
			return fmt.Errorf("%w: aggregate %s expected version %d, got %d",
				ErrConcurrency, aggregateID, expectedVersion, currentVersion)
		}

		var nextGlobalPosition int64
		if err := tx.Model(&EventRecord{}).
			Select("COALESCE(MAX(global_position), 0)").
			Scan(&nextGlobalPosition).Error; err != nil {
			return fmt.Errorf("eventlog: read global position: %w", err)
		}

		records := make([]EventRecord, 0, len(events))
		saved = make([]*Event, 0, len(events))

		for i, event := range events {
			version := currentVersion + int64(i) + 1
			position := nextGlobalPosition + int64(i) + 1

			event.AggregateId = aggregateID
			event.SequenceNum = version
			event.SetGlobalPosition(position)

			data, err := json.Marshal(event.EntityEvent)
			if err != nil {
				return fmt.Errorf("eventlog: marshal event %s: %w", event.EventType(), err)
			}
			metadata, err := json.Marshal(event.Metadata)
			if err != nil {
				return fmt.Errorf("eventlog: marshal metadata for event %s: %w", event.EventType(), err)
			}

			id := ksuid.New().String()
			records = append(records, EventRecord{
				ID:               id,
				InstanceID:       event.InstanceID(),
				AggregateType:    event.AggregateType(),
				AggregateID:      aggregateID,
				AggregateVersion: version,
				Owner:            event.Owner(),
				EventType:        event.EventType(),
				GlobalPosition:   position,
				UserID:           event.User(),
				Data:             string(data),
				Metadata:         string(metadata),
				CreatedAt:        event.CreatedAt(),
			})
			saved = append(saved, event)
		}

		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("eventlog: save events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return saved, nil
}

func (s *GormStore) Load(ctx context.Context, aggregateID string) ([]*Event, error) {
	return s.LoadFromVersion(ctx, aggregateID, 0)
}

func (s *GormStore) LoadFromVersion(ctx context.Context, aggregateID string, fromVersion int64) ([]*Event, error) {
	var records []EventRecord
	err := s.db.WithContext(ctx).
		Where("aggregate_id = ? AND aggregate_version >= ?", aggregateID, fromVersion).
		Order("aggregate_version ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("eventlog: load aggregate %s: %w", aggregateID, err)
	}

	events := make([]*Event, len(records))
	for i, record := range records {
		event, err := recordToEvent(record)
		if err != nil {
			return nil, err
		}
		events[i] = event
	}
	return events, nil
}

func (s *GormStore) Query(ctx context.Context, filter Filter) ([]*Event, error) {
	query := s.db.WithContext(ctx).Model(&EventRecord{}).
		Where("global_position > ?", filter.SinceGlobalPosition)

	if filter.InstanceID != "" {
		query = query.Where("instance_id = ?", filter.InstanceID)
	}
	if filter.Owner != "" {
		query = query.Where("owner = ?", filter.Owner)
	}
	if len(filter.AggregateTypes) > 0 {
		query = query.Where("aggregate_type IN ?", filter.AggregateTypes)
	}
	if len(filter.AggregateIDs) > 0 {
		query = query.Where("aggregate_id IN ?", filter.AggregateIDs)
	}
	if len(filter.EventTypes) > 0 {
		query = query.Where("event_type IN ?", filter.EventTypes)
	}

	query = query.Order("global_position ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []EventRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("eventlog: query events: %w", err)
	}

	events := make([]*Event, len(records))
	for i, record := range records {
		event, err := recordToEvent(record)
		if err != nil {
			return nil, err
		}
		events[i] = event
	}
	return events, nil
}

func (s *GormStore) CurrentVersion(ctx context.Context, aggregateID string) (int64, error) {
	var version int64
	err := s.db.WithContext(ctx).Model(&EventRecord{}).
		Where("aggregate_id = ?", aggregateID).
		Select("COALESCE(MAX(aggregate_version), 0)").
		Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("eventlog: read current version for %s: %w", aggregateID, err)
	}
	return version, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func recordToEvent(record EventRecord) (*Event, error) {
	var entity domainEntityEventJSON
	if err := json.Unmarshal([]byte(record.Data), &entity); err != nil {
		return nil, fmt.Errorf("eventlog: unmarshal event %s: %w", record.ID, err)
	}

	event := New(record.AggregateType, entity.Type, record.AggregateID, record.UserID, record.Owner, nil)
	event.PayloadData = entity.PayloadData
	event.SequenceNum = record.AggregateVersion
	event.CreatedTime = record.CreatedAt
	event.InstanceId = record.InstanceID
	event.GlobalPos = record.GlobalPosition

	if record.Metadata != "" {
		_ = json.Unmarshal([]byte(record.Metadata), &event.Metadata)
	}

	return event, nil
}

// domainEntityEventJSON mirrors domain.EntityEvent's JSON shape just enough
// to recover the event-specific Type and raw payload bytes on load; the
// rest of the record's columns are authoritative over the embedded copy.
type domainEntityEventJSON struct {
	Type        string `json:"type"`
	PayloadData []byte `json:"payload"`
}
