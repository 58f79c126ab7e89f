package ddstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nexusiam/core/pkg/eventsourcing/domain"
	"gorm.io/gorm"
)

// record is the GORM row shape for one persisted second-kernel event,
// grounded on internal/eventlog.GormStore's EventRecord table.
type record struct {
	ID          string `gorm:"primaryKey;column:id"`
	AggregateID string `gorm:"column:aggregate_id;index"`
	EventType   string `gorm:"column:event_type"`
	SequenceNo  int    `gorm:"column:sequence_no"`
	Payload     []byte `gorm:"column:payload"`
	Metadata    []byte `gorm:"column:metadata"`
	CreatedAt   time.Time
}

func (record) TableName() string { return "dd_events" }

// GormStore is the production domain.EventStore for the second kernel.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a GormStore against db, migrating its table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func toRecord(e domain.EventEnvelope[any]) (record, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return record{}, err
	}
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return record{}, err
	}
	return record{
		ID:          e.ID,
		AggregateID: e.AggregateID,
		EventType:   e.EventType,
		SequenceNo:  e.SequenceNo,
		Payload:     payload,
		Metadata:    meta,
		CreatedAt:   e.Created,
	}, nil
}

func fromRecord(r record) domain.EventEnvelope[any] {
	var payload any
	_ = json.Unmarshal(r.Payload, &payload)
	var meta map[string]interface{}
	_ = json.Unmarshal(r.Metadata, &meta)
	return domain.EventEnvelope[any]{
		ID:          r.ID,
		AggregateID: r.AggregateID,
		EventType:   r.EventType,
		Payload:     payload,
		Created:     r.CreatedAt,
		SequenceNo:  r.SequenceNo,
		Metadata:    meta,
	}
}

func (s *GormStore) Append(ctx context.Context, aggregateID string, expectedVersion int, events ...domain.EventEnvelope[any]) error {
	if len(events) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current int64
		if err := tx.Model(&record{}).Where("aggregate_id = ?", aggregateID).Count(&current).Error; err != nil {
			return err
		}
		if expectedVersion != -1 && int(current) != expectedVersion {
			return fmt.Errorf("%w: expected version %d, got %d", domain.ErrConcurrencyConflict, expectedVersion, current)
		}
		for _, e := range events {
			if e.AggregateID != aggregateID {
				return fmt.Errorf("%w: aggregate ID mismatch", domain.ErrInvalidEvent)
			}
			rec, err := toRecord(e)
			if err != nil {
				return err
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) GetEvents(ctx context.Context, aggregateID string) ([]domain.EventEnvelope[any], error) {
	return s.GetEventsRange(ctx, aggregateID, -1, -1)
}

func (s *GormStore) GetEventsFromVersion(ctx context.Context, aggregateID string, fromVersion int) ([]domain.EventEnvelope[any], error) {
	return s.GetEventsRange(ctx, aggregateID, fromVersion, -1)
}

func (s *GormStore) GetEventsRange(ctx context.Context, aggregateID string, fromVersion, toVersion int) ([]domain.EventEnvelope[any], error) {
	q := s.db.WithContext(ctx).Where("aggregate_id = ?", aggregateID)
	if fromVersion > 0 {
		q = q.Where("sequence_no >= ?", fromVersion)
	}
	if toVersion != -1 {
		q = q.Where("sequence_no <= ?", toVersion)
	}
	var recs []record
	if err := q.Order("sequence_no asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.EventEnvelope[any], len(recs))
	for i, r := range recs {
		out[i] = fromRecord(r)
	}
	return out, nil
}

func (s *GormStore) GetEventByID(ctx context.Context, eventID string) (domain.EventEnvelope[any], error) {
	var r record
	err := s.db.WithContext(ctx).Where("id = ?", eventID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.EventEnvelope[any]{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.EventEnvelope[any]{}, err
	}
	return fromRecord(r), nil
}

func (s *GormStore) GetCurrentVersion(ctx context.Context, aggregateID string) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&record{}).Where("aggregate_id = ?", aggregateID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *GormStore) Close() error { return nil }

var _ domain.EventStore = (*GormStore)(nil)
