// Package projection generalizes the teacher's single-purpose
// user_projector.go into a reusable runner: any read model that folds a
// subset of the event log into its own storage registers a Handler and the
// Runner drives it forward, persisting how far it has gotten so a restart
// resumes instead of replaying the whole log.
package projection

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// CursorRecord is the GORM schema for current_states, mirroring SPEC_FULL's
// §6 persistence layout for per-projection cursors.
type CursorRecord struct {
	Name           string `gorm:"primaryKey"`
	GlobalPosition int64
}

// TableName returns the table name for GORM.
func (CursorRecord) TableName() string {
	return "current_states"
}

// CursorStore persists how far each named projection has read the event
// log, keyed by Runner.Name.
type CursorStore interface {
	Get(ctx context.Context, name string) (int64, error)
	Set(ctx context.Context, name string, position int64) error
}

// GormCursorStore is the default CursorStore, backed by the same database
// the event log and projection read tables live in.
type GormCursorStore struct {
	db *gorm.DB
}

// NewGormCursorStore migrates current_states and returns a GormCursorStore.
func NewGormCursorStore(db *gorm.DB) (*GormCursorStore, error) {
	if err := db.AutoMigrate(&CursorRecord{}); err != nil {
		return nil, fmt.Errorf("projection: migrate current_states table: %w", err)
	}
	return &GormCursorStore{db: db}, nil
}

// Get returns name's last processed global position, or 0 if the
// projection has never run.
func (s *GormCursorStore) Get(ctx context.Context, name string) (int64, error) {
	var record CursorRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("projection: read cursor %s: %w", name, err)
	}
	return record.GlobalPosition, nil
}

// Set advances name's cursor to position, upserting the row.
func (s *GormCursorStore) Set(ctx context.Context, name string, position int64) error {
	record := CursorRecord{Name: name, GlobalPosition: position}
	err := s.db.WithContext(ctx).
		Where("name = ?", name).
		Assign(CursorRecord{GlobalPosition: position}).
		FirstOrCreate(&record).Error
	if err != nil {
		return fmt.Errorf("projection: advance cursor %s: %w", name, err)
	}
	return nil
}
