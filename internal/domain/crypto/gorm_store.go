package crypto

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// GormStore is the production Store, grounded on internal/eventlog's
// GormStore (single gorm.DB, AutoMigrate on construction, simple
// First/Save calls rather than a generic ORM abstraction).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a GormStore against db, migrating its two tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&EncryptionKey{}, &WebhookSigningKey{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) GetEncryptionKey(instanceID, identifier string) (*EncryptionKey, error) {
	var key EncryptionKey
	err := s.db.Where("instance_id = ? AND identifier = ?", instanceID, identifier).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *GormStore) PutEncryptionKey(key *EncryptionKey) error {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}
	return s.db.Save(key).Error
}

func (s *GormStore) GetWebhookSigningKey(targetID string) (*WebhookSigningKey, error) {
	var k WebhookSigningKey
	err := s.db.Where("target_id = ?", targetID).First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *GormStore) RotateWebhookSigningKey(targetID string, newKey []byte) (*WebhookSigningKey, error) {
	existing, err := s.GetWebhookSigningKey(targetID)
	var previous []byte
	if err == nil {
		previous = existing.Current
	} else if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	rotated := &WebhookSigningKey{TargetID: targetID, Current: newKey, Previous: previous, RotatedAt: time.Now()}
	if err := s.db.Save(rotated).Error; err != nil {
		return nil, err
	}
	return rotated, nil
}

var _ Store = (*GormStore)(nil)
