package crypto

import (
	"sync"
	"time"
)

// MemoryStore is an in-process Store backing unit tests, mirroring
// internal/eventlog.MemoryStore's mutex-guarded map shape.
type MemoryStore struct {
	mu      sync.Mutex
	keys    map[string]*EncryptionKey
	signing map[string]*WebhookSigningKey
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:    map[string]*EncryptionKey{},
		signing: map[string]*WebhookSigningKey{},
	}
}

func keyID(instanceID, identifier string) string { return instanceID + "/" + identifier }

func (s *MemoryStore) GetEncryptionKey(instanceID, identifier string) (*EncryptionKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[keyID(instanceID, identifier)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cp := *k
	return &cp, nil
}

func (s *MemoryStore) PutEncryptionKey(key *EncryptionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *key
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.keys[keyID(key.InstanceID, key.Identifier)] = &cp
	return nil
}

func (s *MemoryStore) GetWebhookSigningKey(targetID string) (*WebhookSigningKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.signing[targetID]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cp := *k
	return &cp, nil
}

func (s *MemoryStore) RotateWebhookSigningKey(targetID string, newKey []byte) (*WebhookSigningKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.signing[targetID]
	var previous []byte
	if ok {
		previous = existing.Current
	}
	rotated := &WebhookSigningKey{TargetID: targetID, Current: newKey, Previous: previous, RotatedAt: time.Now()}
	s.signing[targetID] = rotated
	cp := *rotated
	return &cp, nil
}

var _ Store = (*MemoryStore)(nil)
