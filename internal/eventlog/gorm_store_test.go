package eventlog

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	store, err := NewGormStore(db)
	if err != nil {
		t.Fatalf("failed to create event store: %v", err)
	}
	return store
}

func TestGormStore_PushAndLoad(t *testing.T) {
	store := newTestGormStore(t)
	ctx := context.Background()
	aggregateID := "user-123"

	created := New("user", "created", aggregateID, "admin", "org-1", map[string]string{"email": "a@example.com"})
	created.WithScope("instance-1")

	saved, err := store.Push(ctx, aggregateID, 0, created)
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if saved.AggregateVersion() != 1 {
		t.Errorf("expected version 1, got %d", saved.AggregateVersion())
	}
	if saved.GlobalPosition() == 0 {
		t.Error("expected non-zero global position")
	}

	updated := New("user", "updated", aggregateID, "admin", "org-1", map[string]string{"email": "b@example.com"})
	if _, err := store.Push(ctx, aggregateID, 1, updated); err != nil {
		t.Fatalf("second push failed: %v", err)
	}

	events, err := store.Load(ctx, aggregateID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].AggregateVersion() != 1 || events[1].AggregateVersion() != 2 {
		t.Errorf("events out of order: %d, %d", events[0].AggregateVersion(), events[1].AggregateVersion())
	}
	if events[0].InstanceID() != "instance-1" {
		t.Errorf("expected instance scope to round-trip, got %q", events[0].InstanceID())
	}

	version, err := store.CurrentVersion(ctx, aggregateID)
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("expected current version 2, got %d", version)
	}
}

func TestGormStore_ConcurrencyConflict(t *testing.T) {
	store := newTestGormStore(t)
	ctx := context.Background()
	aggregateID := "user-456"

	event := New("user", "created", aggregateID, "admin", "org-1", nil)
	if _, err := store.Push(ctx, aggregateID, 0, event); err != nil {
		t.Fatalf("first push failed: %v", err)
	}

	stale := New("user", "updated", aggregateID, "admin", "org-1", nil)
	_, err := store.Push(ctx, aggregateID, 0, stale)
	if !errors.Is(err, ErrConcurrency) {
		t.Fatalf("expected ErrConcurrency, got %v", err)
	}
}

func TestGormStore_QueryOrdersByGlobalPosition(t *testing.T) {
	store := newTestGormStore(t)
	ctx := context.Background()

	first := New("user", "created", "user-a", "admin", "org-1", nil)
	second := New("project", "created", "project-a", "admin", "org-1", nil)

	if _, err := store.Push(ctx, "user-a", 0, first); err != nil {
		t.Fatalf("push user-a failed: %v", err)
	}
	if _, err := store.Push(ctx, "project-a", 0, second); err != nil {
		t.Fatalf("push project-a failed: %v", err)
	}

	results, err := store.Query(ctx, Filter{Owner: "org-1"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 events, got %d", len(results))
	}
	if results[0].AggregateID() != "user-a" || results[1].AggregateID() != "project-a" {
		t.Errorf("expected global-position order, got %s then %s",
			results[0].AggregateID(), results[1].AggregateID())
	}
}
