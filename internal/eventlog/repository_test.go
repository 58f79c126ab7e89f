package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nexusiam/core/pkg/domain"
	"github.com/segmentio/ksuid"
)

// widget is a minimal aggregate used only to exercise Repository[T]; it
// mirrors the shape internal/domain aggregates follow (embed domain.Entity,
// AddEvent on state change, LoadFromHistory replays the same events).
type widget struct {
	*domain.Entity
	Name string `json:"name"`
}

func newWidget(name string) *widget {
	w := &widget{Entity: new(domain.Entity).WithID(ksuid.New().String())}
	w.Name = name
	w.AddEvent(domain.NewEntityEvent("widget", "created", w.ID(), "admin", "org-1", w))
	return w
}

func (w *widget) Rename(name string) {
	w.Name = name
	w.AddEvent(domain.NewEntityEvent("widget", "renamed", w.ID(), "admin", "org-1", w))
}

func (w *widget) LoadFromHistory(events []domain.Event) {
	w.Entity.LoadFromHistory(events)
	for _, event := range events {
		if ee, ok := event.(*Event); ok {
			_ = json.Unmarshal(ee.Payload(), w)
		}
	}
}

func TestRepository_SaveAndLoadRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	repo := NewRepository(store, "widget", func() *widget {
		return &widget{Entity: new(domain.Entity)}
	})
	ctx := context.Background()

	w := newWidget("gizmo")
	if err := repo.Save(ctx, w); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if w.HasUncommittedEvents() {
		t.Error("expected uncommitted events to be cleared after save")
	}

	loaded, err := repo.Load(ctx, w.ID())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != "gizmo" {
		t.Errorf("expected name %q, got %q", "gizmo", loaded.Name)
	}
	if loaded.Version() != 1 {
		t.Errorf("expected version 1, got %d", loaded.Version())
	}
}

func TestRepository_SaveAppliesSecondBatch(t *testing.T) {
	store := NewMemoryStore()
	repo := NewRepository(store, "widget", func() *widget {
		return &widget{Entity: new(domain.Entity)}
	})
	ctx := context.Background()

	w := newWidget("gizmo")
	if err := repo.Save(ctx, w); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	w.Rename("gadget")
	if err := repo.Save(ctx, w); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	loaded, err := repo.Load(ctx, w.ID())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != "gadget" {
		t.Errorf("expected name %q, got %q", "gadget", loaded.Name)
	}
	if loaded.Version() != 2 {
		t.Errorf("expected version 2, got %d", loaded.Version())
	}
}

func TestRepository_LoadNotFound(t *testing.T) {
	store := NewMemoryStore()
	repo := NewRepository(store, "widget", func() *widget {
		return &widget{Entity: new(domain.Entity)}
	})

	_, err := repo.Load(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
