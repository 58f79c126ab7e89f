package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/nexusiam/core/internal/eventlog"
	"github.com/nexusiam/core/pkg/domain"
)

// Handler reduces a batch of events into whatever storage a projection
// owns. Implementations are expected to be idempotent: a crash between a
// successful Reduce and the cursor advance replays the same batch.
type Handler interface {
	// EventTypes lists the fully-qualified ("EntityType.EventType") event
	// types this handler wants; the Runner narrows its Query filter to
	// exactly these so unrelated events never reach Reduce.
	EventTypes() []string

	// Reduce applies one batch, in globalPosition order, to the read model.
	Reduce(ctx context.Context, events []*eventlog.Event) error
}

// Runner polls eventlog.Store.Query for events after its persisted cursor,
// reduces them through a Handler, and advances the cursor — the teacher's
// WatermillEventDispatcher run-loop shape (a background goroutine driven by
// router.Run(ctx)), adapted from in-memory pub/sub to a durable poll because
// a projection must survive a process restart and the teacher's gochannel
// pub/sub is explicitly non-persistent.
type Runner struct {
	Name           string
	Store          eventlog.Store
	Cursor         CursorStore
	Handler        Handler
	AggregateTypes []string
	BatchSize      int
	Interval       time.Duration
	Logger         domain.Logger

	cancel context.CancelFunc
}

// Run starts the tick loop in a goroutine and returns immediately, the way
// NewWatermillEventDispatcher starts its router. Stop cancels it.
func (r *Runner) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	if r.BatchSize <= 0 {
		r.BatchSize = 100
	}
	if r.Interval <= 0 {
		r.Interval = 500 * time.Millisecond
	}

	go r.loop(ctx)
}

// Stop cancels the running tick loop. Safe to call on a Runner that was
// never started.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Runner) loop(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.tick(ctx); err != nil && r.Logger != nil {
				r.Logger.Error("projection tick failed", "projection", r.Name, "error", err)
			}
		}
	}
}

// tick reads one batch, reduces it, and advances the cursor. It is a
// method of its own (rather than inlined in loop) so Tick can drive a
// single poll synchronously without waiting on the ticker.
func (r *Runner) tick(ctx context.Context) error {
	position, err := r.Cursor.Get(ctx, r.Name)
	if err != nil {
		return fmt.Errorf("projection %s: read cursor: %w", r.Name, err)
	}

	events, err := r.Store.Query(ctx, eventlog.Filter{
		AggregateTypes:      r.AggregateTypes,
		EventTypes:          r.Handler.EventTypes(),
		SinceGlobalPosition: position,
		Limit:               r.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("projection %s: query: %w", r.Name, err)
	}
	if len(events) == 0 {
		return nil
	}

	if err := r.Handler.Reduce(ctx, events); err != nil {
		return fmt.Errorf("projection %s: reduce: %w", r.Name, err)
	}

	last := events[len(events)-1]
	if err := r.Cursor.Set(ctx, r.Name, last.GlobalPosition()); err != nil {
		return fmt.Errorf("projection %s: advance cursor: %w", r.Name, err)
	}
	if r.Logger != nil {
		r.Logger.Debug("projection advanced", "projection", r.Name, "position", last.GlobalPosition(), "count", len(events))
	}
	return nil
}

// Tick runs a single poll synchronously, for tests and for callers that
// want to drive the projection on demand instead of via Run's ticker.
func (r *Runner) Tick(ctx context.Context) error {
	return r.tick(ctx)
}
