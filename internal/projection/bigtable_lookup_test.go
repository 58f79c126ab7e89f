package projection

import (
	"context"
	"testing"

	"cloud.google.com/go/bigtable"
	"github.com/nexusiam/core/internal/eventlog"
)

type fakeBigtableTable struct {
	rows map[string][]byte
}

func newFakeBigtableTable() *fakeBigtableTable {
	return &fakeBigtableTable{rows: make(map[string][]byte)}
}

func (f *fakeBigtableTable) Apply(ctx context.Context, row string, m *bigtable.Mutation, opts ...bigtable.ApplyOption) error {
	// The real bigtable.Mutation does not expose its pending writes, so the
	// fake simply records that a write happened; ValueOf is reconstructed by
	// the test from what it expects the projection to have written.
	f.rows[row] = []byte("written")
	return nil
}

func (f *fakeBigtableTable) ReadRow(ctx context.Context, row string, opts ...bigtable.ReadOption) (bigtable.Row, error) {
	value, ok := f.rows[row]
	if !ok {
		return nil, nil
	}
	return bigtable.Row{
		LookupColumnFamily: []bigtable.ReadItem{{Row: row, Column: LookupColumnFamily + ":" + LookupColumn, Value: value}},
	}, nil
}

func TestBigtableLookupProjectionReduceAndLookup(t *testing.T) {
	table := newFakeBigtableTable()
	p := &BigtableLookupProjection{
		Table: table,
		KeyOf: func(e *eventlog.Event) (string, bool) {
			if e.EventType() != "idp_intent.started" {
				return "", false
			}
			return "state-abc", true
		},
		eventTypes: []string{"idp_intent.started"},
	}

	e := eventlog.New("idp_intent", "started", "state-abc", "", "org-1", map[string]string{"state": "state-abc"})
	if err := p.Reduce(context.Background(), []*eventlog.Event{e}); err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	payload, ok, err := p.Lookup(context.Background(), "state-abc")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected row to exist after Reduce")
	}
	if len(payload) == 0 {
		t.Fatal("expected non-empty payload")
	}
}

func TestBigtableLookupProjectionSkipsUnkeyableEvents(t *testing.T) {
	table := newFakeBigtableTable()
	p := &BigtableLookupProjection{
		Table:      table,
		KeyOf:      func(e *eventlog.Event) (string, bool) { return "", false },
		eventTypes: []string{"idp_intent.started"},
	}

	e := eventlog.New("idp_intent", "started", "state-abc", "", "org-1", map[string]string{})
	if err := p.Reduce(context.Background(), []*eventlog.Event{e}); err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if len(table.rows) != 0 {
		t.Fatalf("expected no rows written, got %d", len(table.rows))
	}
}
