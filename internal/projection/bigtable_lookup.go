package projection

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigtable"
	"github.com/nexusiam/core/internal/eventlog"
)

// LookupColumnFamily is the single column family the lookup projection
// writes to; one column ("row") holds the event's raw JSON payload.
const (
	LookupColumnFamily = "fedauth"
	LookupColumn       = "row"
)

// BigtableTable is the subset of *bigtable.Table a BigtableLookupProjection
// needs, so tests can substitute a fake without a live Bigtable instance.
type BigtableTable interface {
	Apply(ctx context.Context, row string, m *bigtable.Mutation, opts ...bigtable.ApplyOption) error
	ReadRow(ctx context.Context, row string, opts ...bigtable.ReadOption) (bigtable.Row, error)
}

// KeyFunc extracts the Bigtable row key a processed event should be filed
// under (an idp intent's state, or a pushed auth request's request_uri),
// returning ok=false for events the projection should skip.
type KeyFunc func(e *eventlog.Event) (key string, ok bool)

// BigtableLookupProjection is a point-lookup table for idp-intent-by-state
// and PAR-request-by-uri keys (SPEC_FULL §4.4): a single key to a single
// row, which is Bigtable's strength. It is fed by a Runner, which reads
// eventlog.Store only; intents and pushed auth requests are stored through
// internal/ddstore, and internal/command/fedauth.go loads them from there,
// not from this projection.
type BigtableLookupProjection struct {
	Table      BigtableTable
	KeyOf      KeyFunc
	eventTypes []string
}

// NewBigtableLookupProjection opens client's table and returns a
// BigtableLookupProjection driven by keyOf for eventTypes.
func NewBigtableLookupProjection(client *bigtable.Client, tableName string, eventTypes []string, keyOf KeyFunc) *BigtableLookupProjection {
	return &BigtableLookupProjection{
		Table:      client.Open(tableName),
		KeyOf:      keyOf,
		eventTypes: eventTypes,
	}
}

// EventTypes implements Handler.
func (p *BigtableLookupProjection) EventTypes() []string {
	return p.eventTypes
}

// Reduce implements Handler: each event with a derivable key overwrites its
// row with the event's raw JSON payload, so a row always reflects the
// latest known state for that key (the last writer for a given state or
// request_uri wins, which matches both aggregates never reusing an ID).
func (p *BigtableLookupProjection) Reduce(ctx context.Context, events []*eventlog.Event) error {
	for _, e := range events {
		key, ok := p.KeyOf(e)
		if !ok {
			continue
		}
		mut := bigtable.NewMutation()
		mut.Set(LookupColumnFamily, LookupColumn, bigtable.Now(), e.Payload())
		if err := p.Table.Apply(ctx, key, mut); err != nil {
			return fmt.Errorf("bigtable lookup projection: write row %q: %w", key, err)
		}
	}
	return nil
}

// Lookup reads the latest row filed under key, returning the raw JSON
// payload of the event that produced it, or ok=false if no row exists.
func (p *BigtableLookupProjection) Lookup(ctx context.Context, key string) (payload []byte, ok bool, err error) {
	row, err := p.Table.ReadRow(ctx, key, bigtable.RowFilter(bigtable.LatestNFilter(1)))
	if err != nil {
		return nil, false, fmt.Errorf("bigtable lookup projection: read row %q: %w", key, err)
	}
	if row == nil {
		return nil, false, nil
	}
	items := row[LookupColumnFamily]
	if len(items) == 0 {
		return nil, false, nil
	}
	return items[0].Value, true, nil
}
