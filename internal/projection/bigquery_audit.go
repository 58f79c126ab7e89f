package projection

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/nexusiam/core/internal/eventlog"
)

// AuditRow is a denormalized audit-event record streamed to BigQuery for
// compliance export/reporting. Exported fields only, inferred schema (no
// hand-written bigquery.Schema), the way Inserter.Put accepts a plain struct.
type AuditRow struct {
	GlobalPosition int64     `bigquery:"global_position"`
	InstanceID     string    `bigquery:"instance_id"`
	Owner          string    `bigquery:"owner"`
	AggregateType  string    `bigquery:"aggregate_type"`
	AggregateID    string    `bigquery:"aggregate_id"`
	EventType      string    `bigquery:"event_type"`
	OccurredAt     time.Time `bigquery:"occurred_at"`
	Payload        string    `bigquery:"payload"`
}

// AuditInserter is the subset of *bigquery.Inserter an AuditProjection
// needs, so tests can substitute a fake without a live BigQuery project.
type AuditInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// AuditProjection streams every event in the log to a BigQuery table as an
// AuditRow, wiring the teacher's unused cloud.google.com/go/bigquery
// require into a concrete compliance-export component. It runs alongside
// the SQL projections under the same Runner/cursor contract; eventTypes
// left empty means "every event type".
type AuditProjection struct {
	Inserter   AuditInserter
	eventTypes []string
}

// NewAuditProjection opens client's dataset/table and returns an
// AuditProjection backed by its Inserter.
func NewAuditProjection(client *bigquery.Client, datasetID, tableID string, eventTypes []string) *AuditProjection {
	inserter := client.Dataset(datasetID).Table(tableID).Inserter()
	return &AuditProjection{Inserter: inserter, eventTypes: eventTypes}
}

// EventTypes implements Handler.
func (p *AuditProjection) EventTypes() []string {
	return p.eventTypes
}

// Reduce implements Handler: every event becomes one audit row, payload
// carried as its raw JSON data rather than re-decoded into a concrete type,
// since the audit export is a write-once record, not a read model anything
// queries structurally.
func (p *AuditProjection) Reduce(ctx context.Context, events []*eventlog.Event) error {
	rows := make([]*AuditRow, len(events))
	for i, e := range events {
		rows[i] = &AuditRow{
			GlobalPosition: e.GlobalPosition(),
			InstanceID:     e.InstanceID(),
			Owner:          e.Owner(),
			AggregateType:  e.AggregateType(),
			AggregateID:    e.AggregateID(),
			EventType:      e.EventType(),
			OccurredAt:     e.OccurredAt(),
			Payload:        string(e.Payload()),
		}
	}
	if err := p.Inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("audit projection: insert %d rows: %w", len(rows), err)
	}
	return nil
}
