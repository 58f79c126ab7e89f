package eventlog

// Filter selects a subset of the log for Query. It is used by the
// projection runtime (read the whole log in globalPosition order since the
// last cursor) and by audit/compliance exports (read one tenant's history
// bounded by time or event type). A zero-value Filter matches everything,
// which Query callers should never actually do outside of tests.
type Filter struct {
	InstanceID          string
	Owner               string
	AggregateTypes      []string
	AggregateIDs        []string
	EventTypes          []string
	SinceGlobalPosition int64
	Limit               int
}

func (f Filter) matchesAggregateType(aggregateType string) bool {
	if len(f.AggregateTypes) == 0 {
		return true
	}
	for _, t := range f.AggregateTypes {
		if t == aggregateType {
			return true
		}
	}
	return false
}

func (f Filter) matchesAggregateID(aggregateID string) bool {
	if len(f.AggregateIDs) == 0 {
		return true
	}
	for _, id := range f.AggregateIDs {
		if id == aggregateID {
			return true
		}
	}
	return false
}

func (f Filter) matchesEventType(eventType string) bool {
	if len(f.EventTypes) == 0 {
		return true
	}
	for _, t := range f.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}
