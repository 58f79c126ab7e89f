package webhook

import "encoding/json"

// decodeSnapshot normalizes an EventEnvelope[any].Payload back into T. The
// payload is already a T when an aggregate's own uncommitted events are
// replayed directly (tests, same-process round-trip); once a payload has
// passed through EventStore persistence it decodes as a generic
// map[string]interface{} (pkg/eventsourcing/domain.EventEnvelope's JSON
// marshaling is type-erased), so this always goes through one JSON
// round-trip rather than a type switch per call site.
func decodeSnapshot[T any](payload any) (T, error) {
	var zero T
	raw, err := json.Marshal(payload)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, err
	}
	return out, nil
}
