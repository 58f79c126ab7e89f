// Package fedauth implements the federated-authentication state machines:
// OAuth/OIDC login intents, SAML requests and sessions, and OAuth 2.0
// pushed authorization requests (PAR, RFC 9126). Every aggregate here is
// short-lived and expiry-driven, so like internal/domain/webhook it is
// built on the pkg/ddd + pkg/eventsourcing/domain "second" kernel rather
// than the pkg/domain kernel the long-lived org/user/project aggregates
// use.
package fedauth

import "encoding/json"

// decodeSnapshot normalizes an EventEnvelope[any].Payload back into T, the
// same way internal/domain/webhook.decodeSnapshot does: a freshly recorded
// event's payload is already a T, but one that has round-tripped through
// EventStore persistence decodes as a generic map[string]interface{}.
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
