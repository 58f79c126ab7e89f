package org

import (
	"encoding/json"

	"github.com/nexusiam/core/pkg/domain"
)

// unmarshalSnapshot decodes the full-aggregate-snapshot payload an event
// carries directly into target, mirroring internal/domain/user's helper of
// the same name (the teacher's LoadFromHistory double-marshaled Payload(),
// which is already []byte, and would have base64-encoded it).
func unmarshalSnapshot(event domain.Event, target interface{}) error {
	return json.Unmarshal(event.Payload(), target)
}
