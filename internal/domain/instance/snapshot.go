package instance

import (
	"encoding/json"

	"github.com/nexusiam/core/pkg/domain"
)

// unmarshalSnapshot decodes the full-aggregate-snapshot payload an event
// carries directly into target (see internal/domain/user's helper of the
// same name for why this replaces the teacher's double-marshal).
func unmarshalSnapshot(event domain.Event, target interface{}) error {
	return json.Unmarshal(event.Payload(), target)
}
