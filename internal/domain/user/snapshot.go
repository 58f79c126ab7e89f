package user

import (
	"encoding/json"

	"github.com/nexusiam/core/pkg/domain"
)

// unmarshalSnapshot decodes an event's JSON payload into target. Events on
// this aggregate carry a full state snapshot (not a per-field delta), so
// replaying history is just unmarshaling the latest one in order.
func unmarshalSnapshot(event domain.Event, target interface{}) error {
	return json.Unmarshal(event.Payload(), target)
}
