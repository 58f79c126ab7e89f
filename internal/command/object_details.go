package command

import (
	"time"

	"github.com/nexusiam/core/pkg/domain"
)

// ObjectDetails is the standard command return value (spec.md §3): it
// equals the pushed event's resulting sequence, createdAt, and owner.
type ObjectDetails struct {
	Sequence      int64
	EventDate     time.Time
	ResourceOwner string
}

// detailsFromEvent builds ObjectDetails from the last event a command
// pushed. Callers must capture the event before the aggregate's events are
// marked committed (Repository.Save clears them).
func detailsFromEvent(event domain.Event) ObjectDetails {
	return ObjectDetails{
		Sequence:      event.SequenceNo(),
		EventDate:     event.CreatedAt(),
		ResourceOwner: event.Account(),
	}
}
