package listings

import (
	"encoding/json"

	"homescope/server/internal/models"
)

// EventKind discriminates the scraper's line-delimited output. The scraper
// does not emit an explicit type field, so each line is classified once at
// this boundary by structural inspection, with a fixed precedence:
// error > status > completion > data.
type EventKind string

const (
	EventError    EventKind = "error"
	EventStatus   EventKind = "status"
	EventComplete EventKind = "complete"
	EventListing  EventKind = "listing"
)

// StatusComplete is the status value the scraper uses as its completion
// marker.
const StatusComplete = "complete"

// Event is one classified message from the scraper stream.
type Event struct {
	Kind    EventKind
	Listing *models.ListingRecord
	Status  string
	Message string
}

type envelope struct {
	Error  *string `json:"error"`
	Status *string `json:"status"`
}

// classifyLine decodes one stdout line into a tagged event. A non-nil error
// means the line was not valid JSON; callers log and drop it.
func classifyLine(line []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Event{}, err
	}

	if env.Error != nil {
		return Event{Kind: EventError, Message: *env.Error}, nil
	}
	if env.Status != nil {
		if *env.Status == StatusComplete {
			return Event{Kind: EventComplete, Status: *env.Status}, nil
		}
		return Event{Kind: EventStatus, Status: *env.Status}, nil
	}

	var listing models.ListingRecord
	if err := json.Unmarshal(line, &listing); err != nil {
		return Event{}, err
	}
	return Event{Kind: EventListing, Listing: &listing}, nil
}
