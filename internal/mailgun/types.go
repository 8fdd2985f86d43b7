package mailgun

import (
	"fmt"
	"time"
)

// Credentials are the per-account Mailgun API key and sending domain.
// They come from the account store, not from static config.
type Credentials struct {
	APIKey string
	Domain string
}

// EventsQuery bounds a forward scan of the events API.
type EventsQuery struct {
	Begin     time.Time
	Ascending bool
	Limit     int
}

// Event is one item from the Mailgun events API. Correlation identifiers
// are caller-supplied user variables threaded through the original send.
type Event struct {
	Event     string  `json:"event"`
	Timestamp float64 `json:"timestamp"`
	Message   struct {
		Headers struct {
			MessageID string `json:"message-id"`
		} `json:"headers"`
	} `json:"message"`
	UserVariables map[string]any `json:"user-variables"`
}

// Time converts the API's fractional epoch timestamp.
func (e Event) Time() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// Variable returns the named user variable as a string, or "" if absent.
func (e Event) Variable(name string) string {
	v, ok := e.UserVariables[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// EventsPage is one page of events plus the cursor to the next page.
type EventsPage struct {
	Items  []Event `json:"items"`
	Paging Paging  `json:"paging"`
}

// Paging holds the absolute page URLs Mailgun returns with each page.
type Paging struct {
	Next     string `json:"next"`
	Previous string `json:"previous"`
}

// LastEventTime returns the timestamp of the final item on the page, or the
// zero time for an empty page.
func (p *EventsPage) LastEventTime() time.Time {
	if len(p.Items) == 0 {
		return time.Time{}
	}
	return p.Items[len(p.Items)-1].Time()
}
