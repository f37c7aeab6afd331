// Package feed implements the change feed: a publish/subscribe channel per
// logical table, plus a per-ticket scoped channel, delivering insert, update
// and delete events to every connected client session. Delivery is
// at-least-once; consumers must apply events idempotently.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
)

// EventType enumerates change feed event kinds.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Logical table names carried on feed events.
const (
	TableTickets       = "tickets"
	TableProfiles      = "profiles"
	TableCategories    = "categories"
	TableMessages      = "messages"
	TableHistory       = "history"
	TableAttachments   = "attachments"
	TableNotifications = "notifications"
	TableFAQs          = "faqs"
)

// Event is one change-feed record. Old and New carry the raw row encodings so
// subscribers decode only the tables they care about.
type Event struct {
	Table    string          `json:"table"`
	Type     EventType       `json:"type"`
	TicketID int64           `json:"ticket_id,omitempty"`
	Old      json.RawMessage `json:"old,omitempty"`
	New      json.RawMessage `json:"new,omitempty"`
}

// NewEvent builds an event, encoding the old/new records.
func NewEvent(table string, typ EventType, ticketID int64, oldRecord, newRecord any) (Event, error) {
	ev := Event{Table: table, Type: typ, TicketID: ticketID}
	if oldRecord != nil {
		raw, err := json.Marshal(oldRecord)
		if err != nil {
			return Event{}, fmt.Errorf("encode old record: %w", err)
		}
		ev.Old = raw
	}
	if newRecord != nil {
		raw, err := json.Marshal(newRecord)
		if err != nil {
			return Event{}, fmt.Errorf("encode new record: %w", err)
		}
		ev.New = raw
	}
	return ev, nil
}

// TableChannel names the feed channel for a logical table.
func TableChannel(table string) string {
	return "feed:" + table
}

// TicketChannel names the scoped channel carrying one ticket's message and
// history events.
func TicketChannel(ticketID int64) string {
	return fmt.Sprintf("feed:ticket:%d", ticketID)
}

// HandlerFunc consumes a delivered event.
type HandlerFunc func(Event)

// Bus is the change feed contract. Subscribe returns an unsubscribe func.
type Bus interface {
	Publish(ctx context.Context, channel string, event Event) error
	Subscribe(ctx context.Context, handler HandlerFunc, channels ...string) (func(), error)
}

// Broadcast publishes one event to several channels, returning the first
// error encountered.
func Broadcast(ctx context.Context, bus Bus, event Event, channels ...string) error {
	for _, channel := range channels {
		if err := bus.Publish(ctx, channel, event); err != nil {
			return err
		}
	}
	return nil
}
