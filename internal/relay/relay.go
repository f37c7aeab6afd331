// Package relay delivers chat-ops notifications to an external endpoint.
// Delivery is strictly best-effort: callers swallow the final error after the
// transport chain is exhausted, so a relay outage never fails the operation
// that triggered it.
package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/push-hr/helpdesk/internal/domain"
)

// Action names a one-click quick action embedded in the relay card.
type Action string

const (
	ActionAssign  Action = "assign"
	ActionResolve Action = "resolve"
)

// AttachmentRef describes a file referenced by the relay payload.
type AttachmentRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Payload is the structured document sent to the external relay.
type Payload struct {
	Subject        string          `json:"subject"`
	TicketID       int64           `json:"ticketId"`
	TicketCode     string          `json:"ticketCode"`
	Priority       string          `json:"priority"`
	Creator        string          `json:"creator"`
	Title          string          `json:"title"`
	Body           string          `json:"content"`
	TicketURL      string          `json:"ticketUrl"`
	Attachments    []AttachmentRef `json:"attachments,omitempty"`
	ExcludeActions []Action        `json:"excludeActions,omitempty"`
}

// Excludes reports whether the payload omits the given quick action.
func (p Payload) Excludes(action Action) bool {
	for _, a := range p.ExcludeActions {
		if a == action {
			return true
		}
	}
	return false
}

// ActionURL builds the deep link for a quick action against the base ticket
// URL, encoding the action and ticket id as query parameters.
func (p Payload) ActionURL(action Action) string {
	sep := "?"
	if strings.Contains(p.TicketURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%saction=%s&id=%d", p.TicketURL, sep, action, p.TicketID)
}

// NewPayload builds a payload for a ticket.
func NewPayload(subject string, ticket *domain.Ticket, creator, body, baseURL string, exclude ...Action) Payload {
	return Payload{
		Subject:        subject,
		TicketID:       ticket.ID,
		TicketCode:     ticket.Code(),
		Priority:       string(ticket.Priority),
		Creator:        creator,
		Title:          ticket.Title,
		Body:           body,
		TicketURL:      baseURL,
		ExcludeActions: exclude,
	}
}

// Transport sends a payload over one delivery path.
type Transport interface {
	Name() string
	Send(ctx context.Context, payload Payload) error
}

// Chain tries each transport in order and stops at the first success.
type Chain struct {
	transports []Transport
}

// NewChain builds a delivery chain.
func NewChain(transports ...Transport) *Chain {
	return &Chain{transports: transports}
}

// Name implements Transport.
func (c *Chain) Name() string { return "chain" }

// Send attempts delivery through each transport in turn. It returns nil on
// the first success and the last error when every path failed.
func (c *Chain) Send(ctx context.Context, payload Payload) error {
	if len(c.transports) == 0 {
		return fmt.Errorf("relay: no transports configured")
	}
	var lastErr error
	for _, transport := range c.transports {
		if err := transport.Send(ctx, payload); err != nil {
			lastErr = fmt.Errorf("relay %s: %w", transport.Name(), err)
			continue
		}
		return nil
	}
	return lastErr
}
