package domain

import "time"

// HistoryEntry is an immutable audit trail record, one per lifecycle
// transition. Action is free text in the application's display language.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryTicketCreated is the action recorded when a ticket is created.
const HistoryTicketCreated = "Ticket creado"
