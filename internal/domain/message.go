package domain

import "time"

// Message captures one entry in a ticket's conversation thread. Messages are
// append-only; they are never edited or deleted. Messages flagged private are
// visible only to can-manage actors.
type Message struct {
	ID          int64        `json:"id"`
	TicketID    int64        `json:"ticket_id"`
	UserID      string       `json:"user_id"`
	Content     string       `json:"content"`
	IsPrivate   bool         `json:"is_private"`
	CreatedAt   time.Time    `json:"created_at"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// IsTemporary reports whether the message carries a client-local optimistic
// identifier. Temporary ids are negative and can never collide with ids
// assigned by the store.
func (m *Message) IsTemporary() bool {
	return m.ID < 0
}

// Thread is the read model for a ticket conversation: ordered messages with
// their attachments, plus attachments uploaded against the ticket's original
// description before any message existed.
type Thread struct {
	Messages           []Message    `json:"messages"`
	InitialAttachments []Attachment `json:"initial_attachments,omitempty"`
}
