package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusWaiting    TicketStatus = "waiting"
	TicketStatusClosed     TicketStatus = "closed"
)

// StatusLabels holds the Spanish display labels used in history entries
// and notification bodies.
var StatusLabels = map[TicketStatus]string{
	TicketStatusOpen:       "Abierto",
	TicketStatusInProgress: "En Progreso",
	TicketStatusWaiting:    "Esperando",
	TicketStatusClosed:     "Cerrado",
}

// IsValid reports whether the status is one of the enumerated values.
func (s TicketStatus) IsValid() bool {
	_, ok := StatusLabels[s]
	return ok
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// PriorityLabels holds the Spanish display labels.
var PriorityLabels = map[TicketPriority]string{
	TicketPriorityLow:      "Baja",
	TicketPriorityMedium:   "Media",
	TicketPriorityHigh:     "Alta",
	TicketPriorityCritical: "Crítica",
}

// IsValid reports whether the priority is one of the enumerated values.
func (p TicketPriority) IsValid() bool {
	_, ok := PriorityLabels[p]
	return ok
}

// Ticket is the aggregate for support requests. The identifier is a
// monotonic bigint assigned by the store; AssignedTo stays nil until a
// technician explicitly takes the ticket.
type Ticket struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	CategoryID  int64          `json:"category_id"`
	Priority    TicketPriority `json:"priority"`
	Status      TicketStatus   `json:"status"`
	CreatorID   string         `json:"creator_id"`
	AssignedTo  *string        `json:"assigned_to"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Code returns the external-facing zero-padded ticket code, e.g. TK-0042.
func (t *Ticket) Code() string {
	return FormatTicketCode(t.ID)
}

// FormatTicketCode renders the fixed-width external ticket code.
func FormatTicketCode(id int64) string {
	return fmt.Sprintf("TK-%04d", id)
}

// TicketPatch is a partial ticket update. Nil fields are left untouched by
// the durable write, so concurrent edits to different fields never conflict;
// concurrent edits to the same field are last-write-wins.
type TicketPatch struct {
	Status     *TicketStatus   `json:"status,omitempty"`
	Priority   *TicketPriority `json:"priority,omitempty"`
	AssignedTo *string         `json:"assigned_to,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TicketPatch) IsEmpty() bool {
	return p.Status == nil && p.Priority == nil && p.AssignedTo == nil
}

// ApplyTo merges the patch into a cached copy of the ticket.
func (p TicketPatch) ApplyTo(t *Ticket) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.AssignedTo != nil {
		t.AssignedTo = p.AssignedTo
	}
	t.UpdatedAt = time.Now()
}

// Validate checks enum membership for any populated patch field.
func (p TicketPatch) Validate() error {
	if p.Status != nil && !p.Status.IsValid() {
		return fmt.Errorf("invalid status %q", *p.Status)
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return fmt.Errorf("invalid priority %q", *p.Priority)
	}
	return nil
}
