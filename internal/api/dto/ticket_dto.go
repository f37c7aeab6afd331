package dto

import (
	"github.com/push-hr/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	CategoryID  int64                 `json:"category_id"`
	Priority    domain.TicketPriority `json:"priority"`
}

// TransitionTicketRequest carries a partial lifecycle update. Absent fields
// are left untouched.
type TransitionTicketRequest struct {
	Status     *domain.TicketStatus   `json:"status"`
	Priority   *domain.TicketPriority `json:"priority"`
	AssignedTo *string                `json:"assigned_to"`
}

// Patch converts the request into a domain patch.
func (r TransitionTicketRequest) Patch() domain.TicketPatch {
	return domain.TicketPatch{
		Status:     r.Status,
		Priority:   r.Priority,
		AssignedTo: r.AssignedTo,
	}
}

// TicketDetail is the detail-view response: the ticket with its thread and
// audit trail.
type TicketDetail struct {
	Ticket  domain.Ticket         `json:"ticket"`
	Thread  domain.Thread         `json:"thread"`
	History []domain.HistoryEntry `json:"history"`
}
