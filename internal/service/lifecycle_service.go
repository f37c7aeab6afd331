package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/internal/events"
	"github.com/push-hr/helpdesk/internal/feed"
	"github.com/push-hr/helpdesk/internal/repository"
	"github.com/push-hr/helpdesk/internal/session"
	"github.com/push-hr/helpdesk/pkg/util"
)

// LifecycleService coordinates ticket state: creation, status/priority/
// assignment transitions and deletion. Every durable write is followed by a
// change-feed publication; notification side effects go through the event
// dispatcher and never fail the primary operation.
type LifecycleService struct {
	tickets    repository.TicketRepository
	history    repository.HistoryRepository
	bus        feed.Bus
	dispatcher events.Dispatcher
	sessions   *session.Manager
	logger     *zap.Logger
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.HistoryRepository
	Bus         feed.Bus
	Dispatcher  events.Dispatcher
	Sessions    *session.Manager
	Logger      *zap.Logger
}

// NewLifecycleService creates the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		bus:        deps.Bus,
		dispatcher: deps.Dispatcher,
		sessions:   deps.Sessions,
		logger:     deps.Logger,
	}
}

// TicketDraft describes ticket creation input.
type TicketDraft struct {
	Title       string
	Description string
	CategoryID  int64
	Priority    domain.TicketPriority
}

// Create validates the draft and persists a new ticket. Status is forced to
// open and the assignee to nil regardless of the draft; timestamps are
// stamped by the store. The creation history entry and admin fan-out are
// best-effort side effects.
func (s *LifecycleService) Create(ctx context.Context, sess *session.Store, draft TicketDraft) (*domain.Ticket, error) {
	actor := sess.Self()

	details := map[string]any{}
	if strings.TrimSpace(draft.Title) == "" {
		details["title"] = "required"
	}
	if strings.TrimSpace(draft.Description) == "" {
		details["description"] = "required"
	}
	if draft.CategoryID <= 0 {
		details["category_id"] = "required"
	}
	if !draft.Priority.IsValid() {
		details["priority"] = "invalid"
	}
	if len(details) > 0 {
		return nil, util.NewValidationError("invalid ticket draft", details)
	}

	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		CategoryID:  draft.CategoryID,
		Priority:    draft.Priority,
		Status:      domain.TicketStatusOpen,
		CreatorID:   actor.ID,
		AssignedTo:  nil,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, util.MapError(err)
	}

	sess.UpsertTicket(*ticket)
	s.publishTicket(ctx, feed.EventInsert, nil, ticket)
	s.recordHistory(ctx, sess, ticket.ID, actor.ID, domain.HistoryTicketCreated)

	s.dispatch(ctx, events.Event{
		Type:   events.EventTicketCreated,
		Ticket: *ticket,
		Actor:  events.Actor{UserID: actor.ID, Name: actor.Name},
	})
	return ticket, nil
}

// Transition applies a partial update to status, priority and/or assignee.
// The actor must be able to manage tickets. The cache is patched
// optimistically before the durable write; on failure the session is fully
// resynced and the error propagated. Stale references to concurrently
// deleted tickets are a warning and a no-op.
func (s *LifecycleService) Transition(ctx context.Context, sess *session.Store, ticketID int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	actor := sess.Self()
	if !actor.CanManage() {
		return nil, util.NewForbidden("only technicians and admins can update tickets")
	}
	if patch.IsEmpty() {
		return nil, util.NewValidationError("empty patch", nil)
	}
	if err := patch.Validate(); err != nil {
		return nil, util.NewValidationError(err.Error(), nil)
	}

	old, ok := sess.Ticket(ticketID)
	if !ok {
		s.logger.Warn("transition for ticket missing from session, ignoring",
			zap.Int64("ticket_id", ticketID), zap.String("actor", actor.ID))
		return nil, nil
	}

	var updated *domain.Ticket
	err := session.Optimistic(ctx,
		func() {
			local := old
			patch.ApplyTo(&local)
			sess.UpsertTicket(local)
		},
		func(ctx context.Context) error {
			var err error
			updated, err = s.tickets.Patch(ctx, ticketID, patch)
			return err
		},
		func(ctx context.Context) {
			if err := s.sessions.Resync(ctx, sess); err != nil {
				s.logger.Error("session resync after failed patch", zap.Error(err))
			}
		},
	)
	if err != nil {
		return nil, util.MapError(err)
	}

	sess.UpsertTicket(*updated)
	s.publishTicket(ctx, feed.EventUpdate, &old, updated)
	s.emitTransitionEffects(ctx, sess, &old, updated)
	return updated, nil
}

// emitTransitionEffects compares old and new field by field, recording
// history and dispatching the matching domain events. Effects are
// independent; a transition touching several fields fires several.
func (s *LifecycleService) emitTransitionEffects(ctx context.Context, sess *session.Store, old, updated *domain.Ticket) {
	actor := sess.Self()

	if updated.Status != old.Status {
		action := fmt.Sprintf("Cambió el estado a %s", domain.StatusLabels[updated.Status])
		if updated.Status == domain.TicketStatusClosed {
			action = "Resolvió el ticket"
		}
		s.recordHistory(ctx, sess, updated.ID, actor.ID, action)
		s.dispatch(ctx, events.Event{
			Type:   events.EventTicketStatusChanged,
			Ticket: *updated,
			Actor:  events.Actor{UserID: actor.ID, Name: actor.Name},
			Payload: events.TicketStatusChangedPayload{
				OldStatus: old.Status,
				NewStatus: updated.Status,
			},
		})
	}

	if updated.Priority != old.Priority {
		s.recordHistory(ctx, sess, updated.ID, actor.ID,
			fmt.Sprintf("Cambió la prioridad a %s", domain.PriorityLabels[updated.Priority]))
		s.dispatch(ctx, events.Event{
			Type:   events.EventTicketPriorityChanged,
			Ticket: *updated,
			Actor:  events.Actor{UserID: actor.ID, Name: actor.Name},
			Payload: events.TicketPriorityChangedPayload{
				OldPriority: old.Priority,
				NewPriority: updated.Priority,
			},
		})
	}

	if assigneeChanged(old.AssignedTo, updated.AssignedTo) && updated.AssignedTo != nil {
		assigneeID := *updated.AssignedTo
		assigneeName := assigneeID
		if p, ok := sess.Profile(assigneeID); ok {
			assigneeName = p.Name
		}
		action := fmt.Sprintf("Asignó el ticket a %s", assigneeName)
		if assigneeID == actor.ID {
			action = "Tomó el ticket"
		}
		s.recordHistory(ctx, sess, updated.ID, actor.ID, action)
		s.dispatch(ctx, events.Event{
			Type:   events.EventTicketAssigned,
			Ticket: *updated,
			Actor:  events.Actor{UserID: actor.ID, Name: actor.Name},
			Payload: events.TicketAssignedPayload{
				AssigneeID:   assigneeID,
				AssigneeName: assigneeName,
				SelfAssigned: assigneeID == actor.ID,
			},
		})
	}
}

// Delete removes a ticket. Only the creator may delete, and only while the
// ticket is still open; violations leave the ticket untouched.
func (s *LifecycleService) Delete(ctx context.Context, sess *session.Store, ticketID int64) error {
	actor := sess.Self()
	ticket, ok := sess.Ticket(ticketID)
	if !ok {
		return util.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	if ticket.CreatorID != actor.ID {
		return util.NewForbidden("only the creator can delete a ticket")
	}
	if ticket.Status != domain.TicketStatusOpen {
		return util.NewConflict("only open tickets can be deleted", map[string]any{
			"status": ticket.Status,
		})
	}

	err := session.Optimistic(ctx,
		func() { sess.RemoveTicket(ticketID) },
		func(ctx context.Context) error { return s.tickets.Delete(ctx, ticketID) },
		func(ctx context.Context) {
			if err := s.sessions.Resync(ctx, sess); err != nil {
				s.logger.Error("session resync after failed delete", zap.Error(err))
			}
		},
	)
	if err != nil {
		return util.MapError(err)
	}

	s.publishTicket(ctx, feed.EventDelete, &ticket, nil)
	s.dispatch(ctx, events.Event{
		Type:   events.EventTicketDeleted,
		Ticket: ticket,
		Actor:  events.Actor{UserID: actor.ID, Name: actor.Name},
	})
	return nil
}

func (s *LifecycleService) publishTicket(ctx context.Context, typ feed.EventType, old, new *domain.Ticket) {
	var ticketID int64
	if new != nil {
		ticketID = new.ID
	} else if old != nil {
		ticketID = old.ID
	}
	ev, err := feed.NewEvent(feed.TableTickets, typ, ticketID, old, new)
	if err != nil {
		s.logger.Error("encode ticket feed event", zap.Error(err))
		return
	}
	if err := s.bus.Publish(ctx, feed.TableChannel(feed.TableTickets), ev); err != nil {
		s.logger.Error("publish ticket feed event", zap.Error(err))
	}
}

// recordHistory writes an audit entry and publishes it on the ticket's
// scoped channel. History failures never fail the transition.
func (s *LifecycleService) recordHistory(ctx context.Context, sess *session.Store, ticketID int64, userID, action string) {
	entry := &domain.HistoryEntry{TicketID: ticketID, UserID: userID, Action: action}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("record ticket history", zap.Int64("ticket_id", ticketID), zap.Error(err))
		return
	}
	sess.PrependHistory(*entry)
	ev, err := feed.NewEvent(feed.TableHistory, feed.EventInsert, ticketID, nil, entry)
	if err != nil {
		s.logger.Error("encode history feed event", zap.Error(err))
		return
	}
	if err := s.bus.Publish(ctx, feed.TicketChannel(ticketID), ev); err != nil {
		s.logger.Error("publish history feed event", zap.Error(err))
	}
}

func (s *LifecycleService) dispatch(ctx context.Context, event events.Event) {
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("dispatch event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func assigneeChanged(old, new *string) bool {
	switch {
	case old == nil && new == nil:
		return false
	case old == nil || new == nil:
		return true
	default:
		return *old != *new
	}
}
