package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/internal/events"
	"github.com/push-hr/helpdesk/internal/feed"
	"github.com/push-hr/helpdesk/internal/observability"
	"github.com/push-hr/helpdesk/internal/relay"
	"github.com/push-hr/helpdesk/internal/repository"
)

// FanoutService turns lifecycle and thread events into in-app notification
// rows and best-effort external relay calls. Every failure in here is logged
// and swallowed; fan-out never blocks or fails the originating operation.
type FanoutService struct {
	notifications repository.NotificationRepository
	profiles      repository.ProfileRepository
	bus           feed.Bus
	transport     relay.Transport
	metrics       *observability.Metrics
	baseURL       string
	logger        *zap.Logger
}

// FanoutDependencies bundles collaborators for the fan-out service.
type FanoutDependencies struct {
	NotificationRepo repository.NotificationRepository
	ProfileRepo      repository.ProfileRepository
	Bus              feed.Bus
	Transport        relay.Transport
	Metrics          *observability.Metrics
	BaseURL          string
	Logger           *zap.Logger
}

// NewFanoutService creates the service.
func NewFanoutService(deps FanoutDependencies) *FanoutService {
	return &FanoutService{
		notifications: deps.NotificationRepo,
		profiles:      deps.ProfileRepo,
		bus:           deps.Bus,
		transport:     deps.Transport,
		metrics:       deps.Metrics,
		baseURL:       deps.BaseURL,
		logger:        deps.Logger,
	}
}

// RegisterHandlers subscribes to the lifecycle and thread events.
func (s *FanoutService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, s.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.handleStatusChanged)
	dispatcher.Subscribe(events.EventTicketAssigned, s.handleAssigned)
	dispatcher.Subscribe(events.EventMessageAdded, s.handleMessageAdded)
}

// handleTicketCreated notifies every admin profile and relays the new
// ticket with the full quick-action set.
func (s *FanoutService) handleTicketCreated(ctx context.Context, event events.Event) error {
	admins, err := s.profiles.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		s.logger.Error("list admins for fan-out", zap.Error(err))
		admins = nil
	}
	for _, admin := range admins {
		s.writeNotification(ctx, &domain.Notification{
			UserID:   admin.ID,
			Title:    "Nuevo ticket",
			Content:  fmt.Sprintf("Se ha creado el ticket %s: %s", event.Ticket.Code(), event.Ticket.Title),
			Type:     domain.NotificationInfo,
			TicketID: &event.Ticket.ID,
		})
	}

	payload := relay.NewPayload("Nuevo Ticket Creado", &event.Ticket,
		s.creatorLabel(ctx, &event.Ticket),
		event.Ticket.Description, s.baseURL)
	s.send(ctx, payload)
	return nil
}

// handleStatusChanged notifies the creator; when the new status is terminal
// it additionally relays a resolution event with the assign and resolve
// quick actions excluded.
func (s *FanoutService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}

	s.writeNotification(ctx, &domain.Notification{
		UserID:   event.Ticket.CreatorID,
		Title:    "Estado de ticket actualizado",
		Content:  fmt.Sprintf("Tu ticket %q ahora está en estado: %s", event.Ticket.Title, payload.NewStatus),
		Type:     domain.NotificationSuccess,
		TicketID: &event.Ticket.ID,
	})

	if payload.NewStatus == domain.TicketStatusClosed {
		body := fmt.Sprintf("%s resolvió el ticket.", event.Actor.Name)
		rp := relay.NewPayload("Resuelto", &event.Ticket,
			s.creatorLabel(ctx, &event.Ticket), body, s.baseURL,
			relay.ActionAssign, relay.ActionResolve)
		s.send(ctx, rp)
	}
	return nil
}

// handleAssigned notifies the creator and relays an update naming the
// technician, with the assign quick action excluded.
func (s *FanoutService) handleAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}

	s.writeNotification(ctx, &domain.Notification{
		UserID:   event.Ticket.CreatorID,
		Title:    "Ticket asignado",
		Content:  fmt.Sprintf("Tu ticket %q ha sido asignado para su atención.", event.Ticket.Title),
		Type:     domain.NotificationInfo,
		TicketID: &event.Ticket.ID,
	})

	body := fmt.Sprintf("Asignado a %s", payload.AssigneeName)
	if payload.SelfAssigned {
		body = fmt.Sprintf("%s tomó el ticket.", payload.AssigneeName)
	}
	rp := relay.NewPayload("Ticket asignado", &event.Ticket,
		s.creatorLabel(ctx, &event.Ticket), body, s.baseURL,
		relay.ActionAssign)
	s.send(ctx, rp)
	return nil
}

// handleMessageAdded notifies the other participant of the conversation.
// Private notes and self-directed messages produce no fan-out at all.
func (s *FanoutService) handleMessageAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MessageAddedPayload)
	if !ok || payload.IsPrivate {
		return nil
	}

	target := event.Ticket.CreatorID
	if event.Actor.UserID == event.Ticket.CreatorID {
		if event.Ticket.AssignedTo == nil {
			return nil
		}
		target = *event.Ticket.AssignedTo
	}
	if target == "" || target == event.Actor.UserID {
		return nil
	}

	s.writeNotification(ctx, &domain.Notification{
		UserID:   target,
		Title:    "Nuevo mensaje",
		Content:  fmt.Sprintf("Tienes un nuevo mensaje en el ticket: %s", event.Ticket.Title),
		Type:     domain.NotificationInfo,
		TicketID: &event.Ticket.ID,
	})

	rp := relay.NewPayload("Nuevo mensaje", &event.Ticket,
		s.creatorLabel(ctx, &event.Ticket), payload.BodyPreview, s.baseURL,
		relay.ActionAssign, relay.ActionResolve)
	s.send(ctx, rp)
	return nil
}

// writeNotification persists one in-app notification and publishes it on
// the notifications feed channel. Failures are logged only.
func (s *FanoutService) writeNotification(ctx context.Context, n *domain.Notification) {
	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Error("write in-app notification",
			zap.String("user_id", n.UserID), zap.Error(err))
		return
	}
	ev, err := feed.NewEvent(feed.TableNotifications, feed.EventInsert, 0, nil, n)
	if err != nil {
		s.logger.Error("encode notification feed event", zap.Error(err))
		return
	}
	if err := s.bus.Publish(ctx, feed.TableChannel(feed.TableNotifications), ev); err != nil {
		s.logger.Error("publish notification feed event", zap.Error(err))
	}
}

// send pushes the payload through the relay transport chain, swallowing the
// final error.
func (s *FanoutService) send(ctx context.Context, payload relay.Payload) {
	if s.transport == nil {
		return
	}
	err := s.transport.Send(ctx, payload)
	if s.metrics != nil {
		s.metrics.RecordRelay(s.transport.Name(), err == nil)
	}
	if err != nil {
		s.logger.Warn("relay delivery failed",
			zap.String("subject", payload.Subject),
			zap.Int64("ticket_id", payload.TicketID),
			zap.Error(err))
	}
}

func (s *FanoutService) creatorLabel(ctx context.Context, ticket *domain.Ticket) string {
	p, err := s.profiles.GetByID(ctx, ticket.CreatorID)
	if err != nil || p == nil {
		return ticket.CreatorID
	}
	return p.Name
}
