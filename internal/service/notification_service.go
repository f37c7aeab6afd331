package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/internal/feed"
	"github.com/push-hr/helpdesk/internal/repository"
	"github.com/push-hr/helpdesk/internal/session"
	"github.com/push-hr/helpdesk/pkg/util"
)

// NotificationService manages the caller's in-app notification read state.
// Creation happens in the fan-out service; only is_read ever changes here.
type NotificationService struct {
	notifications repository.NotificationRepository
	bus           feed.Bus
	logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(notifications repository.NotificationRepository, bus feed.Bus, logger *zap.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, bus: bus, logger: logger}
}

// List returns the caller's cached notifications, newest first.
func (s *NotificationService) List(sess *session.Store) []domain.Notification {
	return sess.Notifications()
}

// MarkRead flips one notification's read flag, optimistically in the
// session first. Notifications belong to exactly one user; marking someone
// else's is a not-found.
func (s *NotificationService) MarkRead(ctx context.Context, sess *session.Store, id int64) error {
	before := sess.Notifications()
	owned := false
	for _, n := range before {
		if n.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		return util.NewNotFound("notification", map[string]any{"id": id})
	}

	var updated *domain.Notification
	err := session.Optimistic(ctx,
		func() { sess.MarkNotificationRead(id) },
		func(ctx context.Context) error {
			var err error
			updated, err = s.notifications.MarkRead(ctx, id)
			return err
		},
		func(ctx context.Context) { sess.SetNotifications(before) },
	)
	if err != nil {
		return util.MapError(err)
	}
	s.publish(ctx, feed.EventUpdate, updated)
	return nil
}

// MarkAllRead flips every unread notification of the caller.
func (s *NotificationService) MarkAllRead(ctx context.Context, sess *session.Store) error {
	self := sess.Self()
	before := sess.Notifications()
	unread := make([]domain.Notification, 0)
	for _, n := range before {
		if !n.IsRead {
			unread = append(unread, n)
		}
	}

	err := session.Optimistic(ctx,
		func() { sess.MarkAllNotificationsRead() },
		func(ctx context.Context) error { return s.notifications.MarkAllRead(ctx, self.ID) },
		func(ctx context.Context) { sess.SetNotifications(before) },
	)
	if err != nil {
		return util.MapError(err)
	}

	for i := range unread {
		unread[i].IsRead = true
		s.publish(ctx, feed.EventUpdate, &unread[i])
	}
	return nil
}

func (s *NotificationService) publish(ctx context.Context, typ feed.EventType, n *domain.Notification) {
	if n == nil {
		return
	}
	ev, err := feed.NewEvent(feed.TableNotifications, typ, 0, nil, n)
	if err != nil {
		s.logger.Error("encode notification feed event", zap.Error(err))
		return
	}
	if err := s.bus.Publish(ctx, feed.TableChannel(feed.TableNotifications), ev); err != nil {
		s.logger.Error("publish notification feed event", zap.Error(err))
	}
}
