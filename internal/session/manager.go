package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/internal/feed"
)

// Loader fetches snapshot state from the store of record. The directory
// service satisfies it.
type Loader interface {
	LoadTickets(ctx context.Context, self *domain.Profile) ([]domain.Ticket, error)
	LoadProfiles(ctx context.Context) ([]domain.Profile, error)
	LoadCategories(ctx context.Context) ([]domain.Category, error)
	LoadFAQs(ctx context.Context) ([]domain.FAQ, error)
	LoadNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
}

// Manager opens session stores: initial snapshot load plus a live feed
// subscription that keeps each store reconciled until closed.
type Manager struct {
	bus    feed.Bus
	loader Loader
	logger *zap.Logger
}

// NewManager creates a session manager.
func NewManager(bus feed.Bus, loader Loader, logger *zap.Logger) *Manager {
	return &Manager{bus: bus, loader: loader, logger: logger}
}

// Open builds a session store for the principal, loads its snapshot and
// subscribes it to the table-level feed channels. The returned close func
// unsubscribes the store.
func (m *Manager) Open(ctx context.Context, self *domain.Profile) (*Store, func(), error) {
	sess := NewStore(self, m.logger)
	if err := m.load(ctx, sess); err != nil {
		return nil, nil, err
	}

	sess.OnResync(func(table string) {
		m.resync(context.Background(), sess, table)
	})

	channels := []string{
		feed.TableChannel(feed.TableTickets),
		feed.TableChannel(feed.TableProfiles),
		feed.TableChannel(feed.TableNotifications),
		feed.TableChannel(feed.TableCategories),
		feed.TableChannel(feed.TableFAQs),
		feed.TableChannel(feed.TableAttachments),
	}
	unsubscribe, err := m.bus.Subscribe(ctx, sess.Apply, channels...)
	if err != nil {
		return nil, nil, err
	}
	return sess, unsubscribe, nil
}

// WatchTicket subscribes the session to one ticket's scoped channel so its
// message and history events reach the open detail view.
func (m *Manager) WatchTicket(ctx context.Context, sess *Store, ticketID int64) (func(), error) {
	return m.bus.Subscribe(ctx, sess.Apply, feed.TicketChannel(ticketID))
}

func (m *Manager) load(ctx context.Context, sess *Store) error {
	tickets, err := m.loader.LoadTickets(ctx, sess.Self())
	if err != nil {
		return err
	}
	profiles, err := m.loader.LoadProfiles(ctx)
	if err != nil {
		return err
	}
	categories, err := m.loader.LoadCategories(ctx)
	if err != nil {
		return err
	}
	faqs, err := m.loader.LoadFAQs(ctx)
	if err != nil {
		return err
	}
	notifications, err := m.loader.LoadNotifications(ctx, sess.Self().ID)
	if err != nil {
		return err
	}
	sess.SetTickets(tickets)
	sess.SetProfiles(profiles)
	sess.SetCategories(categories)
	sess.SetFAQs(faqs)
	sess.SetNotifications(notifications)
	return nil
}

// resync refetches one coarse-grained table after a feed event. Failures are
// logged; the stale snapshot stays until the next event or reload.
func (m *Manager) resync(ctx context.Context, sess *Store, table string) {
	var err error
	switch table {
	case feed.TableCategories:
		var categories []domain.Category
		if categories, err = m.loader.LoadCategories(ctx); err == nil {
			sess.SetCategories(categories)
		}
	case feed.TableFAQs:
		var faqs []domain.FAQ
		if faqs, err = m.loader.LoadFAQs(ctx); err == nil {
			sess.SetFAQs(faqs)
		}
	case feed.TableAttachments:
		// attachments hang off the open thread; reload via tickets snapshot
		var tickets []domain.Ticket
		if tickets, err = m.loader.LoadTickets(ctx, sess.Self()); err == nil {
			sess.SetTickets(tickets)
		}
	}
	if err != nil {
		m.logger.Warn("session resync failed", zap.String("table", table), zap.Error(err))
	}
}

// Resync forces a full snapshot reload, used as the optimistic rollback path.
func (m *Manager) Resync(ctx context.Context, sess *Store) error {
	return m.load(ctx, sess)
}
