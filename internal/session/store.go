// Package session holds the per-client session store: every connected client
// owns one Store instance, passed by reference into the services that act on
// its behalf. The store caches the client's working set and reconciles it
// against change-feed events, tolerating duplicate delivery.
package session

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/internal/feed"
)

// selfNotificationLimit mirrors the page size used when loading the
// notification list from the store of record.
const selfNotificationLimit = 20

// Store is one client's session cache. All methods are safe for concurrent
// use; feed events and service calls may arrive on different goroutines.
type Store struct {
	mu   sync.Mutex
	self *domain.Profile

	tickets  map[int64]domain.Ticket
	profiles map[string]domain.Profile

	categories    []domain.Category
	faqs          []domain.FAQ
	notifications []domain.Notification

	openTicketID int64
	messages     []domain.Message
	history      []domain.HistoryEntry
	watchCancel  func()

	onGone   func(ticketID int64)
	onResync func(table string)

	logger *zap.Logger
}

// NewStore creates an empty session store for the given principal.
func NewStore(self *domain.Profile, logger *zap.Logger) *Store {
	return &Store{
		self:     self,
		tickets:  make(map[int64]domain.Ticket),
		profiles: make(map[string]domain.Profile),
		logger:   logger,
	}
}

func (s *Store) lock()   { s.mu.Lock() }
func (s *Store) unlock() { s.mu.Unlock() }

// Self returns the principal this session belongs to.
func (s *Store) Self() *domain.Profile {
	s.lock()
	defer s.unlock()
	return s.self
}

// SetSelf replaces the cached principal, e.g. after an admin role change.
func (s *Store) SetSelf(p *domain.Profile) {
	s.lock()
	defer s.unlock()
	s.self = p
}

// OnGone registers the callback invoked when the currently open ticket is
// deleted remotely, so the client can navigate away from the detail view.
func (s *Store) OnGone(fn func(ticketID int64)) {
	s.lock()
	defer s.unlock()
	s.onGone = fn
}

// OnResync registers the coarse resync trigger for reference-data tables.
func (s *Store) OnResync(fn func(table string)) {
	s.lock()
	defer s.unlock()
	s.onResync = fn
}

// SetTickets replaces the ticket cache with a fresh snapshot.
func (s *Store) SetTickets(tickets []domain.Ticket) {
	s.lock()
	defer s.unlock()
	s.tickets = make(map[int64]domain.Ticket, len(tickets))
	for _, t := range tickets {
		s.tickets[t.ID] = t
	}
}

// Tickets returns a copy of every cached ticket.
func (s *Store) Tickets() []domain.Ticket {
	s.lock()
	defer s.unlock()
	out := make([]domain.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t)
	}
	return out
}

// Ticket looks up one cached ticket by id.
func (s *Store) Ticket(id int64) (domain.Ticket, bool) {
	s.lock()
	defer s.unlock()
	t, ok := s.tickets[id]
	return t, ok
}

// UpsertTicket writes a ticket into the cache, replacing any previous copy.
func (s *Store) UpsertTicket(t domain.Ticket) {
	s.lock()
	defer s.unlock()
	s.tickets[t.ID] = t
}

// RemoveTicket drops a ticket from the cache.
func (s *Store) RemoveTicket(id int64) {
	s.lock()
	defer s.unlock()
	delete(s.tickets, id)
}

// SetProfiles replaces the profile cache with a fresh snapshot.
func (s *Store) SetProfiles(profiles []domain.Profile) {
	s.lock()
	defer s.unlock()
	s.profiles = make(map[string]domain.Profile, len(profiles))
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}
}

// Profiles returns a copy of every cached profile.
func (s *Store) Profiles() []domain.Profile {
	s.lock()
	defer s.unlock()
	out := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out
}

// Profile looks up one cached profile by id.
func (s *Store) Profile(id string) (domain.Profile, bool) {
	s.lock()
	defer s.unlock()
	p, ok := s.profiles[id]
	return p, ok
}

// UpsertProfile writes a profile into the cache.
func (s *Store) UpsertProfile(p domain.Profile) {
	s.lock()
	defer s.unlock()
	s.profiles[p.ID] = p
}

// RemoveProfile drops a profile from the cache.
func (s *Store) RemoveProfile(id string) {
	s.lock()
	defer s.unlock()
	delete(s.profiles, id)
}

// SetCategories replaces the category snapshot.
func (s *Store) SetCategories(categories []domain.Category) {
	s.lock()
	defer s.unlock()
	s.categories = append([]domain.Category(nil), categories...)
}

// Categories returns the cached category snapshot.
func (s *Store) Categories() []domain.Category {
	s.lock()
	defer s.unlock()
	return append([]domain.Category(nil), s.categories...)
}

// SetFAQs replaces the FAQ snapshot.
func (s *Store) SetFAQs(faqs []domain.FAQ) {
	s.lock()
	defer s.unlock()
	s.faqs = append([]domain.FAQ(nil), faqs...)
}

// FAQs returns the cached FAQ snapshot.
func (s *Store) FAQs() []domain.FAQ {
	s.lock()
	defer s.unlock()
	return append([]domain.FAQ(nil), s.faqs...)
}

// SetNotifications replaces the caller's notification list (newest first).
func (s *Store) SetNotifications(list []domain.Notification) {
	s.lock()
	defer s.unlock()
	s.notifications = append([]domain.Notification(nil), list...)
}

// Notifications returns the caller's cached notifications, newest first.
func (s *Store) Notifications() []domain.Notification {
	s.lock()
	defer s.unlock()
	return append([]domain.Notification(nil), s.notifications...)
}

// MarkNotificationRead flips the cached read flag for one notification.
func (s *Store) MarkNotificationRead(id int64) {
	s.lock()
	defer s.unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].IsRead = true
			return
		}
	}
}

// MarkAllNotificationsRead flips every cached read flag.
func (s *Store) MarkAllNotificationsRead() {
	s.lock()
	defer s.unlock()
	for i := range s.notifications {
		s.notifications[i].IsRead = true
	}
}

// OpenTicket marks a ticket as the session's detail view and installs its
// thread and history, replacing any previously open ticket.
func (s *Store) OpenTicket(ticketID int64, messages []domain.Message, history []domain.HistoryEntry) {
	s.lock()
	defer s.unlock()
	s.openTicketID = ticketID
	s.messages = append([]domain.Message(nil), messages...)
	s.history = append([]domain.HistoryEntry(nil), history...)
}

// CloseTicket leaves the detail view and drops the ticket's feed watch.
func (s *Store) CloseTicket() {
	s.lock()
	s.openTicketID = 0
	s.messages = nil
	s.history = nil
	cancel := s.watchCancel
	s.watchCancel = nil
	s.unlock()
	if cancel != nil {
		cancel()
	}
}

// SetWatchCancel installs the unsubscribe func for the open ticket's scoped
// feed channel, releasing any previous watch first.
func (s *Store) SetWatchCancel(cancel func()) {
	s.lock()
	prev := s.watchCancel
	s.watchCancel = cancel
	s.unlock()
	if prev != nil {
		prev()
	}
}

// OpenTicketID returns the id of the open detail view, zero if none.
func (s *Store) OpenTicketID() int64 {
	s.lock()
	defer s.unlock()
	return s.openTicketID
}

// Messages returns the open ticket's cached thread in creation order.
func (s *Store) Messages() []domain.Message {
	s.lock()
	defer s.unlock()
	return append([]domain.Message(nil), s.messages...)
}

// History returns the open ticket's cached audit trail, newest first.
func (s *Store) History() []domain.HistoryEntry {
	s.lock()
	defer s.unlock()
	return append([]domain.HistoryEntry(nil), s.history...)
}

// AppendMessage adds a message to the open thread if its id is not already
// present. Used both for optimistic temporaries and for feed inserts.
func (s *Store) AppendMessage(m domain.Message) {
	s.lock()
	defer s.unlock()
	s.appendMessageLocked(m)
}

func (s *Store) appendMessageLocked(m domain.Message) {
	if m.TicketID != s.openTicketID {
		return
	}
	for i := range s.messages {
		if s.messages[i].ID == m.ID {
			return
		}
	}
	s.messages = append(s.messages, m)
}

// ReplaceMessage swaps a temporary message for its persisted row, keeping
// the optimistic copy's attachments when the persisted row carries none.
// Idempotent against the feed insert for the same row arriving first.
func (s *Store) ReplaceMessage(tempID int64, persisted domain.Message) {
	s.lock()
	defer s.unlock()
	for i := range s.messages {
		if s.messages[i].ID == tempID {
			if len(persisted.Attachments) == 0 {
				persisted.Attachments = s.messages[i].Attachments
			}
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	s.appendMessageLocked(persisted)
}

// RemoveMessage drops a message from the open thread, e.g. when an
// optimistic post fails.
func (s *Store) RemoveMessage(id int64) {
	s.lock()
	defer s.unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// AttachToMessage links an attachment to a cached message of the open thread.
func (s *Store) AttachToMessage(messageID int64, att domain.Attachment) {
	s.lock()
	defer s.unlock()
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i].Attachments = append(s.messages[i].Attachments, att)
			return
		}
	}
}

// PrependHistory adds an audit entry to the open ticket's trail if absent.
func (s *Store) PrependHistory(h domain.HistoryEntry) {
	s.lock()
	defer s.unlock()
	if h.TicketID != s.openTicketID {
		return
	}
	for i := range s.history {
		if s.history[i].ID == h.ID {
			return
		}
	}
	s.history = append([]domain.HistoryEntry{h}, s.history...)
}

// Apply reconciles one change-feed event into the session cache. Events may
// be delivered more than once; every branch is idempotent. Inserts for rows
// the optimistic path already placed are absorbed, updates for unknown rows
// are ignored, deletes of the open ticket fire the gone callback.
func (s *Store) Apply(ev feed.Event) {
	switch ev.Table {
	case feed.TableTickets:
		s.applyTicket(ev)
	case feed.TableProfiles:
		s.applyProfile(ev)
	case feed.TableNotifications:
		s.applyNotification(ev)
	case feed.TableMessages:
		s.applyMessage(ev)
	case feed.TableHistory:
		s.applyHistory(ev)
	case feed.TableCategories, feed.TableFAQs, feed.TableAttachments:
		// coarse-grained tables: any change triggers a full snapshot refetch
		s.triggerResync(ev.Table)
	default:
		s.logger.Warn("unknown feed table", zap.String("table", ev.Table))
	}
}

func (s *Store) triggerResync(table string) {
	s.lock()
	fn := s.onResync
	s.unlock()
	if fn != nil {
		fn(table)
	}
}

// canSeeTicketLocked mirrors the snapshot loader's scoping: regular users
// only see their own tickets, so feed events and fresh loads agree.
func (s *Store) canSeeTicketLocked(t domain.Ticket) bool {
	return s.self.CanManage() || t.CreatorID == s.self.ID
}

func (s *Store) applyTicket(ev feed.Event) {
	switch ev.Type {
	case feed.EventInsert, feed.EventUpdate:
		var t domain.Ticket
		if err := json.Unmarshal(ev.New, &t); err != nil {
			s.logger.Warn("undecodable ticket event", zap.Error(err))
			return
		}
		s.lock()
		if !s.canSeeTicketLocked(t) {
			s.unlock()
			return
		}
		if _, exists := s.tickets[t.ID]; ev.Type == feed.EventInsert && exists {
			s.unlock()
			return
		}
		if ev.Type == feed.EventUpdate {
			if _, exists := s.tickets[t.ID]; !exists {
				s.unlock()
				return
			}
		}
		s.tickets[t.ID] = t
		s.unlock()
	case feed.EventDelete:
		var t domain.Ticket
		if err := json.Unmarshal(ev.Old, &t); err != nil {
			s.logger.Warn("undecodable ticket event", zap.Error(err))
			return
		}
		s.lock()
		delete(s.tickets, t.ID)
		gone := s.openTicketID == t.ID
		fn := s.onGone
		var cancel func()
		if gone {
			s.openTicketID = 0
			s.messages = nil
			s.history = nil
			cancel = s.watchCancel
			s.watchCancel = nil
		}
		s.unlock()
		if cancel != nil {
			cancel()
		}
		if gone && fn != nil {
			fn(t.ID)
		}
	}
}

func (s *Store) applyProfile(ev feed.Event) {
	switch ev.Type {
	case feed.EventInsert, feed.EventUpdate:
		var p domain.Profile
		if err := json.Unmarshal(ev.New, &p); err != nil {
			s.logger.Warn("undecodable profile event", zap.Error(err))
			return
		}
		s.lock()
		if ev.Type == feed.EventUpdate {
			if _, exists := s.profiles[p.ID]; !exists {
				s.unlock()
				return
			}
		}
		s.profiles[p.ID] = p
		if s.self != nil && s.self.ID == p.ID {
			copied := p
			s.self = &copied
		}
		s.unlock()
	case feed.EventDelete:
		var p domain.Profile
		if err := json.Unmarshal(ev.Old, &p); err != nil {
			s.logger.Warn("undecodable profile event", zap.Error(err))
			return
		}
		s.lock()
		delete(s.profiles, p.ID)
		s.unlock()
	}
}

func (s *Store) applyNotification(ev feed.Event) {
	var n domain.Notification
	raw := ev.New
	if ev.Type == feed.EventDelete {
		raw = ev.Old
	}
	if err := json.Unmarshal(raw, &n); err != nil {
		s.logger.Warn("undecodable notification event", zap.Error(err))
		return
	}
	s.lock()
	defer s.unlock()
	if s.self == nil || n.UserID != s.self.ID {
		return
	}
	switch ev.Type {
	case feed.EventInsert:
		for i := range s.notifications {
			if s.notifications[i].ID == n.ID {
				return
			}
		}
		s.notifications = append([]domain.Notification{n}, s.notifications...)
		if len(s.notifications) > selfNotificationLimit {
			s.notifications = s.notifications[:selfNotificationLimit]
		}
	case feed.EventUpdate:
		for i := range s.notifications {
			if s.notifications[i].ID == n.ID {
				s.notifications[i] = n
				return
			}
		}
	case feed.EventDelete:
		for i := range s.notifications {
			if s.notifications[i].ID == n.ID {
				s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) applyMessage(ev feed.Event) {
	if ev.Type != feed.EventInsert {
		return // messages are append-only
	}
	var m domain.Message
	if err := json.Unmarshal(ev.New, &m); err != nil {
		s.logger.Warn("undecodable message event", zap.Error(err))
		return
	}
	s.lock()
	defer s.unlock()
	if m.IsPrivate && !s.self.CanManage() {
		return
	}
	s.appendMessageLocked(m)
}

func (s *Store) applyHistory(ev feed.Event) {
	if ev.Type != feed.EventInsert {
		return
	}
	var h domain.HistoryEntry
	if err := json.Unmarshal(ev.New, &h); err != nil {
		s.logger.Warn("undecodable history event", zap.Error(err))
		return
	}
	s.lock()
	defer s.unlock()
	if h.TicketID != s.openTicketID {
		return
	}
	for i := range s.history {
		if s.history[i].ID == h.ID {
			return
		}
	}
	s.history = append([]domain.HistoryEntry{h}, s.history...)
}
