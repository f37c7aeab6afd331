package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/internal/relay"
	"github.com/push-hr/helpdesk/internal/repository"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]domain.Ticket

	failPatch  error
	failCreate error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[int64]domain.Ticket)}
}

func (r *fakeTicketRepo) Create(ctx context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	r.tickets[t.ID] = *t
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r *fakeTicketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if filter.CreatorID != nil && t.CreatorID != *filter.CreatorID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTicketRepo) Patch(ctx context.Context, id int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPatch != nil {
		return nil, r.failPatch
	}
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	patch.ApplyTo(&t)
	r.tickets[id] = t
	return &t, nil
}

func (r *fakeTicketRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
}

func newFakeProfileRepo(profiles ...domain.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: make(map[string]domain.Profile)}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

func (r *fakeProfileRepo) Create(ctx context.Context, p *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.CreatedAt = time.Now().UTC()
	r.profiles[p.ID] = *p
	return nil
}

func (r *fakeProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r *fakeProfileRepo) List(ctx context.Context) ([]domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Profile
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeProfileRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Profile
	for _, p := range r.profiles {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProfileRepo) Patch(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	patch.ApplyTo(&p)
	r.profiles[id] = p
	return &p, nil
}

func (r *fakeProfileRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.profiles, id)
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   int64
	messages []domain.Message

	failCreate error
}

func (r *fakeMessageRepo) Create(ctx context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = time.Now().UTC()
	r.messages = append(r.messages, *m)
	return nil
}

func (r *fakeMessageRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	nextID      int64
	attachments []domain.Attachment

	failCreate error
}

func (r *fakeAttachmentRepo) Create(ctx context.Context, a *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now().UTC()
	r.attachments = append(r.attachments, *a)
	return nil
}

func (r *fakeAttachmentRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Attachment
	for _, a := range r.attachments {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []domain.HistoryEntry
}

func (r *fakeHistoryRepo) Create(ctx context.Context, e *domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	e.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.HistoryEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].TicketID == ticketID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) byTicket(ticketID int64) []domain.HistoryEntry {
	out, _ := r.ListByTicket(context.Background(), ticketID)
	return out
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        int64
	notifications []domain.Notification
	failMarkRead  error
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now().UTC()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for i := len(r.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if r.notifications[i].UserID == userID {
			out = append(out, r.notifications[i])
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id int64) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMarkRead != nil {
		return nil, r.failMarkRead
	}
	for i := range r.notifications {
		if r.notifications[i].ID == id {
			r.notifications[i].IsRead = true
			n := r.notifications[i]
			return &n, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].UserID == userID {
			r.notifications[i].IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) forUser(userID string) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	nextID     int64
	categories []domain.Category
}

func (r *fakeCategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	r.categories = append(r.categories, *c)
	return nil
}

func (r *fakeCategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Category(nil), r.categories...), nil
}

func (r *fakeCategoryRepo) Update(ctx context.Context, c *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.categories {
		if r.categories[i].ID == c.ID {
			r.categories[i] = *c
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeCategoryRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.categories {
		if r.categories[i].ID == id {
			r.categories = append(r.categories[:i], r.categories[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeFAQRepo struct {
	mu     sync.Mutex
	nextID int64
	faqs   []domain.FAQ
}

func (r *fakeFAQRepo) Create(ctx context.Context, f *domain.FAQ) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	f.ID = r.nextID
	r.faqs = append(r.faqs, *f)
	return nil
}

func (r *fakeFAQRepo) List(ctx context.Context) ([]domain.FAQ, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.FAQ(nil), r.faqs...), nil
}

func (r *fakeFAQRepo) Update(ctx context.Context, f *domain.FAQ) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.faqs {
		if r.faqs[i].ID == f.ID {
			r.faqs[i] = *f
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeFAQRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.faqs {
		if r.faqs[i].ID == id {
			r.faqs = append(r.faqs[:i], r.faqs[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

// fakeTransport records relay payloads and optionally fails.
type fakeTransport struct {
	mu       sync.Mutex
	payloads []relay.Payload
	err      error
}

func (t *fakeTransport) Name() string { return "fake" }

func (t *fakeTransport) Send(ctx context.Context, payload relay.Payload) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.payloads = append(t.payloads, payload)
	return nil
}

func (t *fakeTransport) sent() []relay.Payload {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]relay.Payload(nil), t.payloads...)
}
