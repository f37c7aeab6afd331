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

// DirectoryService owns reference data and the people directory: profiles
// (including first-login auto-provisioning), categories and FAQs. It also
// serves as the snapshot loader for session stores.
type DirectoryService struct {
	tickets       repository.TicketRepository
	profiles      repository.ProfileRepository
	categories    repository.CategoryRepository
	faqs          repository.FAQRepository
	notifications repository.NotificationRepository
	bus           feed.Bus
	logger        *zap.Logger
}

// DirectoryDependencies bundles repositories for the directory service.
type DirectoryDependencies struct {
	TicketRepo       repository.TicketRepository
	ProfileRepo      repository.ProfileRepository
	CategoryRepo     repository.CategoryRepository
	FAQRepo          repository.FAQRepository
	NotificationRepo repository.NotificationRepository
	Bus              feed.Bus
	Logger           *zap.Logger
}

// NewDirectoryService creates the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	return &DirectoryService{
		tickets:       deps.TicketRepo,
		profiles:      deps.ProfileRepo,
		categories:    deps.CategoryRepo,
		faqs:          deps.FAQRepo,
		notifications: deps.NotificationRepo,
		bus:           deps.Bus,
		logger:        deps.Logger,
	}
}

// LoadTickets implements session.Loader. Regular users see only their own
// tickets; technicians and admins see everything.
func (s *DirectoryService) LoadTickets(ctx context.Context, self *domain.Profile) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{}
	if !self.CanManage() {
		id := self.ID
		filter.CreatorID = &id
	}
	return s.tickets.List(ctx, filter)
}

// LoadProfiles implements session.Loader.
func (s *DirectoryService) LoadProfiles(ctx context.Context) ([]domain.Profile, error) {
	return s.profiles.List(ctx)
}

// LoadCategories implements session.Loader.
func (s *DirectoryService) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

// LoadFAQs implements session.Loader.
func (s *DirectoryService) LoadFAQs(ctx context.Context) ([]domain.FAQ, error) {
	return s.faqs.List(ctx)
}

// LoadNotifications implements session.Loader.
func (s *DirectoryService) LoadNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, 20)
}

// EnsureProfile returns the stored profile for the principal, provisioning
// the default one on first contact: role user, department General, display
// name from the email local part.
func (s *DirectoryService) EnsureProfile(ctx context.Context, id, email string) (*domain.Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err == nil {
		return p, nil
	}
	if !util.IsNotFound(util.MapError(err)) {
		return nil, util.MapError(err)
	}

	p = domain.NewProvisionedProfile(id, email)
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, util.MapError(err)
	}
	s.logger.Info("provisioned profile", zap.String("id", id), zap.String("email", email))
	s.publish(ctx, feed.TableProfiles, feed.EventInsert, nil, p)
	return p, nil
}

// UpdateProfile applies an admin patch to a profile, optimistically in the
// caller's session first.
func (s *DirectoryService) UpdateProfile(ctx context.Context, sess *session.Store, id string, patch domain.ProfilePatch) (*domain.Profile, error) {
	if sess.Self().Role != domain.RoleAdmin {
		return nil, util.NewForbidden("only admins can update profiles")
	}
	if patch.Role != nil && !patch.Role.IsValid() {
		return nil, util.NewValidationError("invalid role", map[string]any{"role": *patch.Role})
	}

	old, cached := sess.Profile(id)
	var updated *domain.Profile
	err := session.Optimistic(ctx,
		func() {
			if !cached {
				return
			}
			local := old
			patch.ApplyTo(&local)
			sess.UpsertProfile(local)
		},
		func(ctx context.Context) error {
			var err error
			updated, err = s.profiles.Patch(ctx, id, patch)
			return err
		},
		func(ctx context.Context) {
			if cached {
				sess.UpsertProfile(old)
			}
		},
	)
	if err != nil {
		return nil, util.MapError(err)
	}

	sess.UpsertProfile(*updated)
	s.publish(ctx, feed.TableProfiles, feed.EventUpdate, &old, updated)
	return updated, nil
}

// DeleteProfile removes a profile. Admin only; self-deletion is refused.
func (s *DirectoryService) DeleteProfile(ctx context.Context, sess *session.Store, id string) error {
	self := sess.Self()
	if self.Role != domain.RoleAdmin {
		return util.NewForbidden("only admins can delete profiles")
	}
	if self.ID == id {
		return util.NewConflict("cannot delete own profile", nil)
	}

	old, cached := sess.Profile(id)
	err := session.Optimistic(ctx,
		func() { sess.RemoveProfile(id) },
		func(ctx context.Context) error { return s.profiles.Delete(ctx, id) },
		func(ctx context.Context) {
			if cached {
				sess.UpsertProfile(old)
			}
		},
	)
	if err != nil {
		return util.MapError(err)
	}
	s.publish(ctx, feed.TableProfiles, feed.EventDelete, &old, nil)
	return nil
}

// CreateCategory adds a category. Admin only.
func (s *DirectoryService) CreateCategory(ctx context.Context, sess *session.Store, category *domain.Category) error {
	if sess.Self().Role != domain.RoleAdmin {
		return util.NewForbidden("only admins can manage categories")
	}
	if category.Name == "" {
		return util.NewValidationError("category name required", nil)
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return util.MapError(err)
	}
	s.publish(ctx, feed.TableCategories, feed.EventInsert, nil, category)
	return nil
}

// UpdateCategory replaces a category. Admin only.
func (s *DirectoryService) UpdateCategory(ctx context.Context, sess *session.Store, category *domain.Category) error {
	if sess.Self().Role != domain.RoleAdmin {
		return util.NewForbidden("only admins can manage categories")
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return util.MapError(err)
	}
	s.publish(ctx, feed.TableCategories, feed.EventUpdate, nil, category)
	return nil
}

// DeleteCategory removes a category. Admin only.
func (s *DirectoryService) DeleteCategory(ctx context.Context, sess *session.Store, id int64) error {
	if sess.Self().Role != domain.RoleAdmin {
		return util.NewForbidden("only admins can manage categories")
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return util.MapError(err)
	}
	s.publish(ctx, feed.TableCategories, feed.EventDelete, &domain.Category{ID: id}, nil)
	return nil
}

// CreateFAQ adds a knowledge-base entry. Admin only.
func (s *DirectoryService) CreateFAQ(ctx context.Context, sess *session.Store, faq *domain.FAQ) error {
	if sess.Self().Role != domain.RoleAdmin {
		return util.NewForbidden("only admins can manage FAQs")
	}
	if faq.Question == "" || faq.Answer == "" {
		return util.NewValidationError("question and answer required", nil)
	}
	if err := s.faqs.Create(ctx, faq); err != nil {
		return util.MapError(err)
	}
	s.publish(ctx, feed.TableFAQs, feed.EventInsert, nil, faq)
	return nil
}

// UpdateFAQ replaces a knowledge-base entry. Admin only.
func (s *DirectoryService) UpdateFAQ(ctx context.Context, sess *session.Store, faq *domain.FAQ) error {
	if sess.Self().Role != domain.RoleAdmin {
		return util.NewForbidden("only admins can manage FAQs")
	}
	if err := s.faqs.Update(ctx, faq); err != nil {
		return util.MapError(err)
	}
	s.publish(ctx, feed.TableFAQs, feed.EventUpdate, nil, faq)
	return nil
}

// DeleteFAQ removes a knowledge-base entry. Admin only.
func (s *DirectoryService) DeleteFAQ(ctx context.Context, sess *session.Store, id int64) error {
	if sess.Self().Role != domain.RoleAdmin {
		return util.NewForbidden("only admins can manage FAQs")
	}
	if err := s.faqs.Delete(ctx, id); err != nil {
		return util.MapError(err)
	}
	s.publish(ctx, feed.TableFAQs, feed.EventDelete, &domain.FAQ{ID: id}, nil)
	return nil
}

func (s *DirectoryService) publish(ctx context.Context, table string, typ feed.EventType, oldRecord, newRecord any) {
	ev, err := feed.NewEvent(table, typ, 0, oldRecord, newRecord)
	if err != nil {
		s.logger.Error("encode feed event", zap.String("table", table), zap.Error(err))
		return
	}
	if err := s.bus.Publish(ctx, feed.TableChannel(table), ev); err != nil {
		s.logger.Error("publish feed event", zap.String("table", table), zap.Error(err))
	}
}
