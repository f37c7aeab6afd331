package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/push-hr/helpdesk/internal/blob"
	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/internal/events"
	"github.com/push-hr/helpdesk/internal/feed"
	"github.com/push-hr/helpdesk/internal/observability"
	"github.com/push-hr/helpdesk/internal/session"
)

const testBaseURL = "https://helpdesk.example.test/"

// testEnv wires the full service graph on fakes and the in-process bus, the
// way main assembles it against real infrastructure.
type testEnv struct {
	tickets       *fakeTicketRepo
	profiles      *fakeProfileRepo
	messages      *fakeMessageRepo
	attachments   *fakeAttachmentRepo
	history       *fakeHistoryRepo
	notifications *fakeNotificationRepo
	categories    *fakeCategoryRepo
	faqs          *fakeFAQRepo

	bus       feed.Bus
	blobs     *blob.MemoryStore
	transport *fakeTransport

	directory *DirectoryService
	manager   *session.Manager
	lifecycle *LifecycleService
	threads   *ThreadService
	notifSvc  *NotificationService
}

func newTestEnv(t *testing.T, profiles ...domain.Profile) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	env := &testEnv{
		tickets:       newFakeTicketRepo(),
		profiles:      newFakeProfileRepo(profiles...),
		messages:      &fakeMessageRepo{},
		attachments:   &fakeAttachmentRepo{},
		history:       &fakeHistoryRepo{},
		notifications: &fakeNotificationRepo{},
		categories:    &fakeCategoryRepo{},
		faqs:          &fakeFAQRepo{},
		bus:           feed.NewMemoryBus(),
		blobs:         blob.NewMemoryStore(),
		transport:     &fakeTransport{},
	}

	env.directory = NewDirectoryService(DirectoryDependencies{
		TicketRepo:       env.tickets,
		ProfileRepo:      env.profiles,
		CategoryRepo:     env.categories,
		FAQRepo:          env.faqs,
		NotificationRepo: env.notifications,
		Bus:              env.bus,
		Logger:           logger,
	})
	env.manager = session.NewManager(env.bus, env.directory, logger)

	dispatcher := events.NewInMemoryDispatcher(logger)
	env.lifecycle = NewLifecycleService(LifecycleDependencies{
		TicketRepo:  env.tickets,
		HistoryRepo: env.history,
		Bus:         env.bus,
		Dispatcher:  dispatcher,
		Sessions:    env.manager,
		Logger:      logger,
	})
	env.threads = NewThreadService(ThreadDependencies{
		MessageRepo:    env.messages,
		AttachmentRepo: env.attachments,
		HistoryRepo:    env.history,
		Blobs:          env.blobs,
		Bus:            env.bus,
		Dispatcher:     dispatcher,
		Sessions:       env.manager,
		Logger:         logger,
	})
	env.notifSvc = NewNotificationService(env.notifications, env.bus, logger)

	fanout := NewFanoutService(FanoutDependencies{
		NotificationRepo: env.notifications,
		ProfileRepo:      env.profiles,
		Bus:              env.bus,
		Transport:        env.transport,
		Metrics:          observability.NewMetrics(),
		BaseURL:          testBaseURL,
		Logger:           logger,
	})
	fanout.RegisterHandlers(dispatcher)

	return env
}

// open builds a live session for the given principal, subscribed to the bus.
func (e *testEnv) open(t *testing.T, userID string) *session.Store {
	t.Helper()
	p, err := e.profiles.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("profile %s: %v", userID, err)
	}
	sess, closeFn, err := e.manager.Open(context.Background(), p)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(closeFn)
	return sess
}

func strPtr(v string) *string { return &v }

func statusPtr(v domain.TicketStatus) *domain.TicketStatus { return &v }

func priorityPtr(v domain.TicketPriority) *domain.TicketPriority { return &v }
