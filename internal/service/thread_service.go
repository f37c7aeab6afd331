package service

import (
	"context"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/push-hr/helpdesk/internal/blob"
	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/internal/events"
	"github.com/push-hr/helpdesk/internal/feed"
	"github.com/push-hr/helpdesk/internal/repository"
	"github.com/push-hr/helpdesk/internal/session"
	"github.com/push-hr/helpdesk/pkg/util"
)

// bodyPreviewLen caps the excerpt carried on message events.
const bodyPreviewLen = 120

// ThreadService manages a ticket's conversation: thread assembly with
// visibility filtering, and the optimistic message-post protocol with
// attachment upload.
type ThreadService struct {
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	history     repository.HistoryRepository
	blobs       blob.Store
	bus         feed.Bus
	dispatcher  events.Dispatcher
	sessions    *session.Manager
	logger      *zap.Logger

	tempSeq atomic.Int64
}

// ThreadDependencies bundles collaborators for the thread service.
type ThreadDependencies struct {
	MessageRepo    repository.MessageRepository
	AttachmentRepo repository.AttachmentRepository
	HistoryRepo    repository.HistoryRepository
	Blobs          blob.Store
	Bus            feed.Bus
	Dispatcher     events.Dispatcher
	Sessions       *session.Manager
	Logger         *zap.Logger
}

// NewThreadService creates the service.
func NewThreadService(deps ThreadDependencies) *ThreadService {
	return &ThreadService{
		messages:    deps.MessageRepo,
		attachments: deps.AttachmentRepo,
		history:     deps.HistoryRepo,
		blobs:       deps.Blobs,
		bus:         deps.Bus,
		dispatcher:  deps.Dispatcher,
		sessions:    deps.Sessions,
		logger:      deps.Logger,
	}
}

// Open loads a ticket's thread and history into the session's detail view.
// Private messages are stripped for actors who cannot manage tickets;
// attachments created against the ticket description (no message link)
// surface as the thread's initial attachments.
func (s *ThreadService) Open(ctx context.Context, sess *session.Store, ticketID int64) (*domain.Thread, error) {
	if _, ok := sess.Ticket(ticketID); !ok {
		return nil, util.NewNotFound("ticket", map[string]any{"id": ticketID})
	}

	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	atts, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}

	thread := assembleThread(msgs, atts, sess.Self().CanManage())
	sess.OpenTicket(ticketID, thread.Messages, entries)

	// Follow the ticket's scoped channel while the detail view is open so
	// message and history events land without a reload. Closing the view or
	// opening another ticket releases the watch.
	cancel, err := s.sessions.WatchTicket(ctx, sess, ticketID)
	if err != nil {
		s.logger.Warn("watch ticket feed", zap.Int64("ticket_id", ticketID), zap.Error(err))
	} else {
		sess.SetWatchCancel(cancel)
	}
	return thread, nil
}

// assembleThread joins attachments onto their messages and applies the
// private-note visibility rule.
func assembleThread(msgs []domain.Message, atts []domain.Attachment, canManage bool) *domain.Thread {
	byMessage := make(map[int64][]domain.Attachment)
	var initial []domain.Attachment
	for _, a := range atts {
		if a.MessageID == nil {
			initial = append(initial, a)
			continue
		}
		byMessage[*a.MessageID] = append(byMessage[*a.MessageID], a)
	}

	thread := &domain.Thread{InitialAttachments: initial}
	for _, m := range msgs {
		if m.IsPrivate && !canManage {
			continue
		}
		m.Attachments = byMessage[m.ID]
		thread.Messages = append(thread.Messages, m)
	}
	return thread
}

// Upload describes an optional file posted with a message.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// PostMessage appends a message to the ticket's thread using the optimistic
// protocol: a temporary message with a local negative id is visible in the
// session immediately, then replaced by the persisted row once the write and
// any attachment upload succeed. Any failure removes the temporary message
// and surfaces the error; no orphaned optimistic state survives.
func (s *ThreadService) PostMessage(ctx context.Context, sess *session.Store, ticketID int64, content string, isPrivate bool, upload *Upload) (*domain.Message, error) {
	actor := sess.Self()
	if isPrivate && !actor.CanManage() {
		return nil, util.NewForbidden("private notes require a technician or admin role")
	}
	content = strings.TrimSpace(content)
	if content == "" && upload == nil {
		return nil, util.NewValidationError("message needs content or a file", nil)
	}
	ticket, ok := sess.Ticket(ticketID)
	if !ok {
		return nil, util.NewNotFound("ticket", map[string]any{"id": ticketID})
	}

	temp := domain.Message{
		ID:        -s.tempSeq.Add(1),
		TicketID:  ticketID,
		UserID:    actor.ID,
		Content:   content,
		IsPrivate: isPrivate,
		CreatedAt: time.Now().UTC(),
	}

	persisted := temp
	persisted.ID = 0
	var attachment *domain.Attachment

	err := session.Optimistic(ctx,
		func() { sess.AppendMessage(temp) },
		func(ctx context.Context) error {
			if err := s.messages.Create(ctx, &persisted); err != nil {
				return err
			}
			if upload == nil {
				return nil
			}
			a, err := s.storeAttachment(ctx, &persisted, actor.ID, upload)
			if err != nil {
				return err
			}
			attachment = a
			persisted.Attachments = []domain.Attachment{*a}
			return nil
		},
		func(ctx context.Context) { sess.RemoveMessage(temp.ID) },
	)
	if err != nil {
		return nil, util.MapError(err)
	}

	sess.ReplaceMessage(temp.ID, persisted)
	s.publishMessage(ctx, &persisted, attachment)

	preview := content
	if len(preview) > bodyPreviewLen {
		preview = preview[:bodyPreviewLen]
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventMessageAdded,
		Ticket:    ticket,
		Actor:     events.Actor{UserID: actor.ID, Name: actor.Name},
		Timestamp: time.Now().UTC(),
		Payload: events.MessageAddedPayload{
			MessageID:   persisted.ID,
			IsPrivate:   isPrivate,
			BodyPreview: preview,
		},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("dispatch message event", zap.Error(err))
	}
	return &persisted, nil
}

// storeAttachment uploads the file under an uploader-namespaced path and
// links the attachment row to the persisted message.
func (s *ThreadService) storeAttachment(ctx context.Context, msg *domain.Message, uploaderID string, upload *Upload) (*domain.Attachment, error) {
	path := blob.ObjectPath(uploaderID, upload.FileName)
	if err := s.blobs.Upload(ctx, path, upload.Reader, upload.Size, upload.ContentType); err != nil {
		return nil, err
	}
	a := &domain.Attachment{
		TicketID:   msg.TicketID,
		MessageID:  &msg.ID,
		FileName:   upload.FileName,
		FileURL:    s.blobs.PublicURL(path),
		MimeType:   upload.ContentType,
		SizeBytes:  upload.Size,
		UploaderID: uploaderID,
	}
	if err := s.attachments.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *ThreadService) publishMessage(ctx context.Context, msg *domain.Message, attachment *domain.Attachment) {
	ev, err := feed.NewEvent(feed.TableMessages, feed.EventInsert, msg.TicketID, nil, msg)
	if err != nil {
		s.logger.Error("encode message feed event", zap.Error(err))
		return
	}
	if err := s.bus.Publish(ctx, feed.TicketChannel(msg.TicketID), ev); err != nil {
		s.logger.Error("publish message feed event", zap.Error(err))
	}

	if attachment == nil {
		return
	}
	av, err := feed.NewEvent(feed.TableAttachments, feed.EventInsert, msg.TicketID, nil, attachment)
	if err != nil {
		s.logger.Error("encode attachment feed event", zap.Error(err))
		return
	}
	if err := s.bus.Publish(ctx, feed.TableChannel(feed.TableAttachments), av); err != nil {
		s.logger.Error("publish attachment feed event", zap.Error(err))
	}
}
