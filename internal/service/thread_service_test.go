package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/push-hr/helpdesk/internal/domain"
)

func TestPrivateNotesAreInvisibleToRegularUsers(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	ticket, err := env.lifecycle.Create(context.Background(), userSess, draft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	adminSess := env.open(t, "admin-b")
	if _, err := env.threads.Open(context.Background(), adminSess, ticket.ID); err != nil {
		t.Fatalf("admin open: %v", err)
	}
	if _, err := env.threads.PostMessage(context.Background(), adminSess, ticket.ID, "nota interna", true, nil); err != nil {
		t.Fatalf("post private: %v", err)
	}
	if _, err := env.threads.PostMessage(context.Background(), adminSess, ticket.ID, "respuesta pública", false, nil); err != nil {
		t.Fatalf("post public: %v", err)
	}

	userThread, err := env.threads.Open(context.Background(), userSess, ticket.ID)
	if err != nil {
		t.Fatalf("user open: %v", err)
	}
	if len(userThread.Messages) != 1 {
		t.Fatalf("user sees %d messages, want 1", len(userThread.Messages))
	}
	if userThread.Messages[0].Content != "respuesta pública" {
		t.Errorf("user sees %q", userThread.Messages[0].Content)
	}

	adminThread, err := env.threads.Open(context.Background(), adminSess, ticket.ID)
	if err != nil {
		t.Fatalf("admin reopen: %v", err)
	}
	if len(adminThread.Messages) != 2 {
		t.Fatalf("admin sees %d messages, want 2", len(adminThread.Messages))
	}
}

func TestOpenThreadFollowsLiveMessages(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	ticket, err := env.lifecycle.Create(context.Background(), userSess, draft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	techSess := env.open(t, "tech-c")
	if _, err := env.threads.Open(context.Background(), userSess, ticket.ID); err != nil {
		t.Fatalf("user open: %v", err)
	}
	if _, err := env.threads.Open(context.Background(), techSess, ticket.ID); err != nil {
		t.Fatalf("tech open: %v", err)
	}

	// Opening the detail view is enough; no extra subscription step.
	if _, err := env.threads.PostMessage(context.Background(), techSess, ticket.ID, "ya lo estoy revisando", false, nil); err != nil {
		t.Fatalf("post: %v", err)
	}
	msgs := userSess.Messages()
	if len(msgs) != 1 || msgs[0].Content != "ya lo estoy revisando" {
		t.Fatalf("user thread = %+v, want the tech's message", msgs)
	}

	// Leaving the view releases the watch; later messages stay out.
	userSess.CloseTicket()
	if _, err := env.threads.PostMessage(context.Background(), techSess, ticket.ID, "segundo avance", false, nil); err != nil {
		t.Fatalf("post after close: %v", err)
	}
	if n := len(userSess.Messages()); n != 0 {
		t.Errorf("closed view still collected %d messages", n)
	}
}

func TestPrivateNotePostingRequiresManageRole(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	ticket, _ := env.lifecycle.Create(context.Background(), userSess, draft())

	if _, err := env.threads.PostMessage(context.Background(), userSess, ticket.ID, "intento", true, nil); err == nil {
		t.Fatal("regular user must not post private notes")
	}
}

func TestPostMessageRequiresContentOrFile(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	ticket, _ := env.lifecycle.Create(context.Background(), userSess, draft())

	if _, err := env.threads.PostMessage(context.Background(), userSess, ticket.ID, "   ", false, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestPostMessageReplacesTemporaryWithPersisted(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	ticket, _ := env.lifecycle.Create(context.Background(), userSess, draft())
	if _, err := env.threads.Open(context.Background(), userSess, ticket.ID); err != nil {
		t.Fatalf("open: %v", err)
	}

	msg, err := env.threads.PostMessage(context.Background(), userSess, ticket.ID, "hola", false, nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if msg.IsTemporary() {
		t.Fatalf("persisted message kept temporary id %d", msg.ID)
	}

	cached := userSess.Messages()
	if len(cached) != 1 {
		t.Fatalf("session thread holds %d messages, want 1", len(cached))
	}
	if cached[0].ID != msg.ID {
		t.Errorf("session holds id %d, want %d", cached[0].ID, msg.ID)
	}
	for _, m := range cached {
		if m.IsTemporary() {
			t.Error("temporary message survived reconciliation")
		}
	}
}

func TestPostMessageFailureLeavesNoOptimisticResidue(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	ticket, _ := env.lifecycle.Create(context.Background(), userSess, draft())
	if _, err := env.threads.Open(context.Background(), userSess, ticket.ID); err != nil {
		t.Fatalf("open: %v", err)
	}

	env.messages.failCreate = errors.New("disk full")
	if _, err := env.threads.PostMessage(context.Background(), userSess, ticket.ID, "hola", false, nil); err == nil {
		t.Fatal("expected persist error")
	}
	if n := len(userSess.Messages()); n != 0 {
		t.Fatalf("session thread holds %d messages after failure, want 0", n)
	}
}

func TestUploadFailureRemovesTemporaryMessage(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	ticket, _ := env.lifecycle.Create(context.Background(), userSess, draft())
	if _, err := env.threads.Open(context.Background(), userSess, ticket.ID); err != nil {
		t.Fatalf("open: %v", err)
	}

	env.blobs.FailUploads = errors.New("bucket unavailable")
	upload := &Upload{
		FileName:    "captura.png",
		ContentType: "image/png",
		Size:        4,
		Reader:      strings.NewReader("data"),
	}
	if _, err := env.threads.PostMessage(context.Background(), userSess, ticket.ID, "con adjunto", false, upload); err == nil {
		t.Fatal("expected upload error")
	}
	if n := len(userSess.Messages()); n != 0 {
		t.Fatalf("session thread holds %d messages after upload failure, want 0", n)
	}
	if n := len(env.attachments.attachments); n != 0 {
		t.Fatalf("attachment rows = %d after upload failure, want 0", n)
	}
}

func TestPostMessageLinksAttachment(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	ticket, _ := env.lifecycle.Create(context.Background(), userSess, draft())
	if _, err := env.threads.Open(context.Background(), userSess, ticket.ID); err != nil {
		t.Fatalf("open: %v", err)
	}

	upload := &Upload{
		FileName:    "captura.png",
		ContentType: "image/png",
		Size:        4,
		Reader:      strings.NewReader("data"),
	}
	msg, err := env.threads.PostMessage(context.Background(), userSess, ticket.ID, "con adjunto", false, upload)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("message attachments = %d, want 1", len(msg.Attachments))
	}
	a := msg.Attachments[0]
	if a.MessageID == nil || *a.MessageID != msg.ID {
		t.Error("attachment not linked to the persisted message id")
	}
	if !strings.HasPrefix(a.FileURL, "memory://user-a/") {
		t.Errorf("file url = %q, want uploader-namespaced path", a.FileURL)
	}
	if !strings.HasSuffix(a.FileURL, "-captura.png") {
		t.Errorf("file url = %q, want original name suffix", a.FileURL)
	}
}

func TestInitialAttachmentsSurfaceSeparately(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	ticket, _ := env.lifecycle.Create(context.Background(), userSess, draft())

	// attachment created against the ticket description, before any message
	if err := env.attachments.Create(context.Background(), &domain.Attachment{
		TicketID:   ticket.ID,
		MessageID:  nil,
		FileName:   "contexto.pdf",
		FileURL:    "memory://user-a/contexto.pdf",
		MimeType:   "application/pdf",
		SizeBytes:  10,
		UploaderID: "user-a",
	}); err != nil {
		t.Fatalf("seed attachment: %v", err)
	}

	thread, err := env.threads.Open(context.Background(), userSess, ticket.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(thread.Messages) != 0 {
		t.Fatalf("messages = %d, want 0 (no ghost message)", len(thread.Messages))
	}
	if len(thread.InitialAttachments) != 1 {
		t.Fatalf("initial attachments = %d, want 1", len(thread.InitialAttachments))
	}
	if thread.InitialAttachments[0].FileName != "contexto.pdf" {
		t.Errorf("initial attachment = %q", thread.InitialAttachments[0].FileName)
	}
}

func TestMessageFanoutTargetsOtherParticipant(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	ticket, _ := env.lifecycle.Create(context.Background(), userSess, draft())

	// no assignee yet: the creator messaging their own ticket has no target
	if _, err := env.threads.PostMessage(context.Background(), userSess, ticket.ID, "¿novedades?", false, nil); err != nil {
		t.Fatalf("post: %v", err)
	}
	if n := len(env.notifications.forUser("user-a")); n != 0 {
		t.Fatalf("self-directed fan-out produced %d notifications", n)
	}

	techSess := env.open(t, "tech-c")
	if _, err := env.lifecycle.Transition(context.Background(), techSess, ticket.ID,
		domain.TicketPatch{AssignedTo: strPtr("tech-c")}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// technician replies: creator is the other party
	if _, err := env.threads.PostMessage(context.Background(), techSess, ticket.ID, "en camino", false, nil); err != nil {
		t.Fatalf("tech post: %v", err)
	}
	var found bool
	for _, n := range env.notifications.forUser("user-a") {
		if n.Title == "Nuevo mensaje" {
			found = true
		}
	}
	if !found {
		t.Error("creator missing the new-message notification")
	}

	// creator replies: assignee is the other party
	if _, err := env.threads.PostMessage(context.Background(), userSess, ticket.ID, "gracias", false, nil); err != nil {
		t.Fatalf("user post: %v", err)
	}
	found = false
	for _, n := range env.notifications.forUser("tech-c") {
		if n.Title == "Nuevo mensaje" {
			found = true
		}
	}
	if !found {
		t.Error("assignee missing the new-message notification")
	}
}

func TestPrivateNoteProducesNoFanout(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	userSess := env.open(t, "user-a")
	ticket, _ := env.lifecycle.Create(context.Background(), userSess, draft())
	env.transport.payloads = nil

	adminSess := env.open(t, "admin-b")
	if _, err := env.threads.PostMessage(context.Background(), adminSess, ticket.ID, "nota privada", true, nil); err != nil {
		t.Fatalf("post private: %v", err)
	}

	if n := len(env.notifications.forUser("user-a")); n != 0 {
		t.Errorf("private note produced %d in-app notifications", n)
	}
	if n := len(env.transport.sent()); n != 0 {
		t.Errorf("private note produced %d relay calls", n)
	}
}
