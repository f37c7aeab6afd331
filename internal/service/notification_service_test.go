package service

import (
	"context"
	"errors"
	"testing"

	"github.com/push-hr/helpdesk/pkg/util"
)

// seedNotifications creates a ticket as the user so the admin session holds
// one unread "Nuevo ticket" notification.
func seedNotifications(t *testing.T, env *testEnv) {
	t.Helper()
	userSess := env.open(t, "user-a")
	if _, err := env.lifecycle.Create(context.Background(), userSess, draft()); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestMarkReadFlipsFlagEverywhere(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	adminSess := env.open(t, "admin-b")
	seedNotifications(t, env)

	list := env.notifSvc.List(adminSess)
	if len(list) != 1 || list[0].IsRead {
		t.Fatalf("notifications = %+v", list)
	}

	if err := env.notifSvc.MarkRead(context.Background(), adminSess, list[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if got := env.notifSvc.List(adminSess); !got[0].IsRead {
		t.Error("session copy still unread")
	}
	if rows := env.notifications.forUser("admin-b"); !rows[0].IsRead {
		t.Error("durable row still unread")
	}
}

func TestMarkReadRejectsForeignNotification(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	adminSess := env.open(t, "admin-b")
	userSess := env.open(t, "user-a")
	seedNotifications(t, env)

	id := env.notifSvc.List(adminSess)[0].ID
	err := env.notifSvc.MarkRead(context.Background(), userSess, id)
	if !util.IsNotFound(err) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	if rows := env.notifications.forUser("admin-b"); rows[0].IsRead {
		t.Error("foreign mark-read mutated the row")
	}
}

func TestMarkReadRollsBackOnWriteFailure(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	adminSess := env.open(t, "admin-b")
	seedNotifications(t, env)
	id := env.notifSvc.List(adminSess)[0].ID

	env.notifications.failMarkRead = errors.New("write refused")
	if err := env.notifSvc.MarkRead(context.Background(), adminSess, id); err == nil {
		t.Fatal("expected error")
	}
	if got := env.notifSvc.List(adminSess); got[0].IsRead {
		t.Error("optimistic flag survived a failed write")
	}
}

func TestMarkAllRead(t *testing.T) {
	env := newTestEnv(t, testProfiles()...)
	adminSess := env.open(t, "admin-b")
	seedNotifications(t, env)
	seedNotifications(t, env)

	if err := env.notifSvc.MarkAllRead(context.Background(), adminSess); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	for _, n := range env.notifSvc.List(adminSess) {
		if !n.IsRead {
			t.Errorf("notification %d still unread", n.ID)
		}
	}
	for _, n := range env.notifications.forUser("admin-b") {
		if !n.IsRead {
			t.Errorf("durable row %d still unread", n.ID)
		}
	}
}
