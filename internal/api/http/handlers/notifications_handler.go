package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/push-hr/helpdesk/internal/auth"
	"github.com/push-hr/helpdesk/internal/service"
	"github.com/push-hr/helpdesk/pkg/util"
)

// NotificationsHandler serves the caller's in-app notifications.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.notifications.List(auth.CurrentSession(c))})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return util.NewValidationError("invalid notification id", nil)
	}
	if err := h.notifications.MarkRead(c.UserContext(), auth.CurrentSession(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// MarkAllRead POST /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	if err := h.notifications.MarkAllRead(c.UserContext(), auth.CurrentSession(c)); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
