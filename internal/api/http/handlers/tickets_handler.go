package handlers

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/push-hr/helpdesk/internal/api/dto"
	"github.com/push-hr/helpdesk/internal/auth"
	"github.com/push-hr/helpdesk/internal/service"
	"github.com/push-hr/helpdesk/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
	threads   *service.ThreadService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService, threads *service.ThreadService) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle, threads: threads}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	sess := auth.CurrentSession(c)
	tickets := sess.Tickets()
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
	return c.JSON(fiber.Map{"data": tickets})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.lifecycle.Create(c.UserContext(), auth.CurrentSession(c), service.TicketDraft{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticket})
}

// GetTicket GET /tickets/:id opens the detail view: ticket, thread with
// visibility applied, and audit trail.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	sess := auth.CurrentSession(c)
	id, err := ticketID(c)
	if err != nil {
		return err
	}

	thread, err := h.threads.Open(c.UserContext(), sess, id)
	if err != nil {
		return err
	}
	ticket, _ := sess.Ticket(id)
	return c.JSON(fiber.Map{"data": dto.TicketDetail{
		Ticket:  ticket,
		Thread:  *thread,
		History: sess.History(),
	}})
}

// TransitionTicket PATCH /tickets/:id.
func (h *TicketsHandler) TransitionTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.TransitionTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.lifecycle.Transition(c.UserContext(), auth.CurrentSession(c), id, req.Patch())
	if err != nil {
		return err
	}
	if ticket == nil {
		// stale reference to a concurrently deleted ticket
		return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if err := h.lifecycle.Delete(c.UserContext(), auth.CurrentSession(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddMessage POST /tickets/:id/messages. Accepts JSON or multipart with an
// optional file part.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	var upload *service.Upload
	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader != nil {
		f, err := fileHeader.Open()
		if err != nil {
			return util.NewValidationError("unreadable file part", nil)
		}
		defer f.Close()
		upload = &service.Upload{
			FileName:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Reader:      f,
		}
	}

	msg, err := h.threads.PostMessage(c.UserContext(), auth.CurrentSession(c), id, req.Content, req.IsPrivate, upload)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": msg})
}

func ticketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, util.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}
