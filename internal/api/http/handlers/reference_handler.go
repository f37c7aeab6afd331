package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/push-hr/helpdesk/internal/api/dto"
	"github.com/push-hr/helpdesk/internal/auth"
	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/internal/service"
	"github.com/push-hr/helpdesk/pkg/util"
)

// ReferenceHandler serves categories and FAQs. Reads come from the session
// snapshot; writes are admin-gated and flow through the directory service.
type ReferenceHandler struct {
	directory *service.DirectoryService
}

// NewReferenceHandler constructs handler.
func NewReferenceHandler(directory *service.DirectoryService) *ReferenceHandler {
	return &ReferenceHandler{directory: directory}
}

// ListCategories GET /categories.
func (h *ReferenceHandler) ListCategories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": auth.CurrentSession(c).Categories()})
}

// CreateCategory POST /categories.
func (h *ReferenceHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	category := &domain.Category{Name: req.Name, Icon: req.Icon}
	if err := h.directory.CreateCategory(c.UserContext(), auth.CurrentSession(c), category); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": category})
}

// UpdateCategory PUT /categories/:id.
func (h *ReferenceHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	category := &domain.Category{ID: id, Name: req.Name, Icon: req.Icon}
	if err := h.directory.UpdateCategory(c.UserContext(), auth.CurrentSession(c), category); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": category})
}

// DeleteCategory DELETE /categories/:id.
func (h *ReferenceHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.directory.DeleteCategory(c.UserContext(), auth.CurrentSession(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListFAQs GET /faqs.
func (h *ReferenceHandler) ListFAQs(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": auth.CurrentSession(c).FAQs()})
}

// CreateFAQ POST /faqs.
func (h *ReferenceHandler) CreateFAQ(c *fiber.Ctx) error {
	var req dto.FAQRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	faq := &domain.FAQ{Question: req.Question, Answer: req.Answer, CategoryID: req.CategoryID}
	if err := h.directory.CreateFAQ(c.UserContext(), auth.CurrentSession(c), faq); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": faq})
}

// UpdateFAQ PUT /faqs/:id.
func (h *ReferenceHandler) UpdateFAQ(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.FAQRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	faq := &domain.FAQ{ID: id, Question: req.Question, Answer: req.Answer, CategoryID: req.CategoryID}
	if err := h.directory.UpdateFAQ(c.UserContext(), auth.CurrentSession(c), faq); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": faq})
}

// DeleteFAQ DELETE /faqs/:id.
func (h *ReferenceHandler) DeleteFAQ(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.directory.DeleteFAQ(c.UserContext(), auth.CurrentSession(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func pathID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, util.NewValidationError("invalid id", nil)
	}
	return id, nil
}
