package handlers

import (
	"net/http"
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/push-hr/helpdesk/internal/api/dto"
	"github.com/push-hr/helpdesk/internal/auth"
	"github.com/push-hr/helpdesk/internal/service"
	"github.com/push-hr/helpdesk/pkg/util"
)

// ProfilesHandler serves the people directory.
type ProfilesHandler struct {
	directory *service.DirectoryService
}

// NewProfilesHandler constructs handler.
func NewProfilesHandler(directory *service.DirectoryService) *ProfilesHandler {
	return &ProfilesHandler{directory: directory}
}

// Me GET /profiles/me.
func (h *ProfilesHandler) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": auth.CurrentProfile(c)})
}

// List GET /profiles.
func (h *ProfilesHandler) List(c *fiber.Ctx) error {
	profiles := auth.CurrentSession(c).Profiles()
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return c.JSON(fiber.Map{"data": profiles})
}

// Update PATCH /profiles/:id (admin).
func (h *ProfilesHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return util.NewValidationError("invalid profile id", nil)
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	profile, err := h.directory.UpdateProfile(c.UserContext(), auth.CurrentSession(c), id, req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profile})
}

// Delete DELETE /profiles/:id (admin).
func (h *ProfilesHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return util.NewValidationError("invalid profile id", nil)
	}
	if err := h.directory.DeleteProfile(c.UserContext(), auth.CurrentSession(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
