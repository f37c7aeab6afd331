package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/pkg/util"
)

// RequireCanManage ensures the caller is a technician or admin.
func RequireCanManage() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentProfile(c).CanManage() {
			return util.NewForbidden("technician or admin role required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the caller is an admin.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile := CurrentProfile(c)
		if profile == nil || profile.Role != domain.RoleAdmin {
			return util.NewForbidden("admin role required")
		}
		return c.Next()
	}
}
