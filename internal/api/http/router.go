package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/push-hr/helpdesk/internal/api/http/handlers"
	"github.com/push-hr/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	Reference      *handlers.ReferenceHandler
	Profiles       *handlers.ProfilesHandler
	Stream         *handlers.StreamHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", auth.RequireCanManage(), cfg.Tickets.TransitionTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)

	api.Get("/notifications", cfg.Notifications.List)
	api.Post("/notifications/:id/read", cfg.Notifications.MarkRead)
	api.Post("/notifications/read-all", cfg.Notifications.MarkAllRead)

	api.Get("/categories", cfg.Reference.ListCategories)
	api.Post("/categories", auth.RequireAdmin(), cfg.Reference.CreateCategory)
	api.Put("/categories/:id", auth.RequireAdmin(), cfg.Reference.UpdateCategory)
	api.Delete("/categories/:id", auth.RequireAdmin(), cfg.Reference.DeleteCategory)

	api.Get("/faqs", cfg.Reference.ListFAQs)
	api.Post("/faqs", auth.RequireAdmin(), cfg.Reference.CreateFAQ)
	api.Put("/faqs/:id", auth.RequireAdmin(), cfg.Reference.UpdateFAQ)
	api.Delete("/faqs/:id", auth.RequireAdmin(), cfg.Reference.DeleteFAQ)

	api.Get("/profiles", cfg.Profiles.List)
	api.Get("/profiles/me", cfg.Profiles.Me)
	api.Patch("/profiles/:id", auth.RequireAdmin(), cfg.Profiles.Update)
	api.Delete("/profiles/:id", auth.RequireAdmin(), cfg.Profiles.Delete)

	api.Get("/events", cfg.Stream.Events)
}
