package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/personahub/chat-backend/internal/api/http/handlers"
	"github.com/personahub/chat-backend/internal/auth"
	"github.com/personahub/chat-backend/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Personas       *handlers.PersonasHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    *RateLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Access rules live in the dispatcher;
// routes only resolve the principal and throttle.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, cfg.RateLimiter.Handle)

	api.Post("/auth/register", cfg.Users.Register)
	api.Post("/auth/login", cfg.Users.Login)

	me := api.Group("/me")
	me.Get("", cfg.Users.Me)
	me.Post("/password", cfg.Users.SetPassword)
	me.Delete("/google", cfg.Users.UnlinkGoogle)
	me.Get("/devices", cfg.Users.ListDevices)
	me.Post("/devices", cfg.Users.RegisterDevice)
	me.Delete("/devices/:id", cfg.Users.UnregisterDevice)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.ListMine)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/close", cfg.Tickets.Close)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)

	personas := api.Group("/personas")
	personas.Get("", cfg.Personas.ListPublic)
	personas.Post("", cfg.Personas.Create)
	personas.Get("/:id", cfg.Personas.Get)
	personas.Patch("/:id", cfg.Personas.Update)
	personas.Delete("/:id", cfg.Personas.Archive)
	personas.Put("/:id/image", cfg.Personas.UploadImage)

	chats := api.Group("/chats")
	chats.Post("", cfg.Personas.StartChat)
	chats.Get("/:id", cfg.Personas.GetChat)

	api.Post("/reports", cfg.Reports.Create)

	admin := api.Group("/admin")
	admin.Get("/tickets", cfg.Tickets.ListAll)
	admin.Post("/tickets/:id/assign", cfg.Tickets.Assign)
	admin.Post("/tickets/:id/escalate", cfg.Tickets.Escalate)
	admin.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)
	admin.Get("/reports", cfg.Reports.List)
	admin.Post("/reports/:id/resolve", cfg.Reports.Resolve)
	admin.Post("/personas/:id/suspend", cfg.Personas.Suspend)
	admin.Post("/personas/:id/reinstate", cfg.Personas.Reinstate)
	admin.Post("/users/:id/suspend", cfg.Users.Suspend)
	admin.Post("/users/:id/unsuspend", cfg.Users.Unsuspend)
}
