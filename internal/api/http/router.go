package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/xl-support/helpdesk/internal/api/http/handlers"
	"github.com/xl-support/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	signedIn := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAuthenticated()}

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/signup", cfg.Auth.SignUp)
	authGroup.Post("/logout", append(signedIn, cfg.Auth.Logout)...)
	authGroup.Get("/me", append(signedIn, cfg.Auth.Me)...)

	tickets := api.Group("/tickets", signedIn...)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/user/:email", cfg.Tickets.ListByCreator)
	tickets.Post("/:id/claim", cfg.Tickets.Claim)

	admin := api.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Put("/users/:id", cfg.Admin.UpdateUser)
	admin.Get("/logs", cfg.Admin.ListLogs)
	admin.Put("/tickets/:id/status", cfg.Admin.UpdateTicketStatus)
	admin.Put("/tickets/:id/assignee", cfg.Admin.AssignTicket)
	admin.Get("/tickets/:id/history", cfg.Admin.TicketHistory)
	admin.Get("/metrics", cfg.Admin.Metrics)
}
