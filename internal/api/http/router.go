package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/maintenance-sla/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-sla/internal/auth"
	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	SLAMonitor     *handlers.SLAMonitorHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Post("/auth/login", cfg.Auth.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/events", cfg.Tickets.ListEvents)

	staffOnly := auth.RequireRole(domain.UserRoleTechnician, domain.UserRoleSupervisor, domain.UserRoleAdmin)
	tickets.Post("/:id/acknowledge", staffOnly, cfg.Tickets.Acknowledge)
	tickets.Post("/:id/resolve", staffOnly, cfg.Tickets.Resolve)

	monitor := app.Group("/sla-monitor", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.UserRoleAdmin))
	monitor.Post("/trigger", cfg.SLAMonitor.Trigger)
	monitor.Get("/status", cfg.SLAMonitor.Status)
	monitor.Get("/statistics", cfg.SLAMonitor.Statistics)
	monitor.Delete("/jobs", cfg.SLAMonitor.ClearJobs)
}
