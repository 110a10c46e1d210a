package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/isp-support/internal/api/http/handlers"
	"github.com/spec-kit/isp-support/internal/auth"
	"github.com/spec-kit/isp-support/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Customers      *handlers.CustomersHandler
	Installations  *handlers.InstallationsHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
	Registry       *prometheus.Registry
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1")
	api.Post("/auth/login", cfg.Users.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Get("/auth/me", cfg.Users.Me)
	protected.Post("/auth/password", cfg.Users.ChangePassword)

	users := protected.Group("/users", auth.RequireRole(domain.UserRoleAdmin))
	users.Get("", cfg.Users.List)
	users.Post("", cfg.Users.Create)
	users.Patch("/:id", cfg.Users.Update)

	tickets := protected.Group("/tickets")
	tickets.Get("", cfg.Tickets.List)
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("/statistics", cfg.Tickets.Statistics)
	tickets.Get("/export", cfg.Tickets.Export)
	tickets.Get("/:number", cfg.Tickets.Show)
	tickets.Patch("/:number", cfg.Tickets.Update)
	tickets.Delete("/:number", cfg.Tickets.Delete)
	tickets.Patch("/:number/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:number/start", cfg.Tickets.Start)
	tickets.Post("/:number/hold", cfg.Tickets.Hold)
	tickets.Post("/:number/resume", cfg.Tickets.Resume)
	tickets.Post("/:number/resolve", cfg.Tickets.Resolve)
	tickets.Post("/:number/close", cfg.Tickets.Close)
	tickets.Post("/:number/notes", cfg.Tickets.AddNote)
	tickets.Post("/:number/escalate", cfg.Tickets.Escalate)
	tickets.Post("/:number/assign", cfg.Tickets.Assign)
	tickets.Get("/:number/sla", cfg.Tickets.SLA)

	customers := protected.Group("/customers")
	customers.Get("", cfg.Customers.List)
	customers.Post("", cfg.Customers.Create)
	customers.Get("/:id", cfg.Customers.Show)
	customers.Patch("/:id", cfg.Customers.Update)
	customers.Post("/:id/suspend", cfg.Customers.Suspend)
	customers.Post("/:id/activate", cfg.Customers.Activate)
	customers.Post("/:id/deactivate", cfg.Customers.Deactivate)

	installations := protected.Group("/installations")
	installations.Get("", cfg.Installations.List)
	installations.Post("", cfg.Installations.Create)
	installations.Get("/statistics", cfg.Installations.Statistics)
	installations.Get("/:id", cfg.Installations.Show)
	installations.Patch("/:id", cfg.Installations.Update)
	installations.Delete("/:id", cfg.Installations.Delete)
	installations.Post("/:id/schedule", cfg.Installations.Schedule)
	installations.Post("/:id/start", cfg.Installations.Start)
	installations.Post("/:id/complete", cfg.Installations.Complete)
	installations.Post("/:id/cancel", cfg.Installations.Cancel)

	dashboard := protected.Group("/dashboard")
	dashboard.Get("", cfg.Dashboard.Overview)
	dashboard.Get("/live", cfg.Dashboard.Live)
	dashboard.Get("/sla", cfg.Dashboard.SLA)
	dashboard.Get("/performance", cfg.Dashboard.Performance)
	dashboard.Get("/insights", cfg.Dashboard.Insights)
}
