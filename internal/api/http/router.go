package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/member-registry/internal/api/http/handlers"
	"github.com/spec-kit/member-registry/internal/auth"
	"github.com/spec-kit/member-registry/internal/domain"
	"github.com/spec-kit/member-registry/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Locations      *handlers.LocationsHandler
	Members        *handlers.MembersHandler
	USSD           *handlers.USSDHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	app.Post("/ussd", cfg.USSD.Handle)
	app.Get("/sessions/active", cfg.AuthMiddleware.Handle, cfg.USSD.ActiveSessions)
	app.Get("/sessions/:id/logs", cfg.AuthMiddleware.Handle, cfg.USSD.SessionLogs)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("/api/v1")
	protected := api.Group("", cfg.AuthMiddleware.Handle)

	api.Get("/provinces", cfg.Locations.ListProvinces)
	api.Get("/provinces/:id/districts", cfg.Locations.ListDistricts)
	api.Get("/districts/:id/constituencies", cfg.Locations.ListConstituencies)
	api.Get("/constituencies/:id/wards", cfg.Locations.ListWards)

	protected.Post("/provinces", cfg.Locations.CreateProvince)
	protected.Post("/districts", cfg.Locations.CreateDistrict)
	protected.Post("/constituencies", cfg.Locations.CreateConstituency)
	protected.Post("/wards", cfg.Locations.CreateWard)
	protected.Delete("/provinces/:id", cfg.Locations.Delete(domain.LevelProvince))
	protected.Delete("/districts/:id", cfg.Locations.Delete(domain.LevelDistrict))
	protected.Delete("/constituencies/:id", cfg.Locations.Delete(domain.LevelConstituency))
	protected.Delete("/wards/:id", cfg.Locations.Delete(domain.LevelWard))

	protected.Post("/members", cfg.Members.Create)
	protected.Post("/members/bulk", cfg.Members.CreateBulk)
	protected.Get("/members", cfg.Members.List)
	protected.Get("/members/ward/:id", cfg.Members.ListByWard)
	protected.Get("/members/nrc/*", cfg.Members.GetByNRC)
	protected.Get("/members/voters/:voters_id", cfg.Members.GetByVotersID)
	protected.Get("/members/:id", cfg.Members.Get)
	protected.Put("/members/:id", cfg.Members.Update)
	protected.Delete("/members/:id", cfg.Members.Delete)
}
