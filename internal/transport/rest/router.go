package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/approval"
	"github.com/dulmini1119/tms-sub001/internal/assignment"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/user"
	"github.com/dulmini1119/tms-sub001/internal/gpslog"
	"github.com/dulmini1119/tms-sub001/internal/invoice"
	"github.com/dulmini1119/tms-sub001/internal/observability"
	"github.com/dulmini1119/tms-sub001/internal/transport/middleware"
	"github.com/dulmini1119/tms-sub001/internal/transport/swagger"
	"github.com/dulmini1119/tms-sub001/internal/tripcost"
	"github.com/dulmini1119/tms-sub001/internal/triprequest"
)

// Handlers are the domain endpoints mounted under /api/v1. Nil handlers are skipped.
type Handlers struct {
	TripRequests *triprequest.Handler
	Approvals    *approval.Handler
	Assignments  *assignment.Handler
	GPSLogs      *gpslog.Handler
	TripCosts    *tripcost.Handler
	Invoices     *invoice.Handler
}

type Dependencies struct {
	Config        *internal.Config
	DB            *sqlx.DB
	Authenticator func(http.Handler) http.Handler
	Metrics       *observability.Metrics
	Logger        *slog.Logger
	Handlers      Handlers
}

func NewRouter(deps Dependencies) *chi.Mux {
	router := chi.NewRouter()
	RegisterAllRoutes(router, deps)
	return router
}

func RegisterAllRoutes(router *chi.Mux, deps Dependencies) {
	cfg := deps.Config
	logger := deps.Logger
	healthHandler := NewHealthHandler(deps.DB)

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.TraceID)
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.RateLimitByIP(cfg.Server.RateLimitPerMin))
	router.Use(deps.Metrics.Middleware)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	if cfg.Observability.Metrics.Enabled {
		router.Handle(cfg.Observability.Metrics.Path, deps.Metrics.Handler())
	}

	// OpenAPI document and Swagger UI live outside the API prefix
	router.Get("/openapi.yml", swagger.SpecHandler())
	router.Handle("/swagger/*", swagger.Handler())

	managers := middleware.RequireRoles(logger, user.RoleManager, user.RoleAdmin)
	dispatchers := middleware.RequireRoles(logger, user.RoleDispatcher, user.RoleAdmin)
	finance := middleware.RequireRoles(logger, user.RoleFinance, user.RoleAdmin)
	admins := middleware.RequireRoles(logger, user.RoleAdmin)
	exportLimiter := middleware.RateLimitByIP(cfg.Server.ExportRatePerMin)

	h := deps.Handlers
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Group(func(pr chi.Router) {
			pr.Use(deps.Authenticator)
			pr.Use(middleware.UserContext)
			pr.Use(middleware.RecoveryMiddleware(logger))

			if h.TripRequests != nil {
				pr.Route("/trip-requests", func(sr chi.Router) { h.TripRequests.Routes(sr, admins) })
			}
			if h.Approvals != nil {
				pr.Route("/trip-approvals", func(sr chi.Router) { h.Approvals.Routes(sr, managers) })
			}
			if h.Assignments != nil {
				pr.Route("/trip-assignments", func(sr chi.Router) { h.Assignments.Routes(sr, dispatchers) })
			}
			if h.GPSLogs != nil {
				pr.Route("/gps-logs", func(sr chi.Router) { h.GPSLogs.Routes(sr, exportLimiter) })
			}
			if h.TripCosts != nil {
				pr.Route("/trip-costs", func(sr chi.Router) { h.TripCosts.Routes(sr, finance) })
			}
			if h.Invoices != nil {
				pr.Route("/invoices", func(sr chi.Router) { h.Invoices.Routes(sr, finance) })
			}
		})
	})
}
