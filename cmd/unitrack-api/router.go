package main

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"unitrack-api/internal/auth"
	"unitrack-api/internal/config"
	"unitrack-api/internal/domain"
	"unitrack-api/internal/http/docs"
	"unitrack-api/internal/http/handler"
	"unitrack-api/internal/http/middleware"
	"unitrack-api/internal/observability/logger"
	"unitrack-api/internal/ratelimit"
	"unitrack-api/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	accesspkg "unitrack-api/internal/access"
)

// RouterDeps holds everything buildRouter needs to assemble the HTTP surface.
type RouterDeps struct {
	Cfg            *config.Config
	Log            *logger.Logger
	Resolver       *auth.KeyResolver
	SessionManager *accesspkg.Manager
	RateLimiter    *ratelimit.RedisRateLimiter
	Metrics        *telemetry.Metrics
	Prom           *telemetry.PromMetrics
	Pool           *pgxpool.Pool // readiness check

	// Handlers
	MeHandler      *handler.MeHandler
	ProgramHandler *handler.ProgramHandler
	ProjectHandler *handler.ProjectHandler
	AccessHandler  *handler.AccessHandler
}

// buildRouter assembles the chi.Router with all middlewares and routes.
func buildRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	if deps.Prom == nil {
		deps.Prom = telemetry.NewPromMetrics(deps.Cfg.OTELServiceName)
	}

	// Global middlewares
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLoggingMiddleware(deps.Log))
	r.Use(middleware.RecoveryMiddleware(deps.Log))
	r.Use(telemetry.OTelMiddleware(deps.Cfg.OTELServiceName))
	r.Use(telemetry.MetricsMiddleware(deps.Metrics, deps.Prom))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/openapi.yaml", docs.OpenAPIHandler().ServeHTTP)
	r.Get("/docs", docs.ScalarDocsHandler("/openapi.yaml").ServeHTTP)
	r.Get("/metrics", metricsEndpoint(deps.Cfg.MetricsToken, deps.Prom))

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Pool == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ready","note":"pool is nil"}`))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := deps.Pool.Ping(ctx); err != nil {
			deps.Log.Error(ctx, "readiness check failed: database unavailable", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"error","message":"database unavailable"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	// Authenticated routes. Every request below resolves an access session
	// from the JWT subject before any handler runs.
	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.JWTAuthMiddleware(deps.Resolver, deps.Log))
		r.Use(middleware.SessionMiddleware(deps.SessionManager, deps.Log))

		// Caller's own session view
		if deps.MeHandler != nil {
			r.Route("/me", func(r chi.Router) {
				r.Get("/", deps.MeHandler.GetMe)
				r.Post("/program", deps.MeHandler.SelectProgram)
			})
		}

		// Access administration. Authorization is enforced inside the
		// session (admin for directory and approvals, program/project
		// management authority for grants).
		if deps.AccessHandler != nil {
			r.Route("/access", func(r chi.Router) {
				r.Get("/users", deps.AccessHandler.ListUsers)
				r.Post("/check", deps.AccessHandler.CheckAccess)

				r.Route("/requests", func(r chi.Router) {
					r.Get("/", deps.AccessHandler.ListAccessRequests)
					r.Post("/{userID}/approve", deps.AccessHandler.ApproveAccessRequest)
					r.Post("/{userID}/deny", deps.AccessHandler.DenyAccessRequest)
				})

				r.Route("/programs/{programID}", func(r chi.Router) {
					r.Post("/grants", deps.AccessHandler.CreateProgramGrant)
					r.Delete("/grants/{userID}", deps.AccessHandler.DeleteProgramGrant)
					r.Route("/projects/{projectID}", func(r chi.Router) {
						r.Post("/grants", deps.AccessHandler.CreateProjectGrant)
						r.Delete("/grants/{userID}", deps.AccessHandler.DeleteProjectGrant)
					})
				})
			})
		}

		if deps.ProgramHandler != nil {
			r.Route("/programs", func(r chi.Router) {
				r.Get("/", deps.ProgramHandler.ListPrograms)
				r.Post("/", deps.ProgramHandler.CreateProgram)

				// Program-scoped routes: tenant isolation plus per-program
				// rate limiting.
				r.Route("/{programID}", func(r chi.Router) {
					r.Use(middleware.ProgramMiddleware)
					if deps.RateLimiter != nil {
						r.Use(middleware.RateLimitMiddleware(deps.RateLimiter, deps.Cfg.RateLimitPerProgramPerMin))
					}

					r.Get("/", deps.ProgramHandler.GetProgram)
					r.With(middleware.RequireAccess(domain.ResourceTypeProgram, domain.RequestActionAdmin)).
						Patch("/", deps.ProgramHandler.UpdateProgram)
					r.With(middleware.RequireAccess(domain.ResourceTypeProgram, domain.RequestActionAdmin)).
						Post("/archive", deps.ProgramHandler.ArchiveProgram)

					if deps.ProjectHandler != nil {
						r.Route("/projects", func(r chi.Router) {
							r.Get("/", deps.ProjectHandler.ListProjects)
							r.With(middleware.RequireAccess(domain.ResourceTypeProgram, domain.RequestActionAdmin)).
								Post("/", deps.ProjectHandler.CreateProject)
							r.Route("/{projectID}", func(r chi.Router) {
								r.With(middleware.RequireAccess(domain.ResourceTypeProject, domain.RequestActionRead)).
									Get("/", deps.ProjectHandler.GetProject)
								r.With(middleware.RequireAccess(domain.ResourceTypeProject, domain.RequestActionAdmin)).
									Patch("/", deps.ProjectHandler.UpdateProject)
								r.With(middleware.RequireAccess(domain.ResourceTypeProgram, domain.RequestActionAdmin)).
									Delete("/", deps.ProjectHandler.DeleteProject)
							})
						})
					}
				})
			})
		}
	})

	return r
}

// metricsEndpoint guards the Prometheus scrape path with an optional shared
// token, accepted either as X-Metrics-Token or a Bearer credential. An empty
// configured token leaves the endpoint open.
func metricsEndpoint(token string, prom *telemetry.PromMetrics) http.HandlerFunc {
	scrape := prom.Handler()
	return func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			presented := r.Header.Get("X-Metrics-Token")
			if presented == "" {
				authz := r.Header.Get("Authorization")
				if strings.HasPrefix(authz, "Bearer ") {
					presented = strings.TrimPrefix(authz, "Bearer ")
				}
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
		}
		scrape.ServeHTTP(w, r)
	}
}
