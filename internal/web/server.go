// Package web provides the JSON HTTP API over core.Service.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/gridkit/internal/config"
	"github.com/JonMunkholm/gridkit/internal/core"
	"github.com/JonMunkholm/gridkit/internal/permission"
	mw "github.com/JonMunkholm/gridkit/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP server for the gridkit API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	limits  []*rateLimiter
}

// NewServer creates a Server with all middleware and routes installed.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(mw.Metrics)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))
		r.Use(mw.Role(s.cfg.Security.RoleHeader, s.cfg.Security.DefaultRole))

		r.Get("/entities", s.handleListEntities)
		r.Get("/status", s.handleStatus)

		r.Route("/entities/{entity}", func(r chi.Router) {
			r.With(s.require(permission.Read)).Get("/", s.handleGetSchema)
			r.Get("/permissions", s.handlePermissions)

			r.Group(func(r chi.Router) {
				r.Use(s.require(permission.View))
				r.Get("/columns", s.handleColumns)
				r.Get("/fields", s.handleInputFields)
				r.Post("/visibility", s.handleVisibility)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.require(permission.Refresh))
				r.Post("/options", s.handleOptions)
				r.Get("/options/{field}", s.handleFieldOptions)
			})

			r.With(s.require(permission.Export)).Get("/template", s.handleTemplate)

			r.Group(func(r chi.Router) {
				r.Use(s.require(permission.Read))
				r.Get("/records", s.handleQuery)
				r.Get("/imports", s.handleListImports)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.require(permission.Create))
				if s.cfg.Rate.Enabled && s.cfg.Rate.ImportLimit > 0 {
					r.Use(s.newRateLimiter(s.cfg.Rate.ImportLimit).middleware)
				}
				r.Post("/import", s.handleImport)
				r.Post("/preview", s.handlePreview)
			})

			r.With(s.require(permission.Delete)).Delete("/imports/{importID}", s.handleRollback)
		})
	})
}

// require rejects callers whose role lacks action on the {entity} in the
// route.
func (s *Server) require(action permission.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entity := chi.URLParam(r, "entity")
			role := core.RoleFromContext(r.Context())
			if err := s.service.Check(entity, role, action); err != nil {
				s.respondError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then waits for running imports.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limits {
		l.stop()
	}
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.service.WaitForImports(ctx)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) newRateLimiter(perMinute int) *rateLimiter {
	l := newRateLimiter(perMinute, time.Minute)
	s.limits = append(s.limits, l)
	return l
}

// securityHeaders adds hardening headers to every response.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}
