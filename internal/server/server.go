// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware and
// routes, and it owns the long-lived resources (store, Redis, mailer):
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and calls New, which creates:
//
//	store (mongo | sqlite) ─┬→ services → handlers → routes
//	redis (optional)  ──────┤
//	mailer (smtp|ses|log) ──┤
//	youtube client ─────────┘
//
// Tests skip New and call NewWithDeps with an in-memory store and fakes.
// This is the "composition root" pattern: all dependencies are wired in one
// place rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshijoe05/records-backend/internal/auth"
	"github.com/joshijoe05/records-backend/internal/config"
	"github.com/joshijoe05/records-backend/internal/handler"
	"github.com/joshijoe05/records-backend/internal/mailer"
	"github.com/joshijoe05/records-backend/internal/middleware"
	"github.com/joshijoe05/records-backend/internal/repository"
	mongoRepo "github.com/joshijoe05/records-backend/internal/repository/mongo"
	redisRepo "github.com/joshijoe05/records-backend/internal/repository/redis"
	sqliteRepo "github.com/joshijoe05/records-backend/internal/repository/sqlite"
	"github.com/joshijoe05/records-backend/internal/service"
	"github.com/joshijoe05/records-backend/internal/youtube"
)

// shutdownGrace is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownGrace = 30 * time.Second

// Deps are the external collaborators the server is built from.
type Deps struct {
	Store repository.Store
	// Revoked is the logout revocation list. Nil means the primary store.
	Revoked   auth.RevocationList
	Mailer    mailer.Mailer
	Playlists service.PlaylistSource
	// Registry receives the HTTP metrics. Nil means a fresh registry.
	Registry *prometheus.Registry
}

// pinger is implemented by every backing store.
type pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the connections opened in New. closers run in reverse
// order of opening once the HTTP server has drained.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	deps    Deps
	closers []func(context.Context) error
}

// New opens every resource named by cfg and wires the server.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	var (
		deps    Deps
		closers []func(context.Context) error
	)
	fail := func(err error) (*Server, error) {
		closeAll(context.Background(), closers, logger)
		return nil, err
	}

	// === STORE ===
	switch cfg.Store.Driver {
	case "mongo":
		store, err := mongoRepo.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return fail(fmt.Errorf("opening mongo store: %w", err))
		}
		deps.Store = store
		closers = append(closers, store.Close)
	default:
		if cfg.SQLite.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
				return fail(fmt.Errorf("creating database directory: %w", err))
			}
		}
		store, err := sqliteRepo.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return fail(fmt.Errorf("opening sqlite store: %w", err))
		}
		deps.Store = store
		closers = append(closers, store.Close)
	}

	// === REVOCATION LIST ===
	if cfg.Redis.URL != "" {
		revoked, err := redisRepo.New(ctx, cfg.Redis.URL)
		if err != nil {
			return fail(fmt.Errorf("connecting to redis: %w", err))
		}
		deps.Revoked = revoked
		closers = append(closers, func(context.Context) error { return revoked.Close() })
	}

	// === MAILER ===
	switch cfg.Email.Provider {
	case "smtp":
		deps.Mailer = mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.Email.Sender)
	case "ses":
		m, err := mailer.NewSESMailer(ctx, cfg.SES.Region, cfg.Email.Sender)
		if err != nil {
			return fail(fmt.Errorf("creating SES mailer: %w", err))
		}
		deps.Mailer = m
	case "log":
		deps.Mailer = mailer.NewLogMailer(logger)
	default:
		return fail(fmt.Errorf("unknown email provider %q", cfg.Email.Provider))
	}

	// === YOUTUBE ===
	yt, err := youtube.NewClient(ctx, youtube.Config{
		APIKey:     cfg.YouTube.APIKey,
		Endpoint:   cfg.YouTube.Endpoint,
		MaxResults: cfg.YouTube.MaxResults,
	})
	if err != nil {
		return fail(fmt.Errorf("creating YouTube client: %w", err))
	}
	deps.Playlists = yt

	s, err := NewWithDeps(cfg, deps, logger)
	if err != nil {
		return fail(err)
	}
	s.closers = closers
	return s, nil
}

// NewWithDeps wires the router around already-open collaborators. The
// caller keeps ownership of them.
func NewWithDeps(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("server: a store is required")
	}
	if deps.Revoked == nil {
		deps.Revoked = deps.Store
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		deps:   deps,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /healthz, /metrics                    → outside /api, no auth
//	     /api/auth/...                         → public, except send/verification-email
//	     /api/user/..., /api/skill...          → session required
//	     /api/tools/youtube/course...          → session required
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info and the request id
// 4. Metrics: counts requests per route pattern
// 5. Recoverer: catches panics and returns 500 instead of crashing
// 6. CORS: answers preflights before any handler runs
func (s *Server) setupRoutes() error {
	cfg := s.config

	// === Collaborators ===
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	cookies := auth.NewCookieCodec(cfg.Auth.CookieName, cfg.Auth.CookieDomain)
	passwords := auth.NewPasswordService(cfg.Auth.BcryptCost)
	sessions := auth.NewSessionVerifier(tokens, s.deps.Revoked, s.deps.Store)

	var google *auth.GoogleProvider
	if cfg.Google.Enabled() {
		google = auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL)
	}

	// === Services ===
	authService := service.NewAuthService(s.deps.Store, s.deps.Store, tokens, passwords, sessions,
		s.deps.Mailer, cfg.App.FrontendURL, s.logger)
	userService := service.NewUserService(s.deps.Store, s.logger)
	skillService := service.NewSkillService(s.deps.Store, s.logger)
	courseService := service.NewCourseService(s.deps.Store, s.deps.Playlists, cfg.YouTube.Timeout, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, cookies, tokens, google, cfg.App.FrontendURL, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	skillHandler := handler.NewSkillHandler(skillService, s.logger)
	courseHandler := handler.NewCourseHandler(courseService, s.logger)

	metrics := middleware.NewMetrics(s.deps.Registry)
	s.deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.Instrument)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.App.CORSOrigins,
		AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Operational Routes ===
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))

	requireSession := auth.RequireSession(cookies, sessions, s.logger)

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.Post("/sso/google", authHandler.HandleGoogleSSO)
			r.Post("/verify-session", authHandler.HandleVerifySession)
			r.Post("/verify-email", authHandler.HandleVerifyEmail)
			r.Post("/send/reset-password-email", authHandler.HandleSendResetPasswordEmail)
			r.Post("/reset-password", authHandler.HandleResetPassword)
			r.With(requireSession).Post("/send/verification-email", authHandler.HandleSendVerificationEmail)

			if authHandler.GoogleEnabled() {
				r.Get("/google/login", authHandler.HandleGoogleLogin)
				r.Get("/google/callback", authHandler.HandleGoogleCallback)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Get("/user/username-availability", userHandler.HandleUsernameAvailability)
			r.Get("/user/profile/{userId}", userHandler.HandleProfile)
			r.Put("/user/username", userHandler.HandleUpdateUsername)
			r.Put("/user/onboarding", userHandler.HandleOnboarding)

			r.Get("/skill", skillHandler.HandleListSkills)
			r.Post("/skill", skillHandler.HandleCreateSkill)
			r.Get("/skill-category", skillHandler.HandleListCategories)
			r.Post("/skill-category", skillHandler.HandleCreateCategory)

			r.Route("/tools/youtube/course", func(r chi.Router) {
				r.Post("/", courseHandler.HandleImport)
				r.Get("/", courseHandler.HandleListNotStarted)
				r.Get("/{courseId}", courseHandler.HandleGet)
				r.Delete("/{courseId}", courseHandler.HandleDelete)
				r.Put("/{courseId}/progress", courseHandler.HandleUpdateProgress)
			})
		})
	})

	return nil
}

// handleHealth pings the store and, when it is separate, the revocation list.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := []pinger{s.deps.Store}
	if p, ok := s.deps.Revoked.(pinger); ok && s.deps.Revoked != auth.RevocationList(s.deps.Store) {
		checks = append(checks, p)
	}

	w.Header().Set("Content-Type", "application/json")
	for _, c := range checks {
		if err := c.Ping(ctx); err != nil {
			s.logger.Error("health check failed", slog.Any("error", err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"ERROR","code":503}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"OK","code":200}`))
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the store and Redis connections
func (s *Server) Start() error {
	defer s.Close(context.Background())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("store", s.config.Store.Driver),
			slog.Bool("redis", s.config.Redis.URL != ""),
			slog.String("email", s.config.Email.Provider),
			slog.Bool("googleOAuth", s.config.Google.Enabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close releases the resources opened by New. It is safe to call twice.
func (s *Server) Close(ctx context.Context) {
	closeAll(ctx, s.closers, s.logger)
	s.closers = nil
}

func closeAll(ctx context.Context, closers []func(context.Context) error, logger *slog.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			logger.Warn("closing resource failed", slog.Any("error", err))
		}
	}
}
