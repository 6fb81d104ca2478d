// Package server wires the dependency graph and owns the HTTP lifecycle.
//
// This is the composition root: main.go hands over a Config, and New builds
// the whole chain — sqlite stores → services → handlers → routes — in one
// place. Handlers never touch the database; services never touch HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tahmid/coursehub/internal/auth"
	"github.com/tahmid/coursehub/internal/handler"
	"github.com/tahmid/coursehub/internal/middleware"
	sqliteRepo "github.com/tahmid/coursehub/internal/repository/sqlite"
	"github.com/tahmid/coursehub/internal/service"
)

// Config holds everything the server needs, read once at startup from the
// environment. No hot reload.
type Config struct {
	Port   int
	DBPath string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	MaxDevices      int

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	WebhookSecret string
}

// Server owns the router and the database connection; the connection is
// closed during graceful shutdown so the WAL gets checkpointed.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates the server and assembles the full dependency chain.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes builds the middleware chain and the route table.
//
// ROUTE MAP:
//
//	GET  /auth/github/url            public
//	GET  /auth/github/callback       public
//	POST /auth/refresh               public (the refresh token IS the credential)
//	POST /auth/logout                public (idempotent revoke)
//	POST /enrollment/new             HMAC-signed webhook, no bearer token
//	GET  /api/me                     auth
//	GET  /api/me/enrollments         auth
//	GET  /api/courses[...]           auth (learner)
//	POST/PUT/DELETE /api/courses...  auth + admin
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// --- auth primitives ---
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	verifier, err := auth.NewWebhookVerifier(s.config.WebhookSecret)
	if err != nil {
		return fmt.Errorf("creating webhook verifier: %w", err)
	}
	github := auth.NewGitHubProvider(
		s.config.GitHubClientID,
		s.config.GitHubClientSecret,
		s.config.GitHubCallbackURL,
	)

	// --- services ---
	authService := service.NewAuthService(s.db.Users(), github, s.logger)
	refreshManager := service.NewRefreshManager(
		s.db.RefreshTokens(),
		s.db.Users(),
		tokens,
		service.RefreshConfig{
			TTL:        s.config.RefreshTokenTTL,
			MaxDevices: s.config.MaxDevices,
		},
		s.logger,
	)
	courseService := service.NewCourseService(s.db.Courses(), s.db.Lessons(), s.logger)
	enrollmentService := service.NewEnrollmentService(
		s.db.Enrollments(), s.db.Users(), s.db.Courses(), s.logger)

	// --- handlers ---
	authHandler := handler.NewAuthHandler(authService, refreshManager, tokens, s.logger)
	courseHandler := handler.NewCourseHandler(courseService, s.logger)
	enrollmentHandler := handler.NewEnrollmentHandler(verifier, enrollmentService, s.logger)

	// --- public auth flow ---
	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/github/url", authHandler.HandleGitHubURL)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/refresh", authHandler.HandleRefresh)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// --- payment webhook: authenticated by signature, not bearer token ---
	s.router.Post("/enrollment/new", enrollmentHandler.HandleNewEnrollment)

	// --- protected API ---
	requireAuth := auth.RequireAuth(tokens, s.logger)
	requireLearner := auth.RequireLearner(s.logger)
	requireAdmin := auth.RequireAdmin(s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/me", authHandler.HandleMe)
		r.Get("/me/enrollments", enrollmentHandler.HandleMyEnrollments)

		r.Group(func(r chi.Router) {
			r.Use(requireLearner)
			r.Get("/courses", courseHandler.HandleList)
			r.Get("/courses/{id}", courseHandler.HandleGetByID)
			r.Get("/courses/{id}/lessons", courseHandler.HandleListLessons)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/courses", courseHandler.HandleCreate)
			r.Put("/courses/{id}", courseHandler.HandleUpdate)
			r.Delete("/courses/{id}", courseHandler.HandleArchive)
			r.Post("/courses/{id}/reorder", courseHandler.HandleReorder)
			r.Post("/courses/{id}/lessons", courseHandler.HandleCreateLesson)
			r.Post("/lessons/{id}/reorder", courseHandler.HandleReorderLesson)
		})
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, give in-flight requests 30 seconds, close the
// database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
