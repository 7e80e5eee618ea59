package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/britebottle/fleet/internal/handler"
	"github.com/britebottle/fleet/internal/server/middleware"
	"github.com/britebottle/fleet/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	// RatePerMinute caps requests per client IP. LoginPerMinute applies to
	// the credential endpoints only, which are the brute-force surface.
	RatePerMinute  int
	LoginPerMinute int
	// IngestAPIKey, when non-empty, is required on the device ingest routes.
	IngestAPIKey string
	Version      string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		RatePerMinute:   300,
		LoginPerMinute:  10,
		Version:         "dev",
	}
}

// Services bundles the domain services the router dispatches to.
type Services struct {
	Auth      *service.AuthService
	Lifecycle *service.Lifecycle
	Fleet     *service.Fleet
	Events    *service.Events
	Ingest    *service.Ingest
}

// Server is the top-level HTTP server for the fleet backend. It owns the
// Chi router and the domain services.
type Server struct {
	cfg        Config
	router     chi.Router
	svc        Services
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, svc Services, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.RatePerMinute > 0 {
		r.Use(middleware.RateLimit(s.cfg.RatePerMinute))
	}

	authHandler := handler.NewAuthHandler(s.svc.Auth, s.svc.Lifecycle, s.logger)
	roleHandler := handler.NewRoleHandler(s.svc.Lifecycle)
	userHandler := handler.NewUserHandler(s.svc.Lifecycle)
	crusherHandler := handler.NewCrusherHandler(s.svc.Fleet)
	eventHandler := handler.NewEventHandler(s.svc.Events)
	dashHandler := handler.NewDashboardHandler(s.svc.Events)
	ingestHandler := handler.NewIngestHandler(s.svc.Ingest)

	// --- Health check (no auth required) ---
	r.Get("/healthz", s.handleHealthz)

	// --- OpenAPI spec (no auth required) ---
	r.Get("/openapi.json", handler.NewOpenAPIHandler(s.cfg.Version).ServeSpec)

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {

		// Session endpoints: unauthenticated, tightly rate limited.
		r.Group(func(r chi.Router) {
			if s.cfg.LoginPerMinute > 0 {
				r.Use(middleware.RateLimit(s.cfg.LoginPerMinute))
			}
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/forgot", authHandler.ForgotPassword)
			r.Post("/auth/reset", authHandler.ResetPassword)
		})

		// Device ingest: API key, not session tokens.
		r.Route("/ingest", func(r chi.Router) {
			r.Use(middleware.RequireAPIKey(s.cfg.IngestAPIKey))
			r.Post("/{crusherId}/crush", ingestHandler.Crush)
			r.Post("/{crusherId}/empty", ingestHandler.Empty)
			r.Post("/{crusherId}/telemetry", ingestHandler.Telemetry)
			r.Post("/{crusherId}/alert", ingestHandler.RaiseAlert)
		})

		// Everything else requires a session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.svc.Auth))

			r.Get("/auth/whoami", authHandler.Whoami)

			// Crusher fleet
			r.Get("/crushers", crusherHandler.ListCrushers)
			r.Post("/crushers", crusherHandler.CreateCrusher)
			r.Get("/crushers/serial/{serial}", crusherHandler.GetCrusherBySerial)
			r.Get("/crushers/{crusherId}", crusherHandler.GetCrusher)
			r.Patch("/crushers/{crusherId}", crusherHandler.UpdateCrusher)
			r.Delete("/crushers/{crusherId}", crusherHandler.DeleteCrusher)
			r.Post("/crushers/{crusherId}/lock", crusherHandler.LockCrusher)
			r.Get("/crushers/{crusherId}/events", eventHandler.ListCrusherEvents)
			r.Post("/crushers/{crusherId}/events", eventHandler.AppendEvent)

			// Event log, alerts, routes, dashboard
			r.Get("/events", eventHandler.ListEvents)
			r.Get("/alerts", dashHandler.ListAlerts)
			r.Get("/routes", dashHandler.ListRoutes)
			r.Get("/dashboard/summary", dashHandler.Summary)

			// Role management
			r.Get("/roles", roleHandler.ListRoles)
			r.Post("/roles", roleHandler.CreateRole)
			r.Patch("/roles/{roleId}", roleHandler.UpdateRole)
			r.Delete("/roles/{roleId}", roleHandler.DeleteRole)

			// User management
			r.Get("/users", userHandler.ListUsers)
			r.Post("/users", userHandler.CreateUser)
			r.Get("/users/{userId}", userHandler.GetUser)
			r.Patch("/users/{userId}", userHandler.UpdateUser)
			r.Delete("/users/{userId}", userHandler.DeleteUser)
			r.Post("/users/{userId}/approve", userHandler.SetApproval)
			r.Post("/users/{userId}/role", userHandler.AssignRole)
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
