package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rolecraft/rolecraft/internal/config"
	"github.com/rolecraft/rolecraft/internal/handler"
	"github.com/rolecraft/rolecraft/internal/openapi"
	"github.com/rolecraft/rolecraft/internal/server/middleware"
	"github.com/rolecraft/rolecraft/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that sets those headers, otherwise
	// clients can spoof their way around the rate limits.
	TrustProxy bool

	RateLimitAttempts int
	RateLimitWindow   time.Duration

	Version string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              5000,
		ShutdownTimeout:   30 * time.Second,
		CORSOrigins:       []string{"http://localhost:5173"},
		RateLimitAttempts: 5,
		RateLimitWindow:   15 * time.Minute,
		Version:           "dev",
	}
}

// Server is the top-level HTTP server. It owns the Chi router, the store and
// the services behind the routes.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *config.Store
	accounts   *service.AccountService
	portfolios *service.PortfolioService
	authSvc    *service.AuthService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, store *config.Store, accounts *service.AccountService, portfolios *service.PortfolioService, authSvc *service.AuthService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		store:      store,
		accounts:   accounts,
		portfolios: portfolios,
		authSvc:    authSvc,
		logger:     logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	if s.cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Get("/openapi.json", s.handleOpenAPI)

	// --- Auth API ---
	authHandler := handler.NewAuthHandler(s.accounts, s.logger)
	limit := func() func(http.Handler) http.Handler {
		return middleware.RateLimit(s.cfg.RateLimitAttempts, s.cfg.RateLimitWindow)
	}

	r.Route("/auth", func(r chi.Router) {
		// Each throttled route gets its own per-IP budget.
		r.With(limit()).Post("/login", authHandler.Login)
		r.With(limit()).Post("/forgot-password", authHandler.ForgotPassword)
		r.With(limit()).Post("/emergency-reset", authHandler.EmergencyReset)
		r.With(limit()).Put("/reset-password", authHandler.ResetPassword)

		r.Post("/logout", authHandler.Logout)
		r.Post("/create-admin", authHandler.CreateAdmin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.authSvc))

			r.Get("/me", authHandler.Me)
			r.Post("/change-password/initiate", authHandler.InitiatePasswordChange)
			r.With(limit()).Put("/change-password/confirm", authHandler.ConfirmPasswordChange)
		})
	})

	// --- Portfolios ---
	portfolioHandler := handler.NewPortfolioHandler(s.portfolios, s.logger)

	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/public/{slug}", portfolioHandler.GetPublic)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.authSvc))

			r.Get("/", portfolioHandler.List)
			r.Post("/", portfolioHandler.Create)
			r.Get("/{id}", portfolioHandler.Get)
			r.Put("/{id}", portfolioHandler.Update)
			r.Delete("/{id}", portfolioHandler.Delete)
			r.Patch("/{id}/toggle", portfolioHandler.Toggle)
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

// handleReadyz is a readiness probe. Returns 200 when the credential store
// answers a ping, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := map[string]string{"store": "ok"}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "readiness check failed", "error", err)
		checks["store"] = "unreachable"
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// handleOpenAPI serves the auth API description, with the server URL taken
// from the request.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	doc := openapi.GenerateSpec(scheme+"://"+r.Host, s.cfg.Version)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(doc)
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the credential store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Let queued OTP mails finish before the store goes away.
	s.accounts.Wait()

	if err := s.store.Close(); err != nil {
		s.logger.Warn("failed to close credential store", "error", err)
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
