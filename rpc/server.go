package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swaprouter/native/router"
	"swaprouter/storage"
)

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress string
	// Owner and Operator are the identities the daemon acts under when
	// forwarding authenticated requests to the engine. Admin endpoints run
	// as Owner, swap submissions as Operator.
	Owner    [20]byte
	Operator [20]byte

	RateLimit RateLimit
}

// Server hosts the swap, admin and audit endpoints.
type Server struct {
	cfg     Config
	engine  *router.Engine
	store   *storage.Store
	auth    *Authenticator
	limiter *RateLimiter
	logger  *slog.Logger

	handler http.Handler
}

// New constructs a configured HTTP server around the engine. The audit store
// is optional; without it the outcome endpoints report 503.
func New(cfg Config, engine *router.Engine, store *storage.Store, auth *Authenticator, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine required")
	}
	if auth == nil {
		return nil, fmt.Errorf("authenticator required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		cfg:     cfg,
		engine:  engine,
		store:   store,
		auth:    auth,
		limiter: NewRateLimiter(cfg.RateLimit, logger),
		logger:  logger,
	}
	srv.handler = srv.buildRouter()
	return srv, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.limiter.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Use(s.auth.Middleware)
		api.Post("/swaps/aggregated", s.handleSwapAggregated)
		api.Post("/swaps/split", s.handleSwapSplit)
		api.Post("/swaps/callback", s.handleSwapCallback)
		api.Post("/swaps/callback/manual", s.handleSwapCallbackManual)
		api.Get("/assets/{address}", s.handleAssetStatus)
		api.Get("/assets/{address}/value", s.handleValuation)
		api.Get("/outcomes", s.handleListOutcomes)
		api.Get("/outcomes/venues", s.handleVenueStats)
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(s.auth.Middleware)
		admin.Get("/status", s.handleAdminStatus)
		admin.Put("/fee-policy", s.handleSetFeePolicy)
		admin.Post("/assets", s.handleRegisterAssets)
		admin.Delete("/assets/{address}", s.handleDeregisterAsset)
		admin.Post("/operators", s.handleAddOperator)
		admin.Delete("/operators/{address}", s.handleRemoveOperator)
		admin.Put("/pause", s.handleSetPaused)
	})

	return r
}

// Run starts the HTTP server and blocks until context cancellation.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("http server listening", "address", s.cfg.ListenAddress)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
