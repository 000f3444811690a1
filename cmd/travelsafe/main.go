package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/rajasatyajit/TravelSafe/config"
	"github.com/rajasatyajit/TravelSafe/internal/advisory"
	"github.com/rajasatyajit/TravelSafe/internal/api"
	"github.com/rajasatyajit/TravelSafe/internal/auth"
	"github.com/rajasatyajit/TravelSafe/internal/database"
	"github.com/rajasatyajit/TravelSafe/internal/geo"
	"github.com/rajasatyajit/TravelSafe/internal/logger"
	"github.com/rajasatyajit/TravelSafe/internal/metrics"
	middlewares "github.com/rajasatyajit/TravelSafe/internal/middleware"
	"github.com/rajasatyajit/TravelSafe/internal/ratelimit"
	"github.com/rajasatyajit/TravelSafe/internal/store"
	"github.com/rajasatyajit/TravelSafe/internal/upstream"
	"github.com/rajasatyajit/TravelSafe/internal/usage"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting TravelSafe",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	if cfg.Metrics.Enabled {
		metrics.Init()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal("TravelSafe exited with error", "error", err)
	}
	logger.Info("Server exited")
}

// run wires the application and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close(context.Background())

	g, gctx := errgroup.WithContext(ctx)

	deps := api.Deps{
		Config: cfg,
		Store:  store.New(db),
		Checks: map[string]func(context.Context) error{},
	}

	var keys auth.KeyStore = auth.NewMemoryKeyStore()
	var repo *auth.Repository
	if db.IsConfigured() {
		repo = auth.NewRepository(db)
		keys = repo
	}
	deps.Verifier = auth.NewVerifier(cfg.Auth.StaticKeys, keys)

	deps.Limiter = newLimiter(gctx, g, cfg, deps.Checks)
	if repo != nil && cfg.RateLimit.UsageFlushInterval > 0 {
		agg := usage.NewAggregator(db, repo, deps.Limiter)
		g.Go(func() error {
			agg.Run(gctx, cfg.RateLimit.UsageFlushInterval)
			return nil
		})
	}

	advisoryClient := upstream.New("advisory", cfg.Upstream.Timeout, cfg.Upstream.UserAgent)
	deps.Advisories = advisory.NewService(advisoryClient, cfg.Upstream.AdvisoryURLTemplate)
	geoClient := upstream.New("geo", cfg.Upstream.Timeout, cfg.Upstream.UserAgent)
	deps.Geo = geo.New(geoClient, cfg.Upstream.GeoURLTemplate)

	deps.Sessions = auth.NewSessionManager(cfg.OAuth)
	if p := auth.NewGoogleProvider(cfg.OAuth); p != nil {
		deps.OAuth = p
		logger.Info("Google sign-in enabled", "callback", cfg.OAuth.GoogleCallbackURL)
	} else {
		logger.Info("Google sign-in disabled; GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set")
	}

	handler := api.NewHandler(deps, api.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit})
	r := newRouter(cfg, handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", addr)
		return serve(gctx, srv, cfg.Server.GracefulShutdownTimeout)
	})

	if cfg.Metrics.Enabled {
		msrv := newMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
		g.Go(func() error {
			logger.Info("Starting metrics server", "address", msrv.Addr, "path", cfg.Metrics.Path)
			return serve(gctx, msrv, cfg.Server.GracefulShutdownTimeout)
		})
	}

	return g.Wait()
}

// newLimiter prefers Redis and falls back to an in-process limiter.
func newLimiter(ctx context.Context, g *errgroup.Group, cfg *config.Config, checks map[string]func(context.Context) error) ratelimit.Limiter {
	rpm := cfg.RateLimit.RequestsPerMinute
	if cfg.Redis.URL != "" {
		mgr, err := ratelimit.NewManager(cfg.Redis.URL, rpm)
		if err == nil {
			checks["redis"] = mgr.Ping
			g.Go(func() error {
				<-ctx.Done()
				return mgr.Close()
			})
			logger.Info("Rate limiting backed by Redis", "rpm", rpm)
			return mgr
		}
		logger.Warn("Redis unavailable; using in-process rate limiting", "error", err)
	}

	local := ratelimit.NewLocal(rpm)
	g.Go(func() error {
		local.RunPruner(ctx, time.Minute)
		return nil
	})
	return local
}

func newRouter(cfg *config.Config, h *api.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.ReadTimeout))
	r.Use(middlewares.Security)
	r.Use(middlewares.CORS(cfg.CORS.AllowedOrigins))

	h.RegisterRoutes(r)
	return r
}

func newMetricsServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...", "address", srv.Addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "address", srv.Addr, "error", err)
		return err
	}
	return <-errCh
}
