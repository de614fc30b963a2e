// Command server runs the Planet Heroes game and dashboard API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aimd54/planet-heroes/internal/api/dashboard"
	"github.com/aimd54/planet-heroes/internal/auth"
	"github.com/aimd54/planet-heroes/internal/cache"
	"github.com/aimd54/planet-heroes/internal/config"
	"github.com/aimd54/planet-heroes/internal/facts"
	"github.com/aimd54/planet-heroes/internal/game"
	"github.com/aimd54/planet-heroes/internal/notify"
	"github.com/aimd54/planet-heroes/internal/profile"
	"github.com/aimd54/planet-heroes/internal/repository"
	"github.com/aimd54/planet-heroes/internal/service/analytics"
	"github.com/aimd54/planet-heroes/internal/service/leaderboard"
	"github.com/aimd54/planet-heroes/internal/service/progression"
	"github.com/aimd54/planet-heroes/internal/service/scheduler"
	"github.com/aimd54/planet-heroes/internal/session"
	"github.com/aimd54/planet-heroes/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := facts.Load(cfg.FactsFile)
	if err != nil {
		return err
	}

	// Primary store
	if cfg.Firestore.EmulatorHost != "" {
		_ = os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost)
	}
	fsClient, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID)
	if err != nil {
		return fmt.Errorf("firestore client: %w", err)
	}
	defer func() { _ = fsClient.Close() }()

	// Local overlay. Without Redis the server still runs, but store outages
	// are no longer absorbed.
	var (
		overlay  *profile.Overlay
		lock     cache.Cache
		checks   = map[string]dashboard.HealthChecker{}
		redisLog = log.Named("redis")
	)
	redisCache, err := cache.New(&cfg.Database.Redis, redisLog)
	if err != nil {
		redisLog.Warn().Err(err).Msg("Redis unavailable, running without profile overlay")
	} else {
		defer func() { _ = redisCache.Close() }()
		overlay = profile.NewOverlay(redisCache, cfg.Database.Redis.OverlayTTLDuration())
		lock = redisCache
		checks["redis"] = redisCache.Health
	}

	profiles := profile.NewCachedRepository(
		profile.NewFirestoreRepository(fsClient, cfg.Firestore.Collection),
		overlay,
		log.Named("profile"),
	)

	// Secondary store
	db, err := repository.NewDB(&cfg.Database.Postgres, log.Named("postgres"))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if cfg.Database.Postgres.Migrate {
		err = db.Migrate(log.Named("migrate"))
	} else {
		err = db.AutoMigrate()
	}
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	checks["postgres"] = func(context.Context) error { return db.Health() }

	users := repository.NewUserRepository(db)
	scores := repository.NewGameScoreRepository(db)

	// Services
	sessions := session.NewManager(profiles, users, log.Named("session"))
	engine := progression.NewEngine(profiles, sessions, users, scores, catalog, log.Named("progression"))
	host := game.NewHost(game.HostConfig{
		FrameInterval: cfg.Games.FrameInterval(),
		Countdowns:    countdowns(cfg.Games.Countdowns, log),
		MaxLifetime:   cfg.Games.MaxRoundLifetime(),
	}, engine.HandleCompletion, log.Named("game"))
	leaderboardService := leaderboard.NewService(profiles, scores, &cfg.Leaderboard, log.Named("leaderboard"))
	analyticsService := analytics.NewService(profiles, scores, &cfg.Analytics, log.Named("analytics"))

	digest := scheduler.NewService(
		&cfg.Scheduler,
		analyticsService,
		notify.NewClient(&cfg.Webhook, log.Named("notify")),
		lock,
		log.Named("scheduler"),
	)
	if err := digest.Start(); err != nil {
		return err
	}
	defer digest.Stop()

	// Sign-in and sign-out arrive over HTTP; Run owns teardown of the
	// session table on shutdown.
	go func() { _ = sessions.Run(ctx, nil) }()

	verifier, err := auth.NewVerifier(&cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth verifier: %w", err)
	}

	handler := dashboard.NewHandler(host, engine, sessions, leaderboardService, analyticsService, dashboard.Options{
		LoadingTimeout: cfg.Server.LoadingTimeoutDuration(),
		Checks:         checks,
	}, log.Named("api"))

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log.Named("http")))
	router.Use(auth.Middleware(verifier, log.Named("auth")))
	dashboard.RegisterRoutes(router, handler, sessions)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Prometheus.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Prometheus.Path, promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Prometheus.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", metricsSrv.Addr).Msg("Metrics server starting")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("environment", cfg.Server.Environment).Msg("Server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := host.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Rounds did not stop in time")
	}
	log.Info().Msg("Server stopped")
	return nil
}

// countdowns converts the configured countdowns, skipping unknown games.
func countdowns(in map[string]int, log *logger.Logger) map[game.Type]int {
	out := make(map[game.Type]int, len(in))
	for name, seconds := range in {
		t, err := game.ParseType(name)
		if err != nil {
			log.Warn().Str("game", name).Msg("Ignoring countdown for unknown game")
			continue
		}
		out[t] = seconds
	}
	return out
}
