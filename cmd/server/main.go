package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"smartstock/internal/api"
	"smartstock/internal/config"
	"smartstock/internal/connectivity"
	"smartstock/internal/database"
	"smartstock/internal/events"
	"smartstock/internal/export"
	"smartstock/internal/logging"
	"smartstock/internal/metrics"
	"smartstock/internal/models"
	"smartstock/internal/offline"
	"smartstock/internal/queue"
	"smartstock/internal/remote"
	"smartstock/internal/session"
	"smartstock/internal/syncer"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, stateRepo := initStateRepository(ctx, cfg, &logger)
	defer func() { _ = session.Close(redisClient) }()

	startMetrics(ctx, cfg, &logger)

	remoteClient := remote.NewClient(cfg.Sync.RemoteBaseURL, cfg.Sync.SubmitTimeout())
	bus := events.NewEventBus()

	monitor := connectivity.NewMonitor(remoteClient, bus, cfg.Sync.ProbeInterval(), cfg.Sync.ProbeTimeout(), &logger)
	go monitor.Start(ctx)

	queueManager := queue.NewManager(db, &logger)
	engine := syncer.NewEngine(queueManager, remoteClient, monitor, bus,
		syncer.PolicyFromConfig(cfg.Sync.Backoff), &logger)

	service := offline.NewService(queueManager, engine, monitor, db, bus, &logger)
	defer service.Close()

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	exporter := export.NewExporter(queueManager, cfg.Exports.Path, &logger)
	apiServer := api.NewHTTPServer(cfg.API, service, db, exporter, stateRepo, &logger)

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create database directory")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create export directory")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize database")
		return nil, err
	}

	ctx := context.Background()
	if err := seedCatalog(ctx, cfg, db, logger); err != nil {
		logger.Error().Err(err).Msg("catalog seed failed")
	}
	if err := db.CleanOldCache(ctx, cfg.Catalog.RetentionDays); err != nil {
		logger.Error().Err(err).Msg("cache cleanup failed")
	}
	return db, nil
}

// seedCatalog warms the local cache from a YAML snapshot so a freshly
// provisioned terminal can work offline before the first remote refresh.
func seedCatalog(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) error {
	seedPath := os.Getenv("CATALOG_SEED_PATH")
	if seedPath == "" {
		seedPath = cfg.Catalog.SeedPath
	}
	if seedPath == "" {
		return nil
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return fmt.Errorf("read catalog seed: %w", err)
	}

	var seed struct {
		Products []models.CachedProduct `yaml:"products"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse catalog seed: %w", err)
	}
	if len(seed.Products) == 0 {
		return nil
	}

	if err := db.UpsertProducts(ctx, seed.Products); err != nil {
		return err
	}
	logger.Info().Int("products", len(seed.Products)).Msg("catalog seeded")
	return nil
}

func initStateRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, session.StateRepository) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = session.NewRedisClient(cfg.Redis)
		if errPing := session.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	ttl := time.Duration(models.DefaultRedisTTL) * time.Second
	primaryRepo := session.NewRedisStateRepository(redisClient, ttl)
	fallbackRepo := session.NewMemoryStateRepository(ttl)
	return redisClient, session.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
