package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/regwatch/app/aggregator"
	"github.com/lysyi3m/regwatch/app/api"
	"github.com/lysyi3m/regwatch/app/cfg"
	"github.com/lysyi3m/regwatch/app/database"
	"github.com/lysyi3m/regwatch/app/dates"
	"github.com/lysyi3m/regwatch/app/feed"
	"github.com/lysyi3m/regwatch/app/snapshot"
	"github.com/lysyi3m/regwatch/app/source"
	"github.com/lysyi3m/regwatch/app/summarizer"
	"github.com/lysyi3m/regwatch/app/tasks"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if appCfg == nil {
		// Help was shown
		return nil
	}

	logger := newLogger(appCfg)
	slog.SetDefault(logger)

	if !appCfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.Info("Starting RegWatch server", "version", appCfg.Version)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	configCache := feed.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load source configurations: %w", err)
	}
	slog.Info("Source configurations loaded", "dir", appCfg.SourcesDir, "count", configCache.GetConfigCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := newSnapshotStore(ctx, appCfg, db, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	notificationRepo := database.NewNotificationRepository(db)

	fetcher := source.NewFetcher(
		&http.Client{Timeout: appCfg.FetchTimeout},
		appCfg.UserAgent,
		source.NewHostLimiter(appCfg.RequestsPerSecond),
		logger,
	)
	reader := source.NewReader(fetcher, source.NewChromeRenderer(appCfg.UserAgent), logger)

	agg := aggregator.New(reader, store, notificationRepo, dates.NewNormalizer(appCfg.Location()), logger)

	var contractSummarizer api.ContractSummarizer
	if appCfg.OpenAIKey != "" {
		contractSummarizer = summarizer.New(summarizer.NewOpenAIClient(appCfg.OpenAIKey, appCfg.OpenAIModel), logger)
		slog.Info("Contract extraction enabled", "model", appCfg.OpenAIModel)
	} else {
		slog.Info("Contract extraction disabled, OPENAI_API_KEY not set")
	}

	scheduler := tasks.NewScheduler(agg, configCache,
		time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	generator := feed.NewGenerator(appCfg.BaseUrl, appCfg.Port, appCfg.Version)
	handler := api.NewHandler(agg, configCache, notificationRepo, store, contractSummarizer, generator, appCfg.Version)
	handler.SetDefaultWindow(appCfg.RecentWindow)
	handler.SetBatchGuard(scheduler.BatchGuard())
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "auth", appCfg.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return nil
}

func newLogger(appCfg *cfg.Cfg) *slog.Logger {
	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if appCfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// newSnapshotStore builds the configured backend. The returned close func is
// always safe to call.
func newSnapshotStore(ctx context.Context, appCfg *cfg.Cfg, db *database.DB, logger *slog.Logger) (snapshot.Store, func(), error) {
	noop := func() {}

	switch appCfg.SnapshotBackend {
	case "local":
		slog.Info("Using local snapshot store", "dir", appCfg.SnapshotDir)
		return snapshot.NewBlobStore(nil, "", appCfg.SnapshotDir, logger), noop, nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create storage client: %w", err)
		}
		slog.Info("Using Cloud Storage snapshot store", "bucket", appCfg.GCSBucket)
		return snapshot.NewBlobStore(client, appCfg.GCSBucket, "", logger), func() {
			if err := client.Close(); err != nil {
				slog.Error("Failed to close storage client", "error", err)
			}
		}, nil
	case "redis":
		client, err := snapshot.NewRedisClient(ctx, appCfg.RedisAddr)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("Using Redis snapshot store", "addr", appCfg.RedisAddr)
		return snapshot.NewRedisStore(client, logger), func() {
			if err := client.Close(); err != nil {
				slog.Error("Failed to close redis client", "error", err)
			}
		}, nil
	default:
		slog.Info("Using database snapshot store")
		return snapshot.NewDBStore(database.NewSnapshotRepository(db)), noop, nil
	}
}
