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

	"github.com/redis/go-redis/v9"

	"github.com/okastrup/tagsync/app/api"
	"github.com/okastrup/tagsync/app/cache"
	"github.com/okastrup/tagsync/app/cfg"
	"github.com/okastrup/tagsync/app/config"
	"github.com/okastrup/tagsync/app/database"
	"github.com/okastrup/tagsync/app/feed"
	"github.com/okastrup/tagsync/app/images"
	"github.com/okastrup/tagsync/app/notify"
	"github.com/okastrup/tagsync/app/syncer"
	"github.com/okastrup/tagsync/app/tasks"
	"github.com/okastrup/tagsync/app/upstream"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting TagSync server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	presets, err := config.NewLoader(appCfg.PresetsDir).LoadAll()
	if err != nil {
		slog.Error("Failed to load image presets", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded image presets", "categories", len(presets))

	tagRepo := database.NewTagRepository(db)
	itemRepo := database.NewItemRepository(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     appCfg.RedisAddr,
		Password: appCfg.RedisPassword,
		DB:       appCfg.RedisDB,
	})
	defer redisClient.Close()

	contentCache := cache.New(cache.NewRedisStore(redisClient),
		time.Duration(appCfg.CacheTTL)*time.Second,
		time.Duration(appCfg.CacheFallbackTTL)*time.Second,
		appCfg.CacheDedup)
	defer contentCache.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}

	upstreamClient := upstream.NewClient(appCfg.GraphAPIURL, appCfg.BodyAPIURL, appCfg.UserAgent, httpClient)
	graphSource := feed.NewGraphSource(upstreamClient, appCfg.RelURLHost)
	rssSource := feed.NewRSSSource(appCfg.UserAgent, httpClient)
	enricher := feed.NewEnricher(contentCache, graphSource, rssSource)

	scratch := images.NewScratch(appCfg.ScratchDir,
		time.Duration(appCfg.ScratchMaxAge)*time.Second, appCfg.UserAgent, httpClient)
	if err := scratch.EnsureDir(); err != nil {
		slog.Error("Failed to prepare scratch directory", "error", err)
		os.Exit(1)
	}

	var uploader *images.Uploader
	if appCfg.TransformerURL != "" && appCfg.BlobEndpoint != "" {
		transformer := images.NewTransformer(appCfg.TransformerURL, appCfg.TransformerKey, httpClient)
		blob := images.NewHTTPBlobStore(appCfg.BlobEndpoint, appCfg.BlobBucket, appCfg.BlobPublicURL, httpClient)
		uploader = images.NewUploader(transformer, blob, scratch, presets)
	} else {
		slog.Warn("Image pipeline disabled (TRANSFORMER_URL or BLOB_ENDPOINT not set)")
	}

	notifier := notify.NewRedisNotifier(redisClient, appCfg.NotifyChannel)

	// A nil *Uploader must become a nil interface, not a typed nil.
	var imageUploader syncer.ImageUploader
	if uploader != nil {
		imageUploader = uploader
	}
	tagSyncer := syncer.NewSyncer(tagRepo, itemRepo, upstreamClient, enricher, imageUploader,
		scratch, notifier, time.Duration(appCfg.CleanupDelta)*time.Second, appCfg.SyncConcurrency)

	scheduler := tasks.NewScheduler(tagRepo, itemRepo, tagSyncer, scratch)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(tagRepo, itemRepo, enricher, tagSyncer, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
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

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
