// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/petrpacas/spiritevents-sub000/internal/cache"
	"github.com/petrpacas/spiritevents-sub000/internal/config"
	"github.com/petrpacas/spiritevents-sub000/internal/geoip"
	"github.com/petrpacas/spiritevents-sub000/internal/handler"
	"github.com/petrpacas/spiritevents-sub000/internal/imaging"
	"github.com/petrpacas/spiritevents-sub000/internal/logging"
	"github.com/petrpacas/spiritevents-sub000/internal/mail"
	"github.com/petrpacas/spiritevents-sub000/internal/notify"
	"github.com/petrpacas/spiritevents-sub000/internal/render"
	"github.com/petrpacas/spiritevents-sub000/internal/scheduler"
	"github.com/petrpacas/spiritevents-sub000/internal/seo"
	"github.com/petrpacas/spiritevents-sub000/internal/service"
	"github.com/petrpacas/spiritevents-sub000/internal/session"
	"github.com/petrpacas/spiritevents-sub000/internal/storage"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
	"github.com/petrpacas/spiritevents-sub000/internal/version"
	"github.com/petrpacas/spiritevents-sub000/web"
)

const (
	siteName        = "Spirit Events"
	siteDescription = "Upcoming spiritual gatherings, retreats and ceremonies."
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Spirit Events - event directory\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SPIRIT_SESSION_SECRET   Session and CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SPIRIT_DB_PATH          SQLite database path (default: ./data/spiritevents.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SPIRIT_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SPIRIT_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SPIRIT_ADMIN_EMAIL      Operator account created on first start\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SPIRIT_STORAGE_DRIVER   Image storage: local|s3 (default: local)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SPIRIT_REDIS_URL        Redis URL for the shared facet cache (optional)\n")
	}
	flag.Parse()

	if *showVersion {
		_, _ = fmt.Printf("spiritevents %s\n", version.Current())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(textHandler))

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Warnings and errors also go to the audit log table.
	logger := slog.New(logging.NewAuditHandler(textHandler, db))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AdminEmail != "" {
		if err := store.SeedAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seeding operator: %w", err)
		}
	}

	sessionManager := session.New(db, cfg.IsDevelopment())

	images, uploadsDir, err := newStorage(cfg)
	if err != nil {
		return err
	}

	facetCache, backend := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheTTLDuration(),
		MaxSize:    cfg.CacheMaxSize,
	}, logger)
	defer func() { _ = facetCache.Close() }()
	slog.Info("cache initialized", "backend", backend)

	notifier, stopNotifier, err := notify.New(ctx, notify.Config{
		WebhookURL:    cfg.NotifyWebhookURL,
		WebhookSecret: cfg.NotifyWebhookSecret,
		Workers:       cfg.NotifyWorkers,
		QueueSize:     cfg.NotifyQueueSize,
	}, logger)
	if err != nil {
		return err
	}
	defer stopNotifier()

	mailer := mail.New(mail.Config{
		Provider:    cfg.MailProvider,
		FromAddress: cfg.MailFrom,
		FromName:    siteName,
		SES: mail.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKey,
			SecretAccessKey: cfg.SESSecretKey,
			Endpoint:        cfg.SESEndpoint,
		},
	}, logger)

	events := service.NewEventService(db, service.EventServiceOptions{
		Storage:  images,
		Images:   imaging.NewProcessor(),
		Notifier: notifier,
		Cache:    facetCache,
		Logger:   logger,
		BaseURL:  cfg.BaseURL,
		CacheTTL: cfg.CacheTTLDuration(),
	})
	categories := service.NewCategoryService(db, facetCache, logger)
	newsletter := service.NewNewsletterService(db, mailer, notifier, siteName, logger)
	feedback := service.NewFeedbackService(db, mailer, notifier, cfg.MailTo, logger)

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("geoip disabled", "error", err)
	}
	defer func() { _ = geo.Close() }()

	sched := scheduler.New(logger, 5*time.Minute)
	sweeper := &scheduler.UploadSweeper{Storage: images, MaxAge: cfg.TmpUploadMaxAge, Logger: logger}
	if err := sched.AddJob(scheduler.JobSweepUploads, cfg.UploadSweepSchedule, sweeper.Job()); err != nil {
		return fmt.Errorf("scheduling upload sweep: %w", err)
	}
	pruner := &scheduler.AuditPruner{Queries: store.New(db), Retention: cfg.AuditRetention, Logger: logger}
	if err := sched.AddJob(scheduler.JobPruneAudit, "@daily", pruner.Job()); err != nil {
		return fmt.Errorf("scheduling audit pruning: %w", err)
	}
	if geo.Enabled() {
		if err := sched.AddJob(scheduler.JobReloadGeoIP, "@daily", scheduler.GeoIPReloader(geo)); err != nil {
			return fmt.Errorf("scheduling geoip reload: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	renderer, err := render.New(render.Config{
		TemplatesFS:    web.Templates(),
		SessionManager: sessionManager,
		ImageURL:       images.URL,
		SiteName:       siteName,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	site := seo.SiteConfig{
		SiteName:    siteName,
		SiteURL:     cfg.BaseURL,
		Description: siteDescription,
	}
	router := handler.NewRouter(handler.RouterConfig{
		DB:             db,
		Renderer:       renderer,
		Sessions:       sessionManager,
		Events:         events,
		Categories:     categories,
		Newsletter:     newsletter,
		Feedback:       feedback,
		Storage:        images,
		UploadsDir:     uploadsDir,
		StaticFS:       web.Static(),
		Geo:            geo,
		Site:           site,
		BlockCrawlers:  cfg.IsDevelopment(),
		CSRFKey:        []byte(cfg.SessionSecret),
		IsDev:          cfg.IsDevelopment(),
		FormRateLimit:  cfg.FormRateLimit,
		FormRateBurst:  cfg.FormRateBurst,
		Version:        version.Current(),
		RequestLogging: cfg.IsDevelopment(),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // image uploads
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version.Current().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// newStorage returns the configured image store and, for local storage, the
// directory served under /uploads.
func newStorage(cfg *config.Config) (storage.Storage, string, error) {
	if cfg.StorageDriver == config.StorageS3 {
		s, err := storage.NewS3(storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			PublicURL:    cfg.S3PublicURL,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, "", fmt.Errorf("initializing s3 storage: %w", err)
		}
		slog.Info("image storage", "driver", "s3", "bucket", cfg.S3Bucket)
		return s, "", nil
	}

	local, err := storage.NewLocal(cfg.UploadsDir, handler.RouteUploads)
	if err != nil {
		return nil, "", fmt.Errorf("initializing local storage: %w", err)
	}
	slog.Info("image storage", "driver", "local", "dir", local.Root())
	return local, local.Root(), nil
}
