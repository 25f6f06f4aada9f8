// api/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/crypto/bcrypt"

	"portfolio/api/config"
	"portfolio/api/database"
	"portfolio/api/handlers"
	"portfolio/api/logging"
	"portfolio/api/metrics"
	"portfolio/api/store"
	"portfolio/api/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.SetLevelWithStr(cfg.LogLevel)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtManager, err := utils.NewJWTManager(cfg.JWTSecret)
	if err != nil {
		slog.Error("JWT_SECRET_KEY is required", "error", err)
		os.Exit(1)
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// --- User database (admin and regular accounts) ---
	dbClient, err := database.NewSQLDB(cfg.Database)
	if err != nil {
		slog.Error("failed to initialize user database", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := dbClient.EnsureUserSchema(ctx); err != nil {
		cancel()
		slog.Error("failed to prepare user schema", "error", err)
		os.Exit(1)
	}
	userStore := store.NewUserStore(dbClient.DB, dbClient.Driver)
	bootstrapAdmin(ctx, userStore, cfg.Admin)
	cancel()

	// --- Page-view archive (optional) ---
	var archiver *store.Archiver
	if cfg.ClickHouse.Enabled() {
		chClient, err := database.NewClickHouseDB(cfg.ClickHouse)
		if err != nil {
			slog.Error("failed to initialize ClickHouse archive", "error", err)
			os.Exit(1)
		}
		defer chClient.Close()

		archiver = store.NewArchiver(store.NewArchiveStore(chClient), store.ArchiverConfig{
			BatchSize:     cfg.Analytics.ArchiveBatchSize,
			FlushInterval: cfg.Analytics.ArchiveFlushPeriod,
			Metrics:       m,
		})
		archiver.Start()
	} else {
		slog.Info("CLICKHOUSE_HOST not set, page-view archive disabled")
	}

	// --- Analytics ---
	analyticsStore := store.NewAnalyticsStore(store.AnalyticsStoreOptions{
		HistorySize: cfg.Analytics.HistorySize,
	})

	var pageViewArchiver handlers.PageViewArchiver
	if archiver != nil {
		pageViewArchiver = archiver
	}

	r := handlers.NewRouter(handlers.RouterConfig{
		Analytics:  handlers.NewAnalyticsHandlers(analyticsStore, pageViewArchiver, m),
		Auth:       handlers.NewAuthHandlers(userStore, jwtManager),
		JWTManager: jwtManager,
		ServiceKey: cfg.ServiceKey,
		FEOrigin:   cfg.FEOrigin,
		Metrics:    m,
		Registry:   registry,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("portfolio API starting", "addr", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	if archiver != nil {
		archiver.Stop()
	}

	slog.Info("server exiting")
}

// bootstrapAdmin creates the configured admin account when none exists.
func bootstrapAdmin(ctx context.Context, userStore *store.UserStore, admin config.AdminConfig) {
	if admin.Email == "" || admin.Password == "" {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash admin password", "error", err)
		return
	}

	created, err := userStore.EnsureAdmin(ctx, admin.Email, hashed)
	if err != nil {
		slog.Error("failed to bootstrap admin account", "error", err)
		return
	}
	if created {
		slog.Info("admin account created", "email", admin.Email)
	}
}
