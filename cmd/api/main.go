package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/T1mof/team-capacity-service/internal/config"
	"github.com/T1mof/team-capacity-service/internal/handler"
	"github.com/T1mof/team-capacity-service/internal/jobs"
	"github.com/T1mof/team-capacity-service/internal/middleware"
	"github.com/T1mof/team-capacity-service/internal/repository"
	"github.com/T1mof/team-capacity-service/internal/service"
	"github.com/T1mof/team-capacity-service/internal/tracker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	config.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting Team Capacity Service...")
	slog.Info("Config loaded",
		"port", cfg.Port,
		"hours_per_day", cfg.HoursPerDay,
		"snapshot_cron", cfg.SnapshotCron,
		"jira_enabled", cfg.Jira.Enabled(),
	)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := cfg.ConnectDB()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}()

	if err := cfg.RunMigrations(db.DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := repository.NewRepository(db)

	// nil интерфейс, а не nil *tracker.Client: сервис подставит пустой источник.
	var issues service.IssueSource
	if cfg.Jira.Enabled() {
		issues = tracker.NewClient(tracker.Config{
			BaseURL:          cfg.Jira.BaseURL,
			Email:            cfg.Jira.Email,
			APIToken:         cfg.Jira.APIToken,
			StoryPointsField: cfg.Jira.StoryPointsField,
			RPS:              cfg.Jira.RPS,
			Timeout:          cfg.Jira.Timeout,
		})
	} else {
		slog.Warn("JIRA_BASE_URL is not set, ticket metrics will be empty")
	}

	svc := service.NewInsightsService(repo, issues, service.Options{
		HoursPerDay:      cfg.HoursPerDay,
		FetchConcurrency: cfg.FetchConcurrency,
		AggregateWorkers: cfg.AggregateWorkers,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := middleware.NewRateLimiter(ctx, middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	})

	scheduler, err := jobs.NewCron(cfg.SnapshotCron, svc, repo)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
		slog.Info("Snapshot scheduler stopped")
	}()

	h := handler.NewHandler(svc, handler.Options{
		AdminToken:     cfg.AdminToken,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      limiter.Middleware(),
	})

	srv := startServer(cfg.Port, h.SetupRouter(), cfg.RequestTimeout)

	waitForShutdown(srv)

	return nil
}

// startServer запускает HTTP сервер.
func startServer(port string, handler http.Handler, requestTimeout time.Duration) *http.Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Server is starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	return srv
}

// waitForShutdown ожидает сигнал остановки и gracefully завершает сервер.
func waitForShutdown(srv *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited gracefully")
}
