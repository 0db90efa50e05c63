package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loops-hq/loops-backend/config"
	"github.com/loops-hq/loops-backend/internal/api/http/middleware"
	"github.com/loops-hq/loops-backend/internal/bootstrap"
	"github.com/loops-hq/loops-backend/internal/logging"
	cronjob "github.com/loops-hq/loops-backend/internal/loops/cron"
)

const serviceName = "loops-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.App.Environment, cfg.App.LogLevel)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	app, err := bootstrap.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	authMW, err := app.AuthMiddleware(ctx)
	if err != nil {
		return err
	}

	scheduler := cronjob.NewScheduler(app.Loops, cfg.Loops.StaleCron, cfg.Loops.StaleAfter)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer func() { <-scheduler.Stop().Done() }()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DB:             app.Pool,
		Redis:          app.Redis,
		Projects:       app.Projects,
		Loops:          app.Loops,
		Events:         app.Events,
		Auth:           authMW,
		Limiter:        middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr, "env", cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
