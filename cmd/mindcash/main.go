package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mindcash/internal/app"
	"mindcash/internal/auth"
	"mindcash/internal/backend"
	"mindcash/internal/config"
	"mindcash/internal/core"
	apphttp "mindcash/internal/http"
	mclog "mindcash/internal/log"
	"mindcash/internal/trial"
)

func main() {
	// .env is a local-development convenience; production sets real env vars.
	_ = godotenv.Load()

	logger := mclog.New(mclog.DefaultConfig())
	mclog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", mclog.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("invalid backend configuration", mclog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	factory := backend.NewFactory(logger.WithComponent(mclog.ComponentBackend))
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("backend startup failed", mclog.FieldError, err, "backend", backendCfg.Type.String())
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("backend cleanup failed", mclog.FieldError, err)
			}
		}
	}()

	// A typed nil *amqp.Client must not end up inside the interface.
	var pub app.Publisher
	if result.Publisher != nil {
		pub = result.Publisher
	}

	authLogger := logger.WithComponent(mclog.ComponentAuth)
	authSvc := auth.NewService(result.Store)
	authSvc.OnStateChange(func(user core.User, signedIn bool) {
		if signedIn {
			authLogger.Info("user signed in", mclog.FieldUserID, user.ID, mclog.FieldPlan, string(user.Plan))
			return
		}
		authLogger.Info("user signed out", mclog.FieldUserID, user.ID)
	})

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		Store:     result.Store,
		Auth:      authSvc,
		Trials:    trial.NewTracker(result.Store.KV()),
		Publisher: pub,
		Logger:    logger.WithComponent(mclog.ComponentHTTP),
		CacheTTL:  cfg.CacheTTL,
	})
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received", mclog.FieldOperation, mclog.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", mclog.FieldError, err)
		}
	}()

	logger.Info("starting mindcash server", "port", cfg.Port, "backend", backendCfg.Type.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", mclog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
