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

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/izzu/internal/app"
	"github.com/dropDatabas3/izzu/internal/config"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/webhook"
)

func main() {
	var (
		cfgPath = flag.String("config", os.Getenv("IZZU_CONFIG"), "ruta al config.yaml (opcional)")
		envFile = flag.String("env-file", ".env", "archivo .env (opcional)")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: %s not loaded: %v\n", *envFile, err)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Version:     app.Version,
	})
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.L().Fatal("service stopped", logger.Err(err))
	}
}

func run(cfg *config.Config) error {
	log := logger.L().With(logger.Component("service"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Deps{})
	if err != nil {
		return fmt.Errorf("wiring: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close failed", logger.Err(err))
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http listening", logger.String("addr", cfg.Server.Addr), logger.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("http shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Webhooks.Enabled {
		worker := asynq.NewServer(app.WebhookRedisOpt(cfg), asynq.Config{
			Concurrency: cfg.Webhooks.Concurrency,
			Queues:      map[string]int{"default": 1},
		})
		mux := asynq.NewServeMux()
		webhook.NewWorker(a.Repos.Webhooks).Register(mux)

		g.Go(func() error {
			log.Info("webhook worker starting", logger.Int("concurrency", cfg.Webhooks.Concurrency))
			if err := worker.Start(mux); err != nil {
				return fmt.Errorf("webhook worker: %w", err)
			}
			<-gctx.Done()
			worker.Shutdown()
			return nil
		})
	}

	return g.Wait()
}
