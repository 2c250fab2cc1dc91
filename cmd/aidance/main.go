package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"aidance/internal/aggregate"
	"aidance/internal/amqp"
	"aidance/internal/backend"
	"aidance/internal/bridge"
	"aidance/internal/cache"
	"aidance/internal/cli"
	apphttp "aidance/internal/http"
	applog "aidance/internal/log"
	"aidance/internal/services"
	"aidance/internal/session"
	"aidance/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.GracefulShutdown(context.Background(), logger)
	defer stop()

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache))

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend), caches).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", applog.FieldError, err)
			}
		}()
	}

	store := storage.NewStore(res.KV, logger.WithComponent(applog.ComponentStorage))
	sess := session.New(store, session.WithLogger(logger.WithComponent(applog.ComponentSession)))
	sess.Load(ctx)

	if cfg.BridgeAPIKey == "" {
		logger.Warn("BRIDGE_API_KEY is empty, every chat turn will get the API error reply")
	}
	classifier := bridge.NewClient(cfg.BridgeConfig(), logger.WithComponent(applog.ComponentBridge))

	opts := []services.Option{
		services.WithLogger(logger.WithComponent(applog.ComponentChat)),
		services.WithBudgetOptions(aggregate.Options{NearBudget: cfg.BudgetNearWarnings}),
	}
	if cfg.AMQPEnabled() {
		publisher, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(applog.ComponentAMQP))
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without record events", applog.FieldError, err)
		} else {
			defer publisher.Close()
			opts = append(opts, services.WithPublisher(publisher))
			logger.Info("Publishing record events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	svc := services.NewChatService(store, sess, classifier, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, svc,
		apphttp.WithLogger(logger.WithComponent(applog.ComponentHTTP)),
		apphttp.WithReadiness(res.Ready))
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = cfg.BridgeTimeout + 15*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting aidance server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return caches.Run(gctx, time.Minute)
	})

	g.Go(func() error {
		return srv.RunEvents(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
