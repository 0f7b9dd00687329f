package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/cache"
	"finanzas/internal/cli"
	"finanzas/internal/commands"
	apphttp "finanzas/internal/http"
	"finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp, "info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(log.ComponentApp, cfg.LogLevel)

	store := cli.InitStore(context.Background(), logger, cfg)

	// Event publishing is optional; the ledger works without a broker.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			logger.WithComponent(log.ComponentAMQP).Logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			publisher = client
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewLedgerService(store.Store, publisher, services.Options{
		CacheSize: cfg.SummaryCacheSize,
		CacheTTL:  cfg.SummaryCacheTTL,
		Logger:    logger.WithComponent(log.ComponentLedger).Logger,
	})

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.CommandsPerMinute})
	cmds := commands.NewHandler(svc, limiter, cfg.CommandTimeout)

	srv := apphttp.NewServer(":"+cfg.Port, svc, cmds, apphttp.Options{
		Timeout: cfg.CommandTimeout,
		Limiter: limiter,
		Logger:  logger.WithComponent(log.ComponentHTTP),
	})

	var caches *cache.Manager
	if c := svc.Cache(); c != nil {
		caches = cache.NewManager()
		caches.Register(c)
		caches.StartCleanup(context.Background(), time.Minute)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if caches != nil {
			caches.Stop()
		}
		if err := svc.Close(); err != nil {
			logger.Error("Ledger shutdown error", "error", err)
		}
	})

	logger.Info("Starting finanzas server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
