package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/servicehub/config"
	"github.com/Domenick1991/servicehub/internal/bootstrap"
	"github.com/Domenick1991/servicehub/internal/kafka"
	"github.com/Domenick1991/servicehub/internal/logger"
	"github.com/Domenick1991/servicehub/internal/notify"
	"github.com/Domenick1991/servicehub/internal/obs"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName+"-worker", cfg.Env)
	if err != nil {
		lg.Fatal("init tracer", zap.Error(err))
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	deps, err := bootstrap.Build(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("wire dependencies", zap.Error(err))
	}
	defer deps.Close()

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.NotificationsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, lg)
		defer consumer.Close()

		sender := notify.NewSender(lg.Named("notify"))
		go func() {
			if err := consumer.Consume(ctx, sender.Handle); err != nil {
				lg.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}

	sweep := func() {
		expired, err := deps.Settlements.ExpireStalePayments(ctx)
		if err != nil {
			lg.Error("expire stale payments", zap.Error(err))
		} else if len(expired) > 0 {
			lg.Info("expired stale payments", zap.Int("count", len(expired)))
		}

		repaired, err := deps.Settlements.Reconcile(ctx)
		if err != nil {
			lg.Error("reconcile settlements", zap.Error(err))
		} else if len(repaired) > 0 {
			lg.Info("reconciled bookings", zap.Int64s("booking_ids", repaired))
		}
	}

	// Bookings left unpaid behind a confirmed payment are repaired before the first tick.
	sweep()

	interval := time.Duration(cfg.Worker.SweepMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweep()
		case <-ctx.Done():
			lg.Info("worker shutting down")
			return
		}
	}
}
