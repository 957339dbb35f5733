package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/servicehub/config"
	"github.com/Domenick1991/servicehub/internal/bootstrap"
	"github.com/Domenick1991/servicehub/internal/logger"
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

	shutdownTracer, err := obs.InitTracer(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName, cfg.Env)
	if err != nil {
		lg.Fatal("init tracer", zap.Error(err))
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	deps, err := bootstrap.Build(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("wire dependencies", zap.Error(err))
	}
	defer deps.Close()

	if err := bootstrap.Run(ctx, cfg, lg, deps.Services()); err != nil {
		lg.Error("server error", zap.Error(err))
	}
}
