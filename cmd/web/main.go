package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/filipesmpacheco/projdataviz/internal/app"
	"github.com/filipesmpacheco/projdataviz/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	application.Start(runCtx, cancel)

	<-runCtx.Done()

	if err := application.Stop(context.Background()); err != nil {
		application.Logger.Error("shutdown failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
