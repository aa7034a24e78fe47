package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Aaron-MJohn/depthai/internal/app"
	"github.com/Aaron-MJohn/depthai/internal/config"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("invalid arguments", "error", err)
		os.Exit(2)
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting depthai demo",
		"source", cfg.Source,
		"previews", cfg.Show,
		"nn", cfg.UseNN(),
		"depth", cfg.UseDepth(),
		"video", cfg.VideoPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	demo := app.New(cfg, app.Callbacks{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("received shutdown signal", "signal", sig)
		demo.RequestStop()
		cancel()
	}()

	if err := demo.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("demo failed", "error", err)
		os.Exit(1)
	}

	slog.Info("depthai demo stopped")
}
