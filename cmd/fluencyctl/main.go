package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

var version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := newApp(os.Stdin, os.Stdout)
	if err := app.Run(ctx, os.Args); err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("fluencyctl failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
