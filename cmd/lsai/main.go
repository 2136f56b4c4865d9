package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"lsai/internal/cli"
)

func main() {
	// Ctrl+C / SIGTERM cancel the running command; serve shuts down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
