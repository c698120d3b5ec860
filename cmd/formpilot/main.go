package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/formpilot/formpilot-cli/cmd"
	"github.com/formpilot/formpilot-cli/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	if err := cmd.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
