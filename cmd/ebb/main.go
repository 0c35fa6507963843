// Package main is the entry point for the ebb series cache tool.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/ebb/cmd/ebb/commands"
	"go.trai.ch/ebb/internal/app"
	"go.trai.ch/ebb/internal/core/domain"
	_ "go.trai.ch/ebb/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 2
	}

	// 2. Interface - CLI
	cli := commands.New(components.App)

	// 3. Execution. Configuration problems are fatal (2); entity failures
	// and unrepaired divergences are partial failures (1).
	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, domain.ErrConfig) {
			components.Logger.Error(err)
			return 2
		}
		if errors.Is(err, domain.ErrBatchIncomplete) || errors.Is(err, domain.ErrDivergence) {
			return 1
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}
