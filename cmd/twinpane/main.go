// Package main is the entry point for the twinpane application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/twinpane/internal/app"
	"github.com/joe/twinpane/internal/config"
	"github.com/joe/twinpane/internal/logging"
	"github.com/joe/twinpane/internal/tui"
	"github.com/joe/twinpane/internal/tui/shared"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse configuration
	cfg, err := config.ParseFlags()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat.String(),
		OutputPath: cfg.LogFile,
	})
	if err != nil {
		return err
	}

	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge := shared.NewEventBridge()
	defer bridge.Close()

	a, err := app.New(cfg, logger, app.WithEmitter(bridge))
	if err != nil {
		return err
	}

	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown failed", zap.Error(err))
		}
	}()

	a.Start(ctx)

	// Only use alt screen if stdout is a TTY
	var opts []tea.ProgramOption
	if term.IsTerminal(int(os.Stdout.Fd())) {
		opts = append(opts, tea.WithAltScreen())
	}

	return tui.Run(ctx, a, bridge, opts...)
}
