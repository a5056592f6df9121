// Package tui is the dual-pane terminal front end.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/twinpane/internal/app"
	"github.com/joe/twinpane/internal/tui/shared"
)

// Run shows the screen until the user quits. The application must already be started.
func Run(ctx context.Context, a *app.App, bridge *shared.EventBridge, opts ...tea.ProgramOption) error {
	opts = append(opts, tea.WithContext(ctx))

	p := tea.NewProgram(NewModel(ctx, a, bridge), opts...)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run terminal UI: %w", err)
	}

	return nil
}
