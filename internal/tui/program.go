package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/engine"
)

// Run starts the engine, runs the monitor until the user quits or ctx is
// cancelled, and stops the engine before returning.
func Run(ctx context.Context, cat *catalog.Catalog, eng *engine.Engine, opts ...tea.ProgramOption) error {
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pollers: %w", err)
	}
	defer eng.Stop()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewModel(cat, eng), opts...)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("monitor failed: %w", err)
	}
	return nil
}
