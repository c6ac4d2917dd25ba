package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Sternrassler/card-catalog-client/pkg/pagination"
	"github.com/Sternrassler/card-catalog-client/pkg/trigger"
)

// Run starts the browser and blocks until the user quits or ctx is done.
func Run(ctx context.Context, ctrl *pagination.Controller, opts Options) error {
	if ctrl == nil {
		return errNoController
	}

	var p *tea.Program
	onLoad := func(outcome pagination.Outcome, err error) {
		p.Send(LoadedMsg{Outcome: outcome, Err: err})
	}

	sentinel := trigger.NewSentinel()
	sb, err := trigger.Bind(ctx, sentinel, ctrl, trigger.Options{OnLoad: onLoad, Logger: opts.Logger})
	if err != nil {
		return fmt.Errorf("bind sentinel: %w", err)
	}
	defer sb.Close()

	manual := trigger.NewManual()
	mb, err := trigger.Bind(ctx, manual, ctrl, trigger.Options{OnLoad: onLoad, Logger: opts.Logger})
	if err != nil {
		return fmt.Errorf("bind load-more: %w", err)
	}
	defer mb.Close()

	m := New(ctx, ctrl, sentinel, manual, opts)
	m.SetRearm(sb.Rearm)

	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
