package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/card-catalog-client/pkg/catalog"
	"github.com/Sternrassler/card-catalog-client/pkg/pagination"
	"github.com/Sternrassler/card-catalog-client/pkg/trigger"
)

// maxConsecutiveFailures stops a dump that keeps failing after client retries.
const maxConsecutiveFailures = 3

func newDumpCmd(a *app) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write every card as one JSON object per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.setupLogging(cmd.ErrOrStderr())

			filters, err := catalog.ParseFilters(filter)
			if err != nil {
				return err
			}

			ctrl, cleanup, err := a.newController()
			if err != nil {
				return err
			}
			defer cleanup()

			seq, err := a.cfg.Sequence()
			if err != nil {
				return err
			}

			return a.runWithMetrics(cmd.Context(), func(ctx context.Context) error {
				d := &dumper{ctrl: ctrl, enc: json.NewEncoder(cmd.OutOrStdout())}
				return d.run(ctx, seq, a.cfg.PageSize, filters)
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", `search instead of listing everything, e.g. "name:Luffy color:Red"`)
	return cmd
}

// dumper drives a controller to exhaustion and streams new cards as they arrive.
type dumper struct {
	ctrl    *pagination.Controller
	enc     *json.Encoder
	written int
}

func (d *dumper) run(ctx context.Context, seq catalog.Sequence, pageSize int, filters catalog.Filters) error {
	var (
		outcome pagination.Outcome
		err     error
	)
	if filters.IsEmpty() {
		outcome, err = d.ctrl.Initialize(ctx, seq, pageSize)
	} else {
		outcome, err = d.ctrl.SubmitSearch(ctx, filters)
	}
	if err != nil {
		return err
	}
	if err := d.flush(); err != nil {
		return err
	}

	manual := trigger.NewManual()
	var last struct {
		outcome pagination.Outcome
		err     error
		fired   bool
	}
	binding, err := trigger.Bind(ctx, manual, d.ctrl, trigger.Options{
		OnLoad: func(o pagination.Outcome, err error) {
			last.outcome, last.err, last.fired = o, err, true
		},
	})
	if err != nil {
		return err
	}
	defer binding.Close()

	failures := 0
	for outcome != pagination.Exhausted && outcome != pagination.NoResults {
		if err := ctx.Err(); err != nil {
			return err
		}

		last.fired = false
		manual.Fire()
		if !last.fired {
			return errors.New("load was not started")
		}
		outcome, err = last.outcome, last.err

		if ferr := d.flush(); ferr != nil {
			return ferr
		}

		switch outcome {
		case pagination.Loaded:
			failures = 0
		case pagination.Failed:
			failures++
			if failures >= maxConsecutiveFailures {
				return err
			}
		case pagination.Exhausted, pagination.NoResults:
		default:
			return fmt.Errorf("unexpected load outcome %s", outcome)
		}
	}
	return nil
}

func (d *dumper) flush() error {
	items := d.ctrl.Items()
	for _, card := range items[d.written:] {
		if err := d.enc.Encode(card); err != nil {
			return fmt.Errorf("write card: %w", err)
		}
	}
	d.written = len(items)
	return nil
}
