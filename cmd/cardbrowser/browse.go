package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/card-catalog-client/internal/tui"
)

func newBrowseCmd(a *app) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Scroll through the catalog interactively",
		Long: `Scroll through the catalog interactively.

More cards load as the end of the list comes into view. Press / to search
(for example: luffy color:red cost:5), enter to open a card, left/right to
step through cards, esc to close and m to load more explicitly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The terminal belongs to the browser; logs go to a file or nowhere
			var out io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				out = f
			}
			a.setupLogging(out)

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
				return tui.Run(ctx, ctrl, tui.Options{
					Sequence: seq,
					PageSize: a.cfg.PageSize,
				})
			})
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")
	return cmd
}
