package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/card-catalog-client/pkg/client"
	"github.com/Sternrassler/card-catalog-client/pkg/config"
	"github.com/Sternrassler/card-catalog-client/pkg/logging"
	"github.com/Sternrassler/card-catalog-client/pkg/metrics"
	"github.com/Sternrassler/card-catalog-client/pkg/pagination"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfg    config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "cardbrowser",
		Short:         "Browse a paginated card catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newBrowseCmd(a),
		newDumpCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	fs := cmd.Flags()
	path, err := fs.GetString(config.FlagConfig)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(fs); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	return nil
}

// setupLogging routes logs to w at the configured level.
func (a *app) setupLogging(w io.Writer) {
	lc := a.cfg.Logging()
	lc.Output = w
	logging.Setup(lc)
	a.logger = logging.NewLogger("cardbrowser")
}

// newController wires Redis (optional), the HTTP gateway and the controller.
// The returned cleanup closes the gateway and Redis.
func (a *app) newController() (*pagination.Controller, func(), error) {
	rdb, err := a.cfg.NewRedis()
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}

	gw, err := client.New(a.cfg.Client(rdb))
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, nil, fmt.Errorf("create client: %w", err)
	}

	cleanup := func() {
		gw.Close()
		if rdb != nil {
			rdb.Close()
		}
	}

	ctrlLogger := logging.NewLogger("pagination")
	ctrl, err := pagination.New(gw, pagination.Options{
		PageSize: a.cfg.PageSize,
		Logger:   &ctrlLogger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	a.logger.Info().
		Str("base_url", a.cfg.BaseURL).
		Bool("shared_rate_limit", rdb != nil).
		Int("page_size", a.cfg.PageSize).
		Msg("Catalog client ready")
	return ctrl, cleanup, nil
}

// runWithMetrics runs fn, and the metrics server alongside it when an
// address is configured. The server stops when fn returns.
func (a *app) runWithMetrics(ctx context.Context, fn func(context.Context) error) error {
	if a.cfg.MetricsAddr == "" {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return metrics.Serve(gctx, a.cfg.MetricsAddr)
	})
	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})
	return g.Wait()
}
