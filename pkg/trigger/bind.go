package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Sternrassler/card-catalog-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Loader is the part of the pagination controller a trigger drives.
type Loader interface {
	LoadNext(ctx context.Context) (pagination.Outcome, error)
	Busy() bool
}

// Options configures a Binding.
type Options struct {
	// OnLoad receives the result of every load the trigger started
	OnLoad func(pagination.Outcome, error)

	// RearmAfterLoad re-arms the trigger after every Loaded outcome, before
	// OnLoad runs. Leave it unset when the renderer re-arms after layout.
	RearmAfterLoad bool

	// Logger (default: global logger, component "trigger")
	Logger *zerolog.Logger
}

// Binding connects a trigger to a loader.
type Binding struct {
	ctx    context.Context
	trig   VisibilityTrigger
	loader Loader
	onLoad func(pagination.Outcome, error)
	rearm  bool
	logger zerolog.Logger
	closed atomic.Bool

	fired   atomic.Int64
	skipped atomic.Int64
}

// Bind arms trig so each firing loads one more page from loader. If the
// trigger cannot be armed the error is returned and nothing is bound.
func Bind(ctx context.Context, trig VisibilityTrigger, loader Loader, opts Options) (*Binding, error) {
	if trig == nil || loader == nil {
		return nil, errors.New("trigger and loader are required")
	}

	logger := log.With().Str("component", "trigger").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	b := &Binding{
		ctx:    ctx,
		trig:   trig,
		loader: loader,
		onLoad: opts.OnLoad,
		rearm:  opts.RearmAfterLoad,
		logger: logger,
	}

	if err := trig.Arm(b.fire); err != nil {
		return nil, fmt.Errorf("arm trigger: %w", err)
	}
	return b, nil
}

func (b *Binding) fire() {
	if b.closed.Load() || b.ctx.Err() != nil {
		return
	}
	b.fired.Add(1)

	if b.loader.Busy() {
		b.skipped.Add(1)
		b.logger.Debug().Msg("Trigger fired while loading, ignored")
		return
	}

	outcome, err := b.loader.LoadNext(b.ctx)
	b.logger.Debug().
		Str("outcome", outcome.String()).
		Msg("Trigger load finished")

	// Rearm first: OnLoad may re-measure the layout and report visibility
	if b.rearm && outcome == pagination.Loaded && !b.closed.Load() {
		b.trig.Rearm()
	}

	if b.onLoad != nil {
		b.onLoad(outcome, err)
	}
}

// Rearm re-evaluates the trigger, typically after a mode switch replaced the list.
func (b *Binding) Rearm() {
	if b.closed.Load() {
		return
	}
	b.trig.Rearm()
}

// Fired returns how many times the trigger fired and how many of those
// were ignored because a load was in flight.
func (b *Binding) Fired() (fired, skipped int64) {
	return b.fired.Load(), b.skipped.Load()
}

// Close disarms the trigger.
func (b *Binding) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.trig.Disarm()
}
