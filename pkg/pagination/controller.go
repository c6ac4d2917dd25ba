package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/card-catalog-client/pkg/catalog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPageSize is the number of cards requested per page.
const DefaultPageSize = 36

// Options configures a Controller.
type Options struct {
	// PageSize used until Initialize sets another (default: DefaultPageSize)
	PageSize int

	// Logger for load events (default: global logger, component "pagination")
	Logger *zerolog.Logger

	// OnError receives every gateway failure after local recovery
	OnError func(error)
}

// Controller owns the traversal state and the accumulated card list.
// All methods are safe for concurrent use; at most one fetch per
// generation is in flight at any time.
type Controller struct {
	gateway catalog.Gateway
	logger  zerolog.Logger
	onError func(error)

	mu         sync.Mutex
	seq        catalog.Sequence
	pageSize   int
	mode       Mode
	phase      Phase
	generation uint64
	partition  int
	page       int
	totalPages int
	filters    catalog.Filters
	items      []catalog.Card
	noResults  bool
}

// ticket captures what a fetch was issued for.
type ticket struct {
	generation uint64
	partition  catalog.Partition
	page       int
	pageSize   int
	filters    catalog.Filters
}

// New creates a controller in sequential mode with an empty sequence.
// Call Initialize to start loading.
func New(gateway catalog.Gateway, opts Options) (*Controller, error) {
	if gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if opts.PageSize < 0 {
		return nil, fmt.Errorf("page size must be positive (got %d)", opts.PageSize)
	}
	if opts.PageSize == 0 {
		opts.PageSize = DefaultPageSize
	}

	logger := log.With().Str("component", "pagination").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Controller{
		gateway:    gateway,
		logger:     logger,
		onError:    opts.OnError,
		pageSize:   opts.PageSize,
		page:       1,
		totalPages: 1,
	}, nil
}

// Initialize installs the partition sequence, resets to sequential mode at
// the first partition and loads the first page.
func (c *Controller) Initialize(ctx context.Context, seq catalog.Sequence, pageSize int) (Outcome, error) {
	if err := seq.Validate(); err != nil {
		return Skipped, fmt.Errorf("initialize: %w", err)
	}
	if pageSize <= 0 {
		return Skipped, fmt.Errorf("initialize: page size must be positive (got %d)", pageSize)
	}

	c.mu.Lock()
	c.seq = seq.Clone()
	c.pageSize = pageSize
	c.resetLocked(ModeSequential, catalog.Filters{})
	c.logger.Info().
		Int("partitions", len(c.seq)).
		Int("page_size", pageSize).
		Uint64("generation", c.generation).
		Msg("Controller initialized")
	c.mu.Unlock()

	return c.LoadSequential(ctx)
}

// SubmitSearch switches modes. Empty filters return to sequential mode from
// the first partition; anything else enters search mode with these filters.
// The accumulated list is cleared either way and the first page is loaded.
// A fetch still in flight from before the switch is discarded on completion.
func (c *Controller) SubmitSearch(ctx context.Context, filters catalog.Filters) (Outcome, error) {
	if err := filters.Validate(); err != nil {
		return Skipped, fmt.Errorf("submit search: %w", err)
	}
	filters = filters.Normalized()

	c.mu.Lock()
	if filters.IsEmpty() {
		c.resetLocked(ModeSequential, catalog.Filters{})
	} else {
		c.resetLocked(ModeSearch, filters)
	}
	c.logger.Info().
		Str("mode", c.mode.String()).
		Str("filters", filters.String()).
		Uint64("generation", c.generation).
		Msg("Mode switched")
	c.mu.Unlock()

	return c.LoadNext(ctx)
}

// LoadNext loads one more page in the current mode.
func (c *Controller) LoadNext(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	mode := c.mode
	c.mu.Unlock()

	if mode == ModeSearch {
		return c.LoadFiltered(ctx)
	}
	return c.LoadSequential(ctx)
}

// LoadSequential loads the next non-empty page of the partition sequence.
// Exhausted partitions are skipped without appending anything.
func (c *Controller) LoadSequential(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	t, outcome, ok := c.beginLocked(ModeSequential)
	c.mu.Unlock()
	if !ok {
		return outcome, nil
	}

	for {
		res, err := c.gateway.FetchByPartition(ctx, t.partition, t.page, t.pageSize)

		c.mu.Lock()
		if t.generation != c.generation {
			c.mu.Unlock()
			return c.discard(t), nil
		}
		if err != nil {
			c.phase = PhaseIdle
			c.mu.Unlock()
			return Failed, c.fail(ModeSequential, t, err)
		}

		c.totalPages = res.TotalPages

		if res.Empty() || t.page > res.TotalPages {
			c.logger.Debug().
				Str("partition", string(t.partition)).
				Int("page", t.page).
				Int("total_pages", res.TotalPages).
				Msg("Partition exhausted")
			if !c.advancePartitionLocked() {
				c.mu.Unlock()
				return Exhausted, nil
			}
			// Still Loading: move straight on to the next partition
			t = c.ticketLocked()
			c.mu.Unlock()
			continue
		}

		c.items = append(c.items, res.Items...)
		c.page++
		c.phase = PhaseIdle
		if c.page > c.totalPages {
			c.advancePartitionLocked()
		}
		AccumulatedItems.Set(float64(len(c.items)))
		PagesLoaded.WithLabelValues(ModeSequential.String()).Inc()

		c.logger.Debug().
			Str("partition", string(t.partition)).
			Int("page", t.page).
			Int("items", len(res.Items)).
			Int("total_pages", res.TotalPages).
			Int("accumulated", len(c.items)).
			Msg("Page loaded")
		c.mu.Unlock()
		return Loaded, nil
	}
}

// LoadFiltered loads the next page of search results.
func (c *Controller) LoadFiltered(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	t, outcome, ok := c.beginLocked(ModeSearch)
	c.mu.Unlock()
	if !ok {
		return outcome, nil
	}

	res, err := c.gateway.FetchByFilter(ctx, t.filters, t.page, t.pageSize)

	c.mu.Lock()
	if t.generation != c.generation {
		c.mu.Unlock()
		return c.discard(t), nil
	}
	if err != nil {
		c.phase = PhaseIdle
		c.mu.Unlock()
		return Failed, c.fail(ModeSearch, t, err)
	}
	defer c.mu.Unlock()

	c.totalPages = res.TotalPages

	if res.Empty() {
		c.phase = PhaseExhausted
		if t.page == 1 {
			c.items = []catalog.Card{}
			c.noResults = true
			AccumulatedItems.Set(0)
			c.logger.Info().
				Str("filters", t.filters.String()).
				Msg("Search returned no results")
			return NoResults, nil
		}
		return Exhausted, nil
	}

	c.items = append(c.items, res.Items...)
	c.page++
	if c.page > c.totalPages {
		c.phase = PhaseExhausted
	} else {
		c.phase = PhaseIdle
	}
	AccumulatedItems.Set(float64(len(c.items)))
	PagesLoaded.WithLabelValues(ModeSearch.String()).Inc()

	c.logger.Debug().
		Str("filters", t.filters.String()).
		Int("page", t.page).
		Int("items", len(res.Items)).
		Int("total_pages", res.TotalPages).
		Int("accumulated", len(c.items)).
		Msg("Search page loaded")
	return Loaded, nil
}

// beginLocked checks preconditions and marks the controller Loading.
func (c *Controller) beginLocked(mode Mode) (ticket, Outcome, bool) {
	if c.mode != mode {
		return ticket{}, Skipped, false
	}

	switch c.phase {
	case PhaseLoading:
		return ticket{}, Busy, false
	case PhaseExhausted:
		return ticket{}, Exhausted, false
	}

	switch mode {
	case ModeSequential:
		if c.partition >= len(c.seq) {
			c.phase = PhaseExhausted
			return ticket{}, Exhausted, false
		}
	case ModeSearch:
		if c.page > c.totalPages {
			c.phase = PhaseExhausted
			return ticket{}, Exhausted, false
		}
	}

	c.phase = PhaseLoading
	return c.ticketLocked(), Loaded, true
}

func (c *Controller) ticketLocked() ticket {
	t := ticket{
		generation: c.generation,
		page:       c.page,
		pageSize:   c.pageSize,
		filters:    c.filters,
	}
	if c.mode == ModeSequential && c.partition < len(c.seq) {
		t.partition = c.seq[c.partition]
	}
	return t
}

// advancePartitionLocked moves to page 1 of the next partition.
// Returns false and marks the controller Exhausted at the end of the sequence.
func (c *Controller) advancePartitionLocked() bool {
	PartitionsExhausted.Inc()
	c.partition++
	c.page = 1
	if c.partition >= len(c.seq) {
		c.phase = PhaseExhausted
		c.logger.Info().
			Int("accumulated", len(c.items)).
			Msg("Partition sequence exhausted")
		return false
	}
	return true
}

// resetLocked starts a new generation in the given mode.
func (c *Controller) resetLocked(mode Mode, filters catalog.Filters) {
	c.generation++
	c.mode = mode
	c.filters = filters
	c.phase = PhaseIdle
	c.partition = 0
	c.page = 1
	c.totalPages = 1
	c.items = nil
	c.noResults = false
	AccumulatedItems.Set(0)
}

func (c *Controller) discard(t ticket) Outcome {
	StaleCompletions.Inc()
	c.logger.Debug().
		Uint64("generation", t.generation).
		Str("partition", string(t.partition)).
		Int("page", t.page).
		Msg("Discarding stale completion")
	return Stale
}

// fail reports a gateway error. Must be called without holding mu.
func (c *Controller) fail(mode Mode, t ticket, err error) error {
	LoadErrors.WithLabelValues(mode.String()).Inc()

	event := c.logger.Error().Err(err).
		Str("mode", mode.String()).
		Int("page", t.page)
	if mode == ModeSequential {
		event = event.Str("partition", string(t.partition))
	} else {
		event = event.Str("filters", t.filters.String())
	}
	event.Msg("Page load failed")

	if c.onError != nil {
		c.onError(err)
	}

	if mode == ModeSequential {
		return fmt.Errorf("load partition %s page %d: %w", t.partition, t.page, err)
	}
	return fmt.Errorf("load search page %d: %w", t.page, err)
}

// Items returns a copy of the accumulated list.
func (c *Controller) Items() []catalog.Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]catalog.Card, len(c.items))
	copy(out, c.items)
	return out
}

// Busy reports whether a fetch is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == PhaseLoading
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Mode:           c.mode,
		Phase:          c.phase,
		PartitionIndex: c.partition,
		Page:           c.page,
		TotalPages:     c.totalPages,
		Filters:        c.filters,
		Generation:     c.generation,
		ItemCount:      len(c.items),
		NoResults:      c.noResults,
	}
	if c.partition < len(c.seq) {
		s.Partition = c.seq[c.partition]
	}
	return s
}

// Sequence returns a copy of the installed partition sequence.
func (c *Controller) Sequence() catalog.Sequence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq.Clone()
}
