package pagination

import (
	"github.com/Sternrassler/card-catalog-client/pkg/catalog"
)

// Mode selects how the next page is chosen.
type Mode int

const (
	// ModeSequential walks the partition sequence page by page.
	ModeSequential Mode = iota

	// ModeSearch pages through filtered results.
	ModeSearch
)

func (m Mode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Phase is the loading state of a controller.
type Phase int

const (
	// PhaseIdle accepts a new load.
	PhaseIdle Phase = iota

	// PhaseLoading has one fetch in flight; further loads are no-ops.
	PhaseLoading

	// PhaseExhausted has nothing left to load in the current mode.
	PhaseExhausted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Outcome reports what a load call did.
type Outcome int

const (
	// Loaded means items were appended.
	Loaded Outcome = iota

	// Busy means another fetch was in flight; nothing changed.
	Busy

	// Exhausted means there is nothing more to load in this mode.
	Exhausted

	// NoResults means the first search page was empty.
	NoResults

	// Stale means the fetch completed after a mode switch and was discarded.
	Stale

	// Failed means the gateway returned an error; cursors are unchanged.
	Failed

	// Skipped means the call did not match the current mode.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Loaded:
		return "loaded"
	case Busy:
		return "busy"
	case Exhausted:
		return "exhausted"
	case NoResults:
		return "no_results"
	case Stale:
		return "stale"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// State is a point-in-time snapshot of a controller.
type State struct {
	Mode           Mode
	Phase          Phase
	PartitionIndex int
	Partition      catalog.Partition
	Page           int
	TotalPages     int
	Filters        catalog.Filters
	Generation     uint64

	// ItemCount is the length of the accumulated list.
	ItemCount int

	// NoResults is set when a search returned nothing on its first page.
	// An empty list without NoResults means "not loaded yet".
	NoResults bool
}

// Busy reports whether a fetch is in flight.
func (s State) Busy() bool {
	return s.Phase == PhaseLoading
}
