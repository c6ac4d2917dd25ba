// Package pagination drives incremental loading of the card catalog.
//
// A Controller walks a fixed sequence of expansions page by page in
// sequential mode, or pages through filtered results in search mode, and
// accumulates every loaded card in memory.
//
// Example usage:
//
//	ctrl, err := pagination.New(gateway, pagination.Options{})
//	outcome, err := ctrl.Initialize(ctx, catalog.DefaultSequence(), pagination.DefaultPageSize)
//	// each continuation signal:
//	outcome, err = ctrl.LoadNext(ctx)
//	// search, or return to sequential mode with empty filters:
//	outcome, err = ctrl.SubmitSearch(ctx, catalog.Filters{Name: "Luffy"})
//
// Loading rules:
//   - An empty page, or a page number past the reported total, exhausts the
//     current expansion; the controller moves on to the next one without
//     appending anything and without waiting for another signal
//   - After the last page of an expansion the next call starts on the
//     following expansion
//   - An empty first search page yields an explicit empty list (NoResults)
//   - Only one fetch is in flight at a time; calls made meanwhile return Busy
//   - Every mode switch starts a new generation; completions from an older
//     generation are discarded (Stale)
//   - Gateway errors leave every cursor in place; the next call retries
package pagination
