// Package pokedex holds the paginated Pokémon listing state.
//
// A Pokedex owns the accumulated records, the pagination cursor, the
// loading flag and the search term. FetchPage is the only operation that
// mutates records and cursor: it lists one page of summaries, resolves every
// summary concurrently, and commits the page all-or-nothing.
//
//	dex, err := pokedex.New(client, pokedex.DefaultConfig())
//	if err := dex.LoadInitial(ctx); err != nil { ... }
//	if err := dex.LoadMore(ctx); err != nil { ... }
//	dex.SetSearchTerm("saur")
//	for _, p := range dex.View() { ... }
//
// All methods are safe for concurrent use. Overlapping fetches are refused
// with ErrFetchInProgress.
package pokedex
