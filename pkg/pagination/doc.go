// Package pagination provides offset cursors and concurrent batch resolution
// for PokeAPI listings.
//
// A listing page only carries summary references ({name, url}). Rendering a
// page needs the detail record behind every reference, so each page turns
// into one listing request followed by a burst of detail requests. The
// BatchFetcher runs that burst with a bounded number of goroutines and joins
// it all-or-nothing.
//
// Example usage:
//
//	cursor := pagination.NewCursor(pagination.DefaultPageSize)
//	list, err := client.ListPokemon(ctx, cursor.Next(false), cursor.PageSize)
//	...
//	fetcher := pagination.NewBatchFetcher[*pokeapi.Pokemon](client.GetPokemon, pagination.DefaultConfig())
//	details, err := fetcher.FetchAll(ctx, urls)
//	cursor = cursor.Advance()
//
// The batch fetcher:
//   - Starts at most MaxConcurrency fetches at a time
//   - Bounds each fetch by its own timeout
//   - Cancels outstanding fetches on the first failure
//   - Returns results in input order, never a partial batch
package pagination
