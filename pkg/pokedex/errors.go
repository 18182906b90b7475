package pokedex

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchInProgress is returned when a fetch is requested while another
	// one has not finished.
	ErrFetchInProgress = errors.New("pokedex: fetch already in progress")

	// ErrNoMorePages is returned by LoadMore once the cursor has passed the
	// number of records the API reports.
	ErrNoMorePages = errors.New("pokedex: no more pages")
)

// Stage names the step of a page fetch that failed.
type Stage string

const (
	StageList   Stage = "list"
	StageDetail Stage = "detail"
)

// FetchError reports a failed page fetch. The list and cursor are unchanged
// when a FetchError is returned.
type FetchError struct {
	Stage  Stage
	Offset int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page at offset %d: %s stage: %v", e.Offset, e.Stage, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
