// Package filter narrows record lists by name.
//
// Filters are pure: they never modify the input, they keep insertion order
// and they are recomputed on every call.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"
)

// Mode selects the matching strategy.
type Mode string

const (
	// ModeSubstring keeps names containing the term, ignoring case.
	ModeSubstring Mode = "substring"

	// ModeFuzzy keeps names containing the characters of the term in order.
	ModeFuzzy Mode = "fuzzy"
)

// ParseMode converts a user-supplied string into a Mode. The empty string
// selects ModeSubstring.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSubstring:
		return ModeSubstring, nil
	case ModeFuzzy:
		return ModeFuzzy, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q", s)
	}
}

// Apply filters items with the given mode. Unknown modes behave like
// ModeSubstring.
func Apply[T any](mode Mode, items []T, term string, name func(T) string) []T {
	if mode == ModeFuzzy {
		return Fuzzy(items, term, name)
	}
	return ByName(items, term, name)
}

// ByName returns the items whose name contains term, compared under Unicode
// case folding. An empty term returns a copy of all items.
func ByName[T any](items []T, term string, name func(T) string) []T {
	if term == "" {
		return append([]T(nil), items...)
	}

	// Casers keep state, one per call
	fold := cases.Fold()
	needle := fold.String(term)

	out := make([]T, 0, len(items))
	for _, item := range items {
		if strings.Contains(fold.String(name(item)), needle) {
			out = append(out, item)
		}
	}
	return out
}

// Fuzzy returns the items whose name fuzzily matches term. Matches keep
// insertion order, not score order. An empty term returns a copy of all items.
func Fuzzy[T any](items []T, term string, name func(T) string) []T {
	if term == "" {
		return append([]T(nil), items...)
	}

	fold := cases.Fold()
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = fold.String(name(item))
	}

	matches := fuzzy.Find(fold.String(term), names)
	indexes := make([]int, len(matches))
	for i, m := range matches {
		indexes[i] = m.Index
	}
	sort.Ints(indexes)

	out := make([]T, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, items[idx])
	}
	return out
}
