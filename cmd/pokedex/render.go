package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sternrassler/pokeapi-client/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-client/pkg/pokedex"
	"github.com/olekukonko/tablewriter"
)

var statColumns = []string{"HP", "ATK", "DEF", "SPA"}

// renderCards prints one row per card.
func renderCards(w io.Writer, cards []pokedex.Card) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Name", "Types", "HP", "ATK", "DEF", "SPA")

	for _, c := range cards {
		row := []string{strconv.Itoa(c.ID), c.Name, strings.Join(c.Types, "/")}
		for _, label := range statColumns {
			row = append(row, statCell(c, label))
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("append row %s: %w", c.Name, err)
		}
	}

	return table.Render()
}

// renderCard prints a single card with stat bars.
func renderCard(w io.Writer, c pokedex.Card, p *pokeapi.Pokemon) error {
	fmt.Fprintf(w, "#%d %s\n", c.ID, c.Name)
	fmt.Fprintf(w, "Types:  %s\n", strings.Join(c.Types, ", "))
	if p != nil {
		fmt.Fprintf(w, "Height: %d  Weight: %d  Base XP: %d\n", p.Height, p.Weight, p.BaseExperience)
	}
	if c.Sprite != "" {
		fmt.Fprintf(w, "Sprite: %s\n", c.Sprite)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Stat", "Value", "Band", "Bar")
	for _, s := range c.Stats {
		if err := table.Append([]string{s.Label, strconv.Itoa(s.Value), string(s.Band), bar(s.BarWidth)}); err != nil {
			return fmt.Errorf("append stat %s: %w", s.Label, err)
		}
	}
	return table.Render()
}

func statCell(c pokedex.Card, label string) string {
	for _, s := range c.Stats {
		if s.Label == label {
			return fmt.Sprintf("%d (%s)", s.Value, s.Band)
		}
	}
	return "-"
}

// bar draws a percentage as ten segments.
func bar(percent int) string {
	filled := (percent + 5) / 10
	return strings.Repeat("#", filled) + strings.Repeat(".", 10-filled)
}
