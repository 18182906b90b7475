package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Sternrassler/pokeapi-client/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-client/pkg/pokedex"
)

func testCard() pokedex.Card {
	return pokedex.CardFor(pokeapi.Pokemon{
		ID:   150,
		Name: "mewtwo",
		Stats: []pokeapi.StatSlot{
			{BaseStat: 106, Stat: pokeapi.NamedResource{Name: pokeapi.StatHP}},
			{BaseStat: 110, Stat: pokeapi.NamedResource{Name: pokeapi.StatAttack}},
			{BaseStat: 90, Stat: pokeapi.NamedResource{Name: pokeapi.StatDefense}},
			{BaseStat: 154, Stat: pokeapi.NamedResource{Name: pokeapi.StatSpecialAttack}},
		},
		Types: []pokeapi.TypeSlot{{Slot: 1, Type: pokeapi.NamedResource{Name: "psychic"}}},
	})
}

func TestRenderCards(t *testing.T) {
	var buf bytes.Buffer

	if err := renderCards(&buf, []pokedex.Card{testCard()}); err != nil {
		t.Fatalf("renderCards failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"mewtwo", "150", "psychic", "106 (high)", "90 (medium)", "154 (high)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCards_MissingStat(t *testing.T) {
	var buf bytes.Buffer
	card := pokedex.CardFor(pokeapi.Pokemon{ID: 0, Name: "missingno"})

	if err := renderCards(&buf, []pokedex.Card{card}); err != nil {
		t.Fatalf("renderCards failed: %v", err)
	}
	if !strings.Contains(buf.String(), "-") {
		t.Errorf("missing stats should render as '-':\n%s", buf.String())
	}
}

func TestRenderCard(t *testing.T) {
	var buf bytes.Buffer
	p := &pokeapi.Pokemon{Height: 20, Weight: 1220, BaseExperience: 340}

	if err := renderCard(&buf, testCard(), p); err != nil {
		t.Fatalf("renderCard failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"#150 mewtwo", "Types:  psychic", "Weight: 1220", "##########", "#########."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		percent int
		want    string
	}{
		{0, ".........."},
		{45, "#####....."},
		{90, "#########."},
		{100, "##########"},
	}

	for _, tt := range tests {
		if got := bar(tt.percent); got != tt.want {
			t.Errorf("bar(%d) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}
