package pokedex

import "github.com/Sternrassler/pokeapi-client/pkg/pokeapi"

// Card is the render-ready projection of a Pokémon.
type Card struct {
	ID     int        `json:"id"`
	Name   string     `json:"name"`
	Sprite string     `json:"sprite"`
	Types  []string   `json:"types"`
	Stats  []CardStat `json:"stats"`
}

// CardStat is one stat row of a card.
type CardStat struct {
	Label    string       `json:"label"`
	Name     string       `json:"name"`
	Value    int          `json:"value"`
	Band     pokeapi.Band `json:"band"`
	BarWidth int          `json:"bar_width"`
}

// CardFor projects a record into a card.
func CardFor(p pokeapi.Pokemon) Card {
	values := p.CardStats()
	stats := make([]CardStat, len(values))
	for i, v := range values {
		stats[i] = CardStat{
			Label:    v.Label,
			Name:     v.Name,
			Value:    v.Value,
			Band:     v.Band(),
			BarWidth: pokeapi.BarWidth(v.Value),
		}
	}

	return Card{
		ID:     p.ID,
		Name:   p.Name,
		Sprite: p.Sprite(),
		Types:  p.TypeNames(),
		Stats:  stats,
	}
}

// Cards projects records in order.
func Cards(records []pokeapi.Pokemon) []Card {
	cards := make([]Card, len(records))
	for i, p := range records {
		cards[i] = CardFor(p)
	}
	return cards
}
