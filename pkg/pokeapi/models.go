package pokeapi

// NamedResource is a summary reference returned by listing endpoints: a name
// and the URL of the full record.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ResourceList is the envelope of a paginated listing response.
type ResourceList struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []NamedResource `json:"results"`
}

// Sprites holds the image URLs of a Pokémon. Missing sprites are empty.
type Sprites struct {
	FrontDefault string `json:"front_default"`
	FrontShiny   string `json:"front_shiny"`
	BackDefault  string `json:"back_default"`
	BackShiny    string `json:"back_shiny"`
}

// StatSlot is one entry of the stats list.
type StatSlot struct {
	BaseStat int           `json:"base_stat"`
	Effort   int           `json:"effort"`
	Stat     NamedResource `json:"stat"`
}

// TypeSlot is one entry of the types list.
type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// Pokemon is the detail record of a single Pokémon.
type Pokemon struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Height         int        `json:"height"`
	Weight         int        `json:"weight"`
	BaseExperience int        `json:"base_experience"`
	Sprites        Sprites    `json:"sprites"`
	Stats          []StatSlot `json:"stats"`
	Types          []TypeSlot `json:"types"`
}

// Stat names as PokeAPI reports them.
const (
	StatHP             = "hp"
	StatAttack         = "attack"
	StatDefense        = "defense"
	StatSpecialAttack  = "special-attack"
	StatSpecialDefense = "special-defense"
	StatSpeed          = "speed"
)

// Band classifies a stat value for display.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Band thresholds.
const (
	HighStatThreshold   = 100
	MediumStatThreshold = 70
)

// StatBand classifies a base stat: high from 100, medium from 70, low below.
func StatBand(value int) Band {
	switch {
	case value >= HighStatThreshold:
		return BandHigh
	case value >= MediumStatThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// BarWidth is the fill percentage of a stat bar, clamped to [0, 100].
func BarWidth(value int) int {
	return max(0, min(value, 100))
}

// StatValue is a labelled stat ready for rendering.
type StatValue struct {
	Label string
	Name  string
	Value int
}

// Band returns the display band of the value.
func (s StatValue) Band() Band {
	return StatBand(s.Value)
}

// cardStats lists the stats shown per Pokémon, in display order.
var cardStats = []struct {
	label string
	name  string
}{
	{"HP", StatHP},
	{"ATK", StatAttack},
	{"DEF", StatDefense},
	{"SPA", StatSpecialAttack},
}

// Stat returns the base value of the named stat.
func (p *Pokemon) Stat(name string) (int, bool) {
	for _, s := range p.Stats {
		if s.Stat.Name == name {
			return s.BaseStat, true
		}
	}
	return 0, false
}

// CardStats returns HP, ATK, DEF and SPA. Stats are looked up by name; a
// record without stat names falls back to the positional order PokeAPI
// uses. Stats missing from both are omitted.
func (p *Pokemon) CardStats() []StatValue {
	out := make([]StatValue, 0, len(cardStats))
	for i, cs := range cardStats {
		value, ok := p.Stat(cs.name)
		if !ok {
			if i >= len(p.Stats) || p.Stats[i].Stat.Name != "" {
				continue
			}
			value = p.Stats[i].BaseStat
		}
		out = append(out, StatValue{Label: cs.label, Name: cs.name, Value: value})
	}
	return out
}

// TypeNames returns the type names ordered by slot as received.
func (p *Pokemon) TypeNames() []string {
	names := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		names = append(names, t.Type.Name)
	}
	return names
}

// Sprite returns the default front sprite URL.
func (p *Pokemon) Sprite() string {
	return p.Sprites.FrontDefault
}
