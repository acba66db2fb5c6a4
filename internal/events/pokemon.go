package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Pokemon is a decoded wild spawn event.
type Pokemon struct {
	EncounterID string
	PokemonID   int
	Form        int
	Latitude    float64
	Longitude   float64
	Gender      int

	// Stats are absent when the scanner reported the spawn without an
	// encounter; IsMissingStats distinguishes 0 from unknown.
	Attack  *int
	Defense *int
	Stamina *int
	CP      *int
	Level   *float64

	// Height and Weight stay raw text; some scanner forks quote them and
	// unparsable values must behave as a filter non-match, not an error.
	Height string
	Weight string

	// Precomputed league membership, derived from the scanner's PvP
	// ranking payloads at decode time.
	MatchesGreatLeague bool
	MatchesUltraLeague bool

	DespawnTime time.Time
}

func (p *Pokemon) Category() Category               { return CategoryPokemon }
func (p *Pokemon) Coordinates() (float64, float64)  { return p.Latitude, p.Longitude }

// IsMissingStats reports whether the spawn arrived without IV components.
func (p *Pokemon) IsMissingStats() bool {
	return p.Attack == nil || p.Defense == nil || p.Stamina == nil
}

// IV returns the IV percentage computed from the individual stat components,
// or 0 when stats are missing.
func (p *Pokemon) IV() float64 {
	if p.IsMissingStats() {
		return 0
	}
	return float64(*p.Attack+*p.Defense+*p.Stamina) * 100 / 45
}

type pvpRanking struct {
	PokemonID int `json:"pokemon"`
	Rank      int `json:"rank"`
	CP        int `json:"cp"`
}

type pokemonWire struct {
	EncounterID    flexString   `json:"encounter_id"`
	PokemonID      int          `json:"pokemon_id"`
	Form           int          `json:"form"`
	Latitude       float64      `json:"latitude"`
	Longitude      float64      `json:"longitude"`
	Gender         int          `json:"gender"`
	Attack         *int         `json:"individual_attack"`
	Defense        *int         `json:"individual_defense"`
	Stamina        *int         `json:"individual_stamina"`
	CP             *int         `json:"cp"`
	Level          *float64     `json:"pokemon_level"`
	Height         flexString   `json:"height"`
	Weight         flexString   `json:"weight"`
	DisappearTime  int64        `json:"disappear_time"`
	GreatRankings  []pvpRanking `json:"pvp_rankings_great_league"`
	UltraRankings  []pvpRanking `json:"pvp_rankings_ultra_league"`
}

// DecodePokemon decodes a pokemon webhook payload. The despawn time is the
// scanner's disappear_time shifted forward one hour when daylight-saving
// adjustment is enabled, mirroring the reporting map's clock handling.
func DecodePokemon(raw json.RawMessage, dstAdjust bool) (*Pokemon, error) {
	var w pokemonWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode pokemon: %w", err)
	}
	if w.PokemonID == 0 {
		return nil, fmt.Errorf("decode pokemon: missing pokemon_id")
	}

	despawn := time.Unix(w.DisappearTime, 0)
	if dstAdjust {
		despawn = despawn.Add(time.Hour)
	}

	return &Pokemon{
		EncounterID:        string(w.EncounterID),
		PokemonID:          w.PokemonID,
		Form:               w.Form,
		Latitude:           w.Latitude,
		Longitude:          w.Longitude,
		Gender:             w.Gender,
		Attack:             w.Attack,
		Defense:            w.Defense,
		Stamina:            w.Stamina,
		CP:                 w.CP,
		Level:              w.Level,
		Height:             string(w.Height),
		Weight:             string(w.Weight),
		MatchesGreatLeague: len(w.GreatRankings) > 0,
		MatchesUltraLeague: len(w.UltraRankings) > 0,
		DespawnTime:        despawn,
	}, nil
}
