// Package alarms holds the per-guild alarm rule model: category filters,
// rules binding geofences to filters, and the hot-reloadable store that
// serves compiled rule sets to the engine.
package alarms

import (
	"encoding/json"
	"math"

	"github.com/SilphSquad/Brock-WhMgr/internal/events"
	"github.com/SilphSquad/Brock-WhMgr/internal/geofence"
)

// FilterMode is the polarity of a membership filter.
type FilterMode string

const (
	ModeInclude FilterMode = "include"
	ModeExclude FilterMode = "exclude"
)

// PokemonFilter gates wild spawn events.
type PokemonFilter struct {
	Enabled       bool       `json:"enabled"`
	Mode          FilterMode `json:"type"`
	PokemonIDs    []int      `json:"pokemon"`
	MinIV         float64    `json:"min_iv"`
	MaxIV         float64    `json:"max_iv"`
	MinCP         int        `json:"min_cp"`
	MaxCP         int        `json:"max_cp"`
	MinLevel      float64    `json:"min_lvl"`
	MaxLevel      float64    `json:"max_lvl"`
	IgnoreMissing bool       `json:"ignore_missing"`
	GreatLeague   bool       `json:"great_league"`
	UltraLeague   bool       `json:"ultra_league"`
	Size          string     `json:"size"`

	// sizeClass is the parsed Size, set at compile time. sizeSet
	// distinguishes "no size filter" from an unparsable size name.
	sizeClass events.SizeClass
	sizeSet   bool
}

// SizeClass returns the compiled size-class constraint, if one is set.
func (f *PokemonFilter) SizeClass() (events.SizeClass, bool) {
	return f.sizeClass, f.sizeSet
}

// RaidFilter gates hatched raid boss events.
type RaidFilter struct {
	Enabled       bool        `json:"enabled"`
	Mode          FilterMode  `json:"type"`
	PokemonIDs    []int       `json:"pokemon"`
	OnlyEx        bool        `json:"only_ex"`
	Team          events.Team `json:"team"`
	IgnoreMissing bool        `json:"ignore_missing"`
}

// UnmarshalJSON defaults an omitted team constraint to the all-teams
// wildcard; the zero Team value is neutral, which would otherwise silently
// narrow the filter.
func (f *RaidFilter) UnmarshalJSON(b []byte) error {
	type plain RaidFilter
	p := plain{Team: events.TeamAll}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*f = RaidFilter(p)
	return nil
}

// EggFilter gates unhatched raid (egg) events.
type EggFilter struct {
	Enabled  bool        `json:"enabled"`
	MinLevel int         `json:"min_lvl"`
	MaxLevel int         `json:"max_lvl"`
	OnlyEx   bool        `json:"only_ex"`
	Team     events.Team `json:"team"`
}

// UnmarshalJSON defaults an omitted team constraint to the all-teams
// wildcard, matching RaidFilter.
func (f *EggFilter) UnmarshalJSON(b []byte) error {
	type plain EggFilter
	p := plain{Team: events.TeamAll}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*f = EggFilter(p)
	return nil
}

// QuestFilter gates field-research quest events by reward keywords.
type QuestFilter struct {
	Enabled bool       `json:"enabled"`
	Mode    FilterMode `json:"type"`
	Rewards []string   `json:"rewards"`
	IsShiny bool       `json:"is_shiny"`
}

// PokestopFilter gates lure and invasion events.
type PokestopFilter struct {
	Enabled   bool `json:"enabled"`
	Lured     bool `json:"lured"`
	Invasions bool `json:"invasions"`
}

// GymFilter gates gym and gym-details events.
type GymFilter struct {
	Enabled     bool        `json:"enabled"`
	Team        events.Team `json:"team"`
	UnderAttack bool        `json:"under_attack"`
}

// UnmarshalJSON defaults an omitted team constraint to the all-teams
// wildcard, matching RaidFilter.
func (f *GymFilter) UnmarshalJSON(b []byte) error {
	type plain GymFilter
	p := plain{Team: events.TeamAll}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*f = GymFilter(p)
	return nil
}

// FilterSet is the optional per-category filters of one rule. A nil filter
// means the rule never participates in that category's evaluation.
type FilterSet struct {
	Pokemon   *PokemonFilter  `json:"pokemon,omitempty"`
	Raids     *RaidFilter     `json:"raids,omitempty"`
	Eggs      *EggFilter      `json:"eggs,omitempty"`
	Quests    *QuestFilter    `json:"quests,omitempty"`
	Pokestops *PokestopFilter `json:"pokestops,omitempty"`
	Gyms      *GymFilter      `json:"gyms,omitempty"`
}

// Rule binds a geofence scope to a set of category filters. A fully
// satisfied rule produces exactly one triggered alarm.
type Rule struct {
	Name          string    `json:"name"`
	GeofenceNames []string  `json:"geofences"`
	Filters       FilterSet `json:"filters"`

	// resolved holds the pool entries for GeofenceNames, in declared
	// order. Unresolvable names are dropped here, so a rule whose names
	// all fail to resolve can never pass its location gate.
	resolved []*geofence.Item
}

// Geofences returns the resolved geofences of the rule in declared order.
func (r *Rule) Geofences() []*geofence.Item { return r.resolved }

// GeofenceDef is an inline polygon definition in a rule file. Vertices are
// [latitude, longitude] pairs.
type GeofenceDef struct {
	Name     string       `json:"name"`
	Vertices [][2]float64 `json:"vertices"`
}

// RuleSet is one guild's alarm configuration: category enable switches plus
// an ordered rule list. A RuleSet is immutable once compiled; reload builds
// a fresh one and swaps it in atomically.
type RuleSet struct {
	EnablePokemon   bool `json:"enable_pokemon"`
	EnableRaids     bool `json:"enable_raids"`
	EnableQuests    bool `json:"enable_quests"`
	EnablePokestops bool `json:"enable_pokestops"`
	EnableGyms      bool `json:"enable_gyms"`
	EnableWeather   bool `json:"enable_weather"`

	Geofences []GeofenceDef `json:"geofences"`
	Alarms    []*Rule       `json:"alarms"`
}

// compile normalizes filter defaults after a rule set is decoded. Omitted
// range maximums mean unbounded, so zero values widen to the category cap.
func (rs *RuleSet) compile() {
	for _, rule := range rs.Alarms {
		f := &rule.Filters
		if p := f.Pokemon; p != nil {
			if p.Mode == "" {
				p.Mode = ModeInclude
			}
			if p.MaxIV == 0 {
				p.MaxIV = 100
			}
			if p.MaxCP == 0 {
				p.MaxCP = math.MaxInt32
			}
			if p.MaxLevel == 0 {
				p.MaxLevel = 100
			}
			if p.Size != "" {
				p.sizeClass, p.sizeSet = events.ParseSizeClass(p.Size)
			}
		}
		if r := f.Raids; r != nil && r.Mode == "" {
			r.Mode = ModeInclude
		}
		if e := f.Eggs; e != nil && e.MaxLevel == 0 {
			e.MaxLevel = 9
		}
		if q := f.Quests; q != nil && q.Mode == "" {
			q.Mode = ModeInclude
		}
	}
}
