package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Raid is a decoded raid event. A raid with no assigned boss (PokemonID 0)
// is an egg.
type Raid struct {
	GymID      string
	GymName    string
	PokemonID  int
	Form       int
	CP         int
	Move1      int
	Move2      int
	Latitude   float64
	Longitude  float64
	Team       Team
	ExEligible bool

	// Level stays raw text; unparsable levels fail egg level-range filters
	// rather than erroring out.
	Level string

	SpawnTime time.Time
	StartTime time.Time
	EndTime   time.Time
}

func (r *Raid) Category() Category              { return CategoryRaid }
func (r *Raid) Coordinates() (float64, float64) { return r.Latitude, r.Longitude }

// IsEgg reports whether the raid has not hatched into a boss yet.
func (r *Raid) IsEgg() bool { return r.PokemonID == 0 }

// IsMissingStats reports whether the boss moveset is still unknown.
func (r *Raid) IsMissingStats() bool { return r.Move1 == 0 && r.Move2 == 0 }

// ParseRaidLevel parses the raw raid level text. The second return is false
// when the text is not a number; egg level filters treat that as a
// non-match.
func ParseRaidLevel(level string) (int, bool) {
	return flexString(level).int()
}

type raidWire struct {
	GymID      flexString `json:"gym_id"`
	GymName    string     `json:"gym_name"`
	PokemonID  int        `json:"pokemon_id"`
	Form       int        `json:"form"`
	CP         int        `json:"cp"`
	Move1      int        `json:"move_1"`
	Move2      int        `json:"move_2"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Team       Team       `json:"team_id"`
	ExEligible bool       `json:"ex_raid_eligible"`
	Level      flexString `json:"level"`
	Spawn      int64      `json:"spawn"`
	Start      int64      `json:"start"`
	End        int64      `json:"end"`
}

// DecodeRaid decodes a raid webhook payload. Spawn, start and end are
// shifted forward one hour when daylight-saving adjustment is enabled.
func DecodeRaid(raw json.RawMessage, dstAdjust bool) (*Raid, error) {
	var w raidWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode raid: %w", err)
	}
	if w.GymID == "" {
		return nil, fmt.Errorf("decode raid: missing gym_id")
	}

	shift := time.Duration(0)
	if dstAdjust {
		shift = time.Hour
	}

	return &Raid{
		GymID:      string(w.GymID),
		GymName:    w.GymName,
		PokemonID:  w.PokemonID,
		Form:       w.Form,
		CP:         w.CP,
		Move1:      w.Move1,
		Move2:      w.Move2,
		Latitude:   w.Latitude,
		Longitude:  w.Longitude,
		Team:       w.Team,
		ExEligible: w.ExEligible,
		Level:      string(w.Level),
		SpawnTime:  time.Unix(w.Spawn, 0).Add(shift),
		StartTime:  time.Unix(w.Start, 0).Add(shift),
		EndTime:    time.Unix(w.End, 0).Add(shift),
	}, nil
}
