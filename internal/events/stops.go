package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Quest is a decoded field-research quest event.
type Quest struct {
	PokestopID   string
	PokestopName string
	Latitude     float64
	Longitude    float64
	Template     string

	// Reward is a flattened human-readable description of the quest
	// rewards; keyword filters substring-match against it.
	Reward  string
	IsShiny bool
}

func (q *Quest) Category() Category              { return CategoryQuest }
func (q *Quest) Coordinates() (float64, float64) { return q.Latitude, q.Longitude }

// Scanner reward type ids.
const (
	rewardExperience = 1
	rewardItem       = 2
	rewardStardust   = 3
	rewardCandy      = 4
	rewardPokemon    = 7
)

type questReward struct {
	Type int `json:"type"`
	Info struct {
		PokemonID int  `json:"pokemon_id"`
		ItemID    int  `json:"item_id"`
		Amount    int  `json:"amount"`
		Shiny     bool `json:"shiny"`
	} `json:"info"`
}

func (r questReward) describe() string {
	switch r.Type {
	case rewardExperience:
		return fmt.Sprintf("%d experience", r.Info.Amount)
	case rewardItem:
		return fmt.Sprintf("item %d x%d", r.Info.ItemID, r.Info.Amount)
	case rewardStardust:
		return fmt.Sprintf("%d stardust", r.Info.Amount)
	case rewardCandy:
		return fmt.Sprintf("candy x%d", r.Info.Amount)
	case rewardPokemon:
		return fmt.Sprintf("pokemon %d", r.Info.PokemonID)
	}
	return fmt.Sprintf("reward type %d", r.Type)
}

type questWire struct {
	PokestopID   flexString    `json:"pokestop_id"`
	PokestopName string        `json:"pokestop_name"`
	Latitude     float64       `json:"latitude"`
	Longitude    float64       `json:"longitude"`
	Template     string        `json:"template"`
	Rewards      []questReward `json:"rewards"`
}

// DecodeQuest decodes a quest webhook payload.
func DecodeQuest(raw json.RawMessage) (*Quest, error) {
	var w questWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode quest: %w", err)
	}
	if w.PokestopID == "" {
		return nil, fmt.Errorf("decode quest: missing pokestop_id")
	}

	parts := make([]string, 0, len(w.Rewards))
	shiny := false
	for _, r := range w.Rewards {
		parts = append(parts, r.describe())
		if r.Info.Shiny {
			shiny = true
		}
	}

	return &Quest{
		PokestopID:   string(w.PokestopID),
		PokestopName: w.PokestopName,
		Latitude:     w.Latitude,
		Longitude:    w.Longitude,
		Template:     w.Template,
		Reward:       strings.Join(parts, ", "),
		IsShiny:      shiny,
	}, nil
}

// Pokestop is a decoded pokestop event: a lure activation or a team rocket
// invasion. Plain pokestop updates with neither are dropped at receive.
type Pokestop struct {
	PokestopID string
	Name       string
	Latitude   float64
	Longitude  float64

	LureExpiry     time.Time
	InvasionExpiry time.Time
	GruntType      int
}

func (p *Pokestop) Category() Category              { return CategoryPokestop }
func (p *Pokestop) Coordinates() (float64, float64) { return p.Latitude, p.Longitude }

// HasLure reports whether the stop has an active lure at time now.
func (p *Pokestop) HasLure(now time.Time) bool {
	return p.LureExpiry.After(now)
}

// HasInvasion reports whether the stop has an active invasion at time now.
func (p *Pokestop) HasInvasion(now time.Time) bool {
	return p.InvasionExpiry.After(now)
}

type pokestopWire struct {
	PokestopID     flexString `json:"pokestop_id"`
	Name           string     `json:"name"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	LureExpiration int64      `json:"lure_expiration"`
	IncidentExpire int64      `json:"incident_expire_timestamp"`
	GruntType      int        `json:"grunt_type"`
}

// DecodePokestop decodes a pokestop webhook payload. Lure and invasion
// expiry are shifted forward one hour when daylight-saving adjustment is
// enabled, like every other scanner timestamp.
func DecodePokestop(raw json.RawMessage, dstAdjust bool) (*Pokestop, error) {
	var w pokestopWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode pokestop: %w", err)
	}
	if w.PokestopID == "" {
		return nil, fmt.Errorf("decode pokestop: missing pokestop_id")
	}

	shift := time.Duration(0)
	if dstAdjust {
		shift = time.Hour
	}

	stop := &Pokestop{
		PokestopID: string(w.PokestopID),
		Name:       w.Name,
		Latitude:   w.Latitude,
		Longitude:  w.Longitude,
		GruntType:  w.GruntType,
	}
	if w.LureExpiration > 0 {
		stop.LureExpiry = time.Unix(w.LureExpiration, 0).Add(shift)
	}
	if w.IncidentExpire > 0 {
		stop.InvasionExpiry = time.Unix(w.IncidentExpire, 0).Add(shift)
	}
	return stop, nil
}
