package events

import (
	"encoding/json"
	"fmt"
)

// Gym is a decoded gym event.
type Gym struct {
	GymID          string
	Name           string
	Latitude       float64
	Longitude      float64
	Team           Team
	SlotsAvailable int
	InBattle       bool
}

func (g *Gym) Category() Category              { return CategoryGym }
func (g *Gym) Coordinates() (float64, float64) { return g.Latitude, g.Longitude }

type gymWire struct {
	GymID          flexString `json:"gym_id"`
	Name           string     `json:"gym_name"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	Team           Team       `json:"team_id"`
	SlotsAvailable int        `json:"slots_available"`
	InBattle       bool       `json:"in_battle"`
}

// DecodeGym decodes a gym webhook payload.
func DecodeGym(raw json.RawMessage) (*Gym, error) {
	var w gymWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode gym: %w", err)
	}
	if w.GymID == "" {
		return nil, fmt.Errorf("decode gym: missing gym_id")
	}
	return &Gym{
		GymID:          string(w.GymID),
		Name:           w.Name,
		Latitude:       w.Latitude,
		Longitude:      w.Longitude,
		Team:           w.Team,
		SlotsAvailable: w.SlotsAvailable,
		InBattle:       w.InBattle,
	}, nil
}

// GymDetails is a decoded gym-details event, the category the engine diffs
// against tracked state to detect team takeovers and attacks.
type GymDetails struct {
	GymID     string
	Name      string
	Latitude  float64
	Longitude float64
	Team      Team
	InBattle  bool
}

func (g *GymDetails) Category() Category              { return CategoryGymDetails }
func (g *GymDetails) Coordinates() (float64, float64) { return g.Latitude, g.Longitude }

type gymDetailsWire struct {
	ID        flexString `json:"id"`
	GymID     flexString `json:"gym_id"`
	Name      string     `json:"name"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Team      Team       `json:"team"`
	InBattle  bool       `json:"in_battle"`
}

// DecodeGymDetails decodes a gym_details webhook payload. Scanner forks
// disagree on the id field name, so both id and gym_id are accepted.
func DecodeGymDetails(raw json.RawMessage) (*GymDetails, error) {
	var w gymDetailsWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode gym_details: %w", err)
	}
	id := w.GymID
	if id == "" {
		id = w.ID
	}
	if id == "" {
		return nil, fmt.Errorf("decode gym_details: missing gym id")
	}
	return &GymDetails{
		GymID:     string(id),
		Name:      w.Name,
		Latitude:  w.Latitude,
		Longitude: w.Longitude,
		Team:      w.Team,
		InBattle:  w.InBattle,
	}, nil
}

// Weather is a decoded weather-cell event.
type Weather struct {
	CellID    int64
	Latitude  float64
	Longitude float64
	Condition WeatherCondition
	Severity  int
}

func (w *Weather) Category() Category              { return CategoryWeather }
func (w *Weather) Coordinates() (float64, float64) { return w.Latitude, w.Longitude }

type weatherWire struct {
	CellID    int64   `json:"s2_cell_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Condition int     `json:"gameplay_condition"`
	Severity  int     `json:"severity"`
}

// DecodeWeather decodes a weather webhook payload.
func DecodeWeather(raw json.RawMessage) (*Weather, error) {
	var w weatherWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode weather: %w", err)
	}
	if w.CellID == 0 {
		return nil, fmt.Errorf("decode weather: missing s2_cell_id")
	}
	return &Weather{
		CellID:    w.CellID,
		Latitude:  w.Latitude,
		Longitude: w.Longitude,
		Condition: WeatherCondition(w.Condition),
		Severity:  w.Severity,
	}, nil
}
