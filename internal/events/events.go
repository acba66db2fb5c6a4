// Package events defines the typed game events decoded from scanner webhook
// payloads. Each webhook category maps to one concrete event type; all of
// them implement GameEvent so the router can fan them out uniformly.
package events

import (
	"bytes"
	"strconv"
)

// Category identifies one of the seven webhook event kinds.
type Category string

const (
	CategoryPokemon    Category = "pokemon"
	CategoryRaid       Category = "raid"
	CategoryQuest      Category = "quest"
	CategoryPokestop   Category = "pokestop"
	CategoryGym        Category = "gym"
	CategoryGymDetails Category = "gym_details"
	CategoryWeather    Category = "weather"
)

// GameEvent is the closed set of decoded webhook events. An event is an
// immutable value: it is decoded once by the listener and consumed once by
// the router.
type GameEvent interface {
	Category() Category
	// Coordinates returns the event location as (latitude, longitude).
	Coordinates() (float64, float64)
}

// Team is a gym-controlling team. The zero value is TeamNeutral, matching
// the scanner's team_id encoding; TeamAll is a filter-side wildcard that
// never appears on the wire.
type Team int

const (
	TeamAll      Team = -1
	TeamNeutral  Team = 0
	TeamMystic   Team = 1
	TeamValor    Team = 2
	TeamInstinct Team = 3
)

var teamNames = map[string]Team{
	"all":      TeamAll,
	"neutral":  TeamNeutral,
	"mystic":   TeamMystic,
	"valor":    TeamValor,
	"instinct": TeamInstinct,
}

func (t Team) String() string {
	switch t {
	case TeamAll:
		return "all"
	case TeamNeutral:
		return "neutral"
	case TeamMystic:
		return "mystic"
	case TeamValor:
		return "valor"
	case TeamInstinct:
		return "instinct"
	}
	return "team(" + strconv.Itoa(int(t)) + ")"
}

// UnmarshalJSON accepts either the scanner's numeric team_id or a team name
// string as used in alarm rule files.
func (t *Team) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 1 && b[0] == '"' {
		name := string(bytes.ToLower(bytes.Trim(b, `"`)))
		if team, ok := teamNames[name]; ok {
			*t = team
			return nil
		}
		return &strconv.NumError{Func: "ParseTeam", Num: name, Err: strconv.ErrSyntax}
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return err
	}
	*t = Team(n)
	return nil
}

// WeatherCondition is the in-game weather of an S2 cell.
type WeatherCondition int

const (
	WeatherNone          WeatherCondition = 0
	WeatherClear         WeatherCondition = 1
	WeatherRainy         WeatherCondition = 2
	WeatherPartlyCloudy  WeatherCondition = 3
	WeatherOvercast      WeatherCondition = 4
	WeatherWindy         WeatherCondition = 5
	WeatherSnow          WeatherCondition = 6
	WeatherFog           WeatherCondition = 7
)

// flexString unmarshals from either a JSON string or a bare JSON number.
// Scanner forks disagree on whether fields like height, weight and raid
// level are quoted, so numeric attributes that may be unparsable are kept
// as raw text and parsed at evaluation time.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		*s = flexString(b[1 : len(b)-1])
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	*s = flexString(b)
	return nil
}

func (s flexString) float() (float64, bool) {
	v, err := strconv.ParseFloat(string(s), 64)
	return v, err == nil
}

func (s flexString) int() (int, bool) {
	v, err := strconv.Atoi(string(s))
	return v, err == nil
}
