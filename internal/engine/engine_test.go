package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SilphSquad/Brock-WhMgr/internal/alarms"
	"github.com/SilphSquad/Brock-WhMgr/internal/events"
	"github.com/SilphSquad/Brock-WhMgr/internal/geofence"
)

// recorder collects every triggered alarm for assertions.
type recorder struct {
	fired []Triggered
}

func (r *recorder) AlarmTriggered(_ context.Context, t Triggered) {
	r.fired = append(r.fired, t)
}

// newStore loads one rule file per guild from inline JSON.
func newStore(t *testing.T, guilds map[uint64]string) *alarms.Store {
	t.Helper()
	dir := t.TempDir()
	files := make(map[uint64]string, len(guilds))
	i := 0
	for guildID, content := range guilds {
		path := filepath.Join(dir, "g"+string(rune('a'+i))+".json")
		i++
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		files[guildID] = path
	}
	store := alarms.NewStore(geofence.NewPool(), files)
	store.LoadAll()
	return store
}

// Rule files used across scenarios. The "everywhere" square spans (0,0) to
// (10,10); test events at (5,5) land inside it.
const pokemonRules = `{
	"enable_pokemon": true,
	"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
	"alarms": [{
		"name": "high-iv",
		"geofences": ["everywhere"],
		"filters": {"pokemon": {"enabled": true, "min_iv": 90}}
	}]
}`

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func perfectSpawn() *events.Pokemon {
	return &events.Pokemon{
		PokemonID: 149,
		Latitude:  5,
		Longitude: 5,
		Attack:    intPtr(15),
		Defense:   intPtr(15),
		Stamina:   intPtr(15),
		CP:        intPtr(2000),
		Level:     floatPtr(30),
	}
}

func TestEngine_PokemonEvaluation(t *testing.T) {
	tests := []struct {
		name      string
		rules     string
		event     *events.Pokemon
		wantFired int
	}{
		{
			name:      "matching spawn triggers",
			rules:     pokemonRules,
			event:     perfectSpawn(),
			wantFired: 1,
		},
		{
			name:  "low iv filtered out",
			rules: pokemonRules,
			event: func() *events.Pokemon {
				p := perfectSpawn()
				p.Attack, p.Defense, p.Stamina = intPtr(0), intPtr(0), intPtr(0)
				return p
			}(),
			wantFired: 0,
		},
		{
			name:  "outside geofence filtered out",
			rules: pokemonRules,
			event: func() *events.Pokemon {
				p := perfectSpawn()
				p.Latitude, p.Longitude = 50, 50
				return p
			}(),
			wantFired: 0,
		},
		{
			name: "category disabled",
			rules: `{
				"enable_pokemon": false,
				"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
				"alarms": [{"name": "a", "geofences": ["everywhere"],
					"filters": {"pokemon": {"enabled": true}}}]
			}`,
			event:     perfectSpawn(),
			wantFired: 0,
		},
		{
			name: "exclude mode drops listed id",
			rules: `{
				"enable_pokemon": true,
				"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
				"alarms": [{"name": "no-dragonite", "geofences": ["everywhere"],
					"filters": {"pokemon": {"enabled": true, "type": "exclude", "pokemon": [149]}}}]
			}`,
			event:     perfectSpawn(),
			wantFired: 0,
		},
		{
			name: "iv exactly at both bounds passes",
			rules: `{
				"enable_pokemon": true,
				"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
				"alarms": [{"name": "hundo", "geofences": ["everywhere"],
					"filters": {"pokemon": {"enabled": true, "min_iv": 100, "max_iv": 100}}}]
			}`,
			event:     perfectSpawn(),
			wantFired: 1,
		},
		{
			name: "exclude mode with empty set excludes nothing",
			rules: `{
				"enable_pokemon": true,
				"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
				"alarms": [{"name": "a", "geofences": ["everywhere"],
					"filters": {"pokemon": {"enabled": true, "type": "exclude"}}}]
			}`,
			event:     perfectSpawn(),
			wantFired: 1,
		},
		{
			name: "great league required and carried",
			rules: `{
				"enable_pokemon": true,
				"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
				"alarms": [{"name": "gl", "geofences": ["everywhere"],
					"filters": {"pokemon": {"enabled": true, "great_league": true}}}]
			}`,
			event: func() *events.Pokemon {
				p := perfectSpawn()
				p.MatchesGreatLeague = true
				return p
			}(),
			wantFired: 1,
		},
		{
			name: "great league required but absent",
			rules: `{
				"enable_pokemon": true,
				"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
				"alarms": [{"name": "gl", "geofences": ["everywhere"],
					"filters": {"pokemon": {"enabled": true, "great_league": true}}}]
			}`,
			event:     perfectSpawn(),
			wantFired: 0,
		},
		{
			name: "ultra league required but absent",
			rules: `{
				"enable_pokemon": true,
				"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
				"alarms": [{"name": "ul", "geofences": ["everywhere"],
					"filters": {"pokemon": {"enabled": true, "ultra_league": true}}}]
			}`,
			event: func() *events.Pokemon {
				p := perfectSpawn()
				p.MatchesGreatLeague = true
				return p
			}(),
			wantFired: 0,
		},
		{
			name: "size class matches measured tiny spawn",
			rules: `{
				"enable_pokemon": true,
				"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
				"alarms": [{"name": "tinies", "geofences": ["everywhere"],
					"filters": {"pokemon": {"enabled": true, "size": "tiny"}}}]
			}`,
			event: func() *events.Pokemon {
				p := perfectSpawn()
				p.Height, p.Weight = "0.5", "40"
				return p
			}(),
			wantFired: 1,
		},
		{
			name: "size class rejects normal spawn",
			rules: `{
				"enable_pokemon": true,
				"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
				"alarms": [{"name": "tinies", "geofences": ["everywhere"],
					"filters": {"pokemon": {"enabled": true, "size": "tiny"}}}]
			}`,
			event: func() *events.Pokemon {
				p := perfectSpawn()
				p.Height, p.Weight = "2.2", "210"
				return p
			}(),
			wantFired: 0,
		},
		{
			name: "size filter with unparsable measurements is a non-match",
			rules: `{
				"enable_pokemon": true,
				"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
				"alarms": [{"name": "tinies", "geofences": ["everywhere"],
					"filters": {"pokemon": {"enabled": true, "size": "tiny"}}}]
			}`,
			event: func() *events.Pokemon {
				p := perfectSpawn()
				p.Height, p.Weight = "tall", "40"
				return p
			}(),
			wantFired: 0,
		},
		{
			name: "missing stats dropped when ignore_missing",
			rules: `{
				"enable_pokemon": true,
				"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
				"alarms": [{"name": "a", "geofences": ["everywhere"],
					"filters": {"pokemon": {"enabled": true, "ignore_missing": true}}}]
			}`,
			event: &events.Pokemon{
				PokemonID: 1, Latitude: 5, Longitude: 5,
			},
			wantFired: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, map[uint64]string{1: tt.rules})
			rec := &recorder{}
			eng := New(store, rec, nil, GateAbortAll)
			eng.HandleEvent(context.Background(), tt.event)
			if len(rec.fired) != tt.wantFired {
				t.Errorf("fired %d alarms, want %d", len(rec.fired), tt.wantFired)
			}
		})
	}
}

// A closed gate on an earlier guild abandons the whole event under the
// abort-all policy; the skip-guild policy only skips that guild. Guilds are
// visited in ascending id order, so guild 1's gate is evaluated first.
func TestEngine_GatePolicy(t *testing.T) {
	disabled := `{"enable_pokemon": false, "alarms": [{"name": "x", "geofences": [],
		"filters": {"pokemon": {"enabled": true}}}]}`

	tests := []struct {
		name      string
		policy    GatePolicy
		wantFired int
	}{
		{name: "abort-all abandons later guilds", policy: GateAbortAll, wantFired: 0},
		{name: "skip-guild only skips the gated guild", policy: GateSkipGuild, wantFired: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, map[uint64]string{
				1: disabled,
				2: pokemonRules,
			})
			rec := &recorder{}
			eng := New(store, rec, nil, tt.policy)
			eng.HandleEvent(context.Background(), perfectSpawn())
			if len(rec.fired) != tt.wantFired {
				t.Errorf("fired %d alarms, want %d", len(rec.fired), tt.wantFired)
			}
			if tt.wantFired == 1 && rec.fired[0].GuildID != 2 {
				t.Errorf("fired for guild %d, want 2", rec.fired[0].GuildID)
			}
		})
	}
}

const gymRules = `{
	"enable_gyms": true,
	"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
	"alarms": [{
		"name": "takeover",
		"geofences": ["everywhere"],
		"filters": {"gyms": {"enabled": true}}
	}]
}`

func TestEngine_GymDetailsStateDiff(t *testing.T) {
	store := newStore(t, map[uint64]string{1: gymRules, 2: gymRules})
	rec := &recorder{}
	eng := New(store, rec, nil, GateAbortAll)
	ctx := context.Background()

	details := func(team events.Team) *events.GymDetails {
		return &events.GymDetails{
			GymID: "gym-7", Latitude: 5, Longitude: 5, Team: team,
		}
	}

	eng.HandleEvent(ctx, details(events.TeamMystic))
	if len(rec.fired) != 0 {
		t.Fatalf("first sighting fired %d alarms, want 0", len(rec.fired))
	}

	eng.HandleEvent(ctx, details(events.TeamMystic))
	if len(rec.fired) != 0 {
		t.Fatalf("unchanged repeat fired %d alarms, want 0", len(rec.fired))
	}

	// Takeover: every subscribed guild alerts, not just the first.
	eng.HandleEvent(ctx, details(events.TeamValor))
	if len(rec.fired) != 2 {
		t.Fatalf("takeover fired %d alarms, want 2", len(rec.fired))
	}
}

func TestEngine_WeatherStateDiff(t *testing.T) {
	rules := `{
		"enable_weather": true,
		"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
		"alarms": [{"name": "wx", "geofences": ["everywhere"], "filters": {}}]
	}`
	store := newStore(t, map[uint64]string{1: rules})
	rec := &recorder{}
	eng := New(store, rec, nil, GateAbortAll)
	ctx := context.Background()

	cell := func(cond events.WeatherCondition) *events.Weather {
		return &events.Weather{CellID: 1234, Latitude: 5, Longitude: 5, Condition: cond}
	}

	eng.HandleEvent(ctx, cell(events.WeatherClear))
	if len(rec.fired) != 0 {
		t.Fatal("first cell sighting must not fire")
	}
	eng.HandleEvent(ctx, cell(events.WeatherRainy))
	if len(rec.fired) != 1 {
		t.Fatalf("condition change fired %d alarms, want 1", len(rec.fired))
	}
}

func TestEngine_RaidAndEgg(t *testing.T) {
	rules := `{
		"enable_raids": true,
		"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
		"alarms": [{
			"name": "legendaries",
			"geofences": ["everywhere"],
			"filters": {
				"raids": {"enabled": true, "pokemon": [384]},
				"eggs": {"enabled": true, "min_lvl": 5}
			}
		}]
	}`

	raid := func(mod func(r *events.Raid)) *events.Raid {
		r := &events.Raid{
			GymID: "g", Latitude: 5, Longitude: 5,
			PokemonID: 384, Level: "5", Move1: 1, Move2: 2,
		}
		if mod != nil {
			mod(r)
		}
		return r
	}

	tests := []struct {
		name      string
		event     *events.Raid
		wantFired int
	}{
		{name: "boss in include set", event: raid(nil), wantFired: 1},
		{
			name:      "boss outside include set",
			event:     raid(func(r *events.Raid) { r.PokemonID = 1 }),
			wantFired: 0,
		},
		{
			name:      "egg at level",
			event:     raid(func(r *events.Raid) { r.PokemonID = 0 }),
			wantFired: 1,
		},
		{
			name: "egg below level",
			event: raid(func(r *events.Raid) {
				r.PokemonID = 0
				r.Level = "3"
			}),
			wantFired: 0,
		},
		{
			name: "egg with unparsable level is a non-match",
			event: raid(func(r *events.Raid) {
				r.PokemonID = 0
				r.Level = "mega"
			}),
			wantFired: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, map[uint64]string{1: rules})
			rec := &recorder{}
			eng := New(store, rec, nil, GateAbortAll)
			eng.HandleEvent(context.Background(), tt.event)
			if len(rec.fired) != tt.wantFired {
				t.Errorf("fired %d alarms, want %d", len(rec.fired), tt.wantFired)
			}
		})
	}
}

func TestEngine_Quest(t *testing.T) {
	excludeRules := `{
		"enable_quests": true,
		"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
		"alarms": [{
			"name": "dust",
			"geofences": ["everywhere"],
			"filters": {"quests": {"enabled": true, "type": "exclude", "rewards": ["candy"]}}
		}]
	}`
	includeRules := `{
		"enable_quests": true,
		"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
		"alarms": [{
			"name": "rare-candy",
			"geofences": ["everywhere"],
			"filters": {"quests": {"enabled": true, "rewards": ["candy"]}}
		}]
	}`
	includeAllRules := `{
		"enable_quests": true,
		"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
		"alarms": [{
			"name": "everything",
			"geofences": ["everywhere"],
			"filters": {"quests": {"enabled": true}}
		}]
	}`

	quest := func(reward string) *events.Quest {
		return &events.Quest{PokestopID: "s", Latitude: 5, Longitude: 5, Reward: reward}
	}

	tests := []struct {
		name      string
		rules     string
		event     *events.Quest
		wantFired int
	}{
		{name: "non-excluded reward triggers", rules: excludeRules, event: quest("1000 stardust"), wantFired: 1},
		{name: "excluded keyword drops", rules: excludeRules, event: quest("rare Candy x3"), wantFired: 0},
		{name: "include keyword matches case-insensitively", rules: includeRules, event: quest("rare Candy x3"), wantFired: 1},
		{name: "include keyword absent drops", rules: includeRules, event: quest("1000 stardust"), wantFired: 0},
		{name: "include mode with no keywords matches everything", rules: includeAllRules, event: quest("1000 stardust"), wantFired: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, map[uint64]string{1: tt.rules})
			rec := &recorder{}
			eng := New(store, rec, nil, GateAbortAll)
			eng.HandleEvent(context.Background(), tt.event)
			if len(rec.fired) != tt.wantFired {
				t.Errorf("fired %d alarms, want %d", len(rec.fired), tt.wantFired)
			}
		})
	}
}

func TestEngine_Pokestop(t *testing.T) {
	rules := `{
		"enable_pokestops": true,
		"geofences": [{"name": "everywhere", "vertices": [[0,0],[0,10],[10,10],[10,0]]}],
		"alarms": [{
			"name": "invasions-only",
			"geofences": ["everywhere"],
			"filters": {"pokestops": {"enabled": true, "invasions": true}}
		}]
	}`

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	stop := func(lure, invasion bool) *events.Pokestop {
		s := &events.Pokestop{PokestopID: "p", Latitude: 5, Longitude: 5}
		if lure {
			s.LureExpiry = now.Add(10 * time.Minute)
		}
		if invasion {
			s.InvasionExpiry = now.Add(10 * time.Minute)
		}
		return s
	}

	tests := []struct {
		name      string
		event     *events.Pokestop
		wantFired int
	}{
		{name: "invasion wanted", event: stop(false, true), wantFired: 1},
		{name: "lure not wanted", event: stop(true, false), wantFired: 0},
		{name: "lure blocks even with invasion", event: stop(true, true), wantFired: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, map[uint64]string{1: rules})
			rec := &recorder{}
			eng := New(store, rec, nil, GateAbortAll)
			eng.now = func() time.Time { return now }
			eng.HandleEvent(context.Background(), tt.event)
			if len(rec.fired) != tt.wantFired {
				t.Errorf("fired %d alarms, want %d", len(rec.fired), tt.wantFired)
			}
		})
	}
}
