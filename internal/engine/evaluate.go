package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/SilphSquad/Brock-WhMgr/internal/alarms"
	"github.com/SilphSquad/Brock-WhMgr/internal/events"
	"github.com/SilphSquad/Brock-WhMgr/internal/geofence"
	"github.com/SilphSquad/Brock-WhMgr/internal/metrics"
	"github.com/SilphSquad/Brock-WhMgr/internal/tracking"
)

// matchesIDSet applies include/exclude polarity to an id membership test.
// An empty include set matches everything; an empty exclude set excludes
// nothing.
func matchesIDSet(mode alarms.FilterMode, ids []int, id int) bool {
	contains := false
	for _, v := range ids {
		if v == id {
			contains = true
			break
		}
	}
	if mode == alarms.ModeExclude {
		return !contains
	}
	return len(ids) == 0 || contains
}

// matchesKeywords applies include/exclude polarity to a case-insensitive
// substring match of any keyword against text.
func matchesKeywords(mode alarms.FilterMode, keywords []string, text string) bool {
	lower := strings.ToLower(text)
	contains := false
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			contains = true
			break
		}
	}
	if mode == alarms.ModeExclude {
		return !contains
	}
	return len(keywords) == 0 || contains
}

// inRange is inclusive on both bounds.
func inRange(v, min, max float64) bool {
	return v >= min && v <= max
}

func matchesTeam(want, got events.Team) bool {
	return want == events.TeamAll || want == got
}

func locate(ev events.GameEvent, rule *alarms.Rule) *geofence.Item {
	lat, lng := ev.Coordinates()
	return geofence.Resolve(geofence.Point{Latitude: lat, Longitude: lng}, rule.Geofences())
}

func (e *Engine) processPokemon(ctx context.Context, p *events.Pokemon) {
	e.stats.Increment(metrics.CounterPokemonReceived)
	if p.IsMissingStats() {
		e.stats.Increment(metrics.CounterPokemonMissingStats)
	} else {
		e.stats.Increment(metrics.CounterPokemonWithStats)
	}

	for _, guildID := range e.store.GuildIDs() {
		rs, ok := e.store.RuleSet(guildID)
		if !ok {
			continue
		}
		proceed, abort := e.categoryGate(rs.EnablePokemon, rs)
		if !proceed {
			if abort {
				return
			}
			continue
		}

		for _, rule := range rs.Alarms {
			f := rule.Filters.Pokemon
			if f == nil || !f.Enabled {
				continue
			}
			if locate(p, rule) == nil {
				continue
			}
			if !matchesIDSet(f.Mode, f.PokemonIDs, p.PokemonID) {
				continue
			}
			if !inRange(p.IV(), f.MinIV, f.MaxIV) {
				continue
			}
			cp := 0
			if p.CP != nil {
				cp = *p.CP
			}
			if !inRange(float64(cp), float64(f.MinCP), float64(f.MaxCP)) {
				continue
			}
			lvl := 0.0
			if p.Level != nil {
				lvl = *p.Level
			}
			if !inRange(lvl, f.MinLevel, f.MaxLevel) {
				continue
			}
			if f.IgnoreMissing && p.IsMissingStats() {
				continue
			}
			if f.GreatLeague && !p.MatchesGreatLeague {
				continue
			}
			if f.UltraLeague && !p.MatchesUltraLeague {
				continue
			}
			if want, set := f.SizeClass(); set {
				size, ok := p.MeasuredSize()
				if !ok || size != want {
					continue
				}
			}
			e.trigger(ctx, p, rule, guildID)
		}
	}
}

func (e *Engine) processRaid(ctx context.Context, r *events.Raid) {
	if r.IsEgg() {
		e.stats.Increment(metrics.CounterEggsReceived)
	} else {
		e.stats.Increment(metrics.CounterRaidsReceived)
	}

	for _, guildID := range e.store.GuildIDs() {
		rs, ok := e.store.RuleSet(guildID)
		if !ok {
			continue
		}
		proceed, abort := e.categoryGate(rs.EnableRaids, rs)
		if !proceed {
			if abort {
				return
			}
			continue
		}

		for _, rule := range rs.Alarms {
			if r.IsEgg() {
				e.evaluateEgg(ctx, r, rule, guildID)
			} else {
				e.evaluateRaid(ctx, r, rule, guildID)
			}
		}
	}
}

func (e *Engine) evaluateEgg(ctx context.Context, r *events.Raid, rule *alarms.Rule, guildID uint64) {
	f := rule.Filters.Eggs
	if f == nil || !f.Enabled {
		return
	}
	if locate(r, rule) == nil {
		return
	}
	lvl, ok := events.ParseRaidLevel(r.Level)
	if !ok {
		slog.Warn("Unparsable raid level", "alarm", rule.Name, "level", r.Level)
		return
	}
	if lvl < f.MinLevel || lvl > f.MaxLevel {
		return
	}
	if f.OnlyEx && !r.ExEligible {
		return
	}
	if !matchesTeam(f.Team, r.Team) {
		return
	}
	e.trigger(ctx, r, rule, guildID)
}

func (e *Engine) evaluateRaid(ctx context.Context, r *events.Raid, rule *alarms.Rule, guildID uint64) {
	f := rule.Filters.Raids
	if f == nil || !f.Enabled {
		return
	}
	if locate(r, rule) == nil {
		return
	}
	if !matchesIDSet(f.Mode, f.PokemonIDs, r.PokemonID) {
		return
	}
	if f.OnlyEx && !r.ExEligible {
		return
	}
	if !matchesTeam(f.Team, r.Team) {
		return
	}
	if f.IgnoreMissing && r.IsMissingStats() {
		return
	}
	e.trigger(ctx, r, rule, guildID)
}

func (e *Engine) processQuest(ctx context.Context, q *events.Quest) {
	e.stats.Increment(metrics.CounterQuestsReceived)

	for _, guildID := range e.store.GuildIDs() {
		rs, ok := e.store.RuleSet(guildID)
		if !ok {
			continue
		}
		proceed, abort := e.categoryGate(rs.EnableQuests, rs)
		if !proceed {
			if abort {
				return
			}
			continue
		}

		for _, rule := range rs.Alarms {
			f := rule.Filters.Quests
			if f == nil || !f.Enabled {
				continue
			}
			if locate(q, rule) == nil {
				continue
			}
			if !matchesKeywords(f.Mode, f.Rewards, q.Reward) {
				continue
			}
			if f.IsShiny && !q.IsShiny {
				continue
			}
			e.trigger(ctx, q, rule, guildID)
		}
	}
}

func (e *Engine) processPokestop(ctx context.Context, p *events.Pokestop) {
	e.stats.Increment(metrics.CounterPokestopsReceived)
	now := e.now()

	for _, guildID := range e.store.GuildIDs() {
		rs, ok := e.store.RuleSet(guildID)
		if !ok {
			continue
		}
		proceed, abort := e.categoryGate(rs.EnablePokestops, rs)
		if !proceed {
			if abort {
				return
			}
			continue
		}

		for _, rule := range rs.Alarms {
			f := rule.Filters.Pokestops
			if f == nil || !f.Enabled {
				continue
			}
			if locate(p, rule) == nil {
				continue
			}
			if p.HasLure(now) && !f.Lured {
				continue
			}
			if p.HasInvasion(now) && !f.Invasions {
				continue
			}
			e.trigger(ctx, p, rule, guildID)
		}
	}
}

func (e *Engine) processGym(ctx context.Context, g *events.Gym) {
	e.stats.Increment(metrics.CounterGymsReceived)

	for _, guildID := range e.store.GuildIDs() {
		rs, ok := e.store.RuleSet(guildID)
		if !ok {
			continue
		}
		proceed, abort := e.categoryGate(rs.EnableGyms, rs)
		if !proceed {
			if abort {
				return
			}
			continue
		}

		for _, rule := range rs.Alarms {
			f := rule.Filters.Gyms
			if f == nil || !f.Enabled {
				continue
			}
			if locate(g, rule) == nil {
				continue
			}
			e.trigger(ctx, g, rule, guildID)
		}
	}
}

func (e *Engine) processGymDetails(ctx context.Context, gd *events.GymDetails) {
	e.stats.Increment(metrics.CounterGymDetailsReceived)

	// The state diff runs at most once per event, after the first open
	// category gate. A first sighting seeds the tracker and never fires;
	// an unchanged repeat aborts for every guild, which is equivalent to
	// skipping them all.
	diffChecked := false

	for _, guildID := range e.store.GuildIDs() {
		rs, ok := e.store.RuleSet(guildID)
		if !ok {
			continue
		}
		proceed, abort := e.categoryGate(rs.EnableGyms, rs)
		if !proceed {
			if abort {
				return
			}
			continue
		}

		if !diffChecked {
			diffChecked = true
			status := tracking.GymStatus{Team: gd.Team, InBattle: gd.InBattle}
			if _, changed := e.gyms.Observe(gd.GymID, status); !changed {
				return
			}
		}

		for _, rule := range rs.Alarms {
			f := rule.Filters.Gyms
			if f == nil || !f.Enabled {
				continue
			}
			if locate(gd, rule) == nil {
				continue
			}
			if f.UnderAttack && !gd.InBattle {
				continue
			}
			if !matchesTeam(f.Team, gd.Team) {
				continue
			}
			e.trigger(ctx, gd, rule, guildID)
		}
	}
}

func (e *Engine) processWeather(ctx context.Context, w *events.Weather) {
	e.stats.Increment(metrics.CounterWeatherReceived)

	diffChecked := false

	for _, guildID := range e.store.GuildIDs() {
		rs, ok := e.store.RuleSet(guildID)
		if !ok {
			continue
		}
		proceed, abort := e.categoryGate(rs.EnableWeather, rs)
		if !proceed {
			if abort {
				return
			}
			continue
		}

		if !diffChecked {
			diffChecked = true
			if _, changed := e.weather.Observe(w.CellID, w.Condition); !changed {
				return
			}
		}

		// Weather has no per-category filter; every rule participates
		// through its geofence scope alone.
		for _, rule := range rs.Alarms {
			if locate(w, rule) == nil {
				continue
			}
			e.trigger(ctx, w, rule, guildID)
		}
	}
}
