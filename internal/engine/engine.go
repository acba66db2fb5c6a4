// Package engine routes decoded game events across every guild's alarm
// rules and emits a triggered alarm for each rule an event fully satisfies.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/SilphSquad/Brock-WhMgr/internal/alarms"
	"github.com/SilphSquad/Brock-WhMgr/internal/events"
	"github.com/SilphSquad/Brock-WhMgr/internal/metrics"
	"github.com/SilphSquad/Brock-WhMgr/internal/tracking"
)

// Triggered is one fired alarm: the event that satisfied the rule, the rule
// itself, and the guild it fired for.
type Triggered struct {
	Event   events.GameEvent
	Rule    *alarms.Rule
	GuildID uint64
}

// Sink receives triggered alarms. Delivery (chat posts, mail, queues) is
// entirely behind this interface.
type Sink interface {
	AlarmTriggered(ctx context.Context, t Triggered)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, t Triggered)

func (f SinkFunc) AlarmTriggered(ctx context.Context, t Triggered) { f(ctx, t) }

// GatePolicy controls what happens when a guild's category gate closes
// (category disabled, or the guild has zero rules).
//
// GateAbortAll is the historical behavior: the whole event is abandoned,
// including for guilds not yet visited. That conflation of "skip this guild"
// with "skip everyone" is surprising but observable, so it stays the
// default; GateSkipGuild is the corrected variant that only skips the gated
// guild.
type GatePolicy int

const (
	GateAbortAll GatePolicy = iota
	GateSkipGuild
)

// ParseGatePolicy maps a configuration string to a GatePolicy.
func ParseGatePolicy(s string) (GatePolicy, error) {
	switch s {
	case "", "abort-all":
		return GateAbortAll, nil
	case "skip-guild":
		return GateSkipGuild, nil
	}
	return 0, fmt.Errorf("unknown gate policy %q", s)
}

// Engine fans each event out over the guilds in the rule store. Guilds are
// visited in ascending id order so the abort-all gate is deterministic.
type Engine struct {
	store   *alarms.Store
	gyms    *tracking.Tracker[string, tracking.GymStatus]
	weather *tracking.Tracker[int64, events.WeatherCondition]
	sink    Sink
	stats   *metrics.Collector
	policy  GatePolicy

	// now is stubbed in tests; pokestop lure/invasion predicates are
	// relative to the current time.
	now func() time.Time
}

// New creates an engine over the given rule store, emitting into sink.
// stats may be nil.
func New(store *alarms.Store, sink Sink, stats *metrics.Collector, policy GatePolicy) *Engine {
	return &Engine{
		store:   store,
		gyms:    tracking.NewTracker[string, tracking.GymStatus](),
		weather: tracking.NewTracker[int64, events.WeatherCondition](),
		sink:    sink,
		stats:   stats,
		policy:  policy,
		now:     time.Now,
	}
}

// HandleEvent evaluates one decoded event against every guild's rules.
// It never blocks on I/O beyond what the sink does and never returns an
// error: an event either triggers alarms or it does not.
func (e *Engine) HandleEvent(ctx context.Context, ev events.GameEvent) {
	switch v := ev.(type) {
	case *events.Pokemon:
		e.processPokemon(ctx, v)
	case *events.Raid:
		e.processRaid(ctx, v)
	case *events.Quest:
		e.processQuest(ctx, v)
	case *events.Pokestop:
		e.processPokestop(ctx, v)
	case *events.Gym:
		e.processGym(ctx, v)
	case *events.GymDetails:
		e.processGymDetails(ctx, v)
	case *events.Weather:
		e.processWeather(ctx, v)
	}
}

// categoryGate decides whether evaluation proceeds for a guild. When it
// does not, abortEvent reports whether the rest of the fan-out is abandoned
// too (GateAbortAll) or only this guild is skipped (GateSkipGuild).
func (e *Engine) categoryGate(enabled bool, rs *alarms.RuleSet) (proceed, abortEvent bool) {
	if enabled && len(rs.Alarms) > 0 {
		return true, false
	}
	return false, e.policy == GateAbortAll
}

func (e *Engine) trigger(ctx context.Context, ev events.GameEvent, rule *alarms.Rule, guildID uint64) {
	e.stats.Increment(metrics.CounterAlarmsTriggered)
	e.sink.AlarmTriggered(ctx, Triggered{Event: ev, Rule: rule, GuildID: guildID})
}
