package delivery

import (
	"context"
	"log/slog"

	"github.com/SilphSquad/Brock-WhMgr/internal/engine"
)

// Fanout forwards each triggered alarm to every wrapped sink in order.
type Fanout []engine.Sink

// AlarmTriggered implements engine.Sink.
func (f Fanout) AlarmTriggered(ctx context.Context, t engine.Triggered) {
	for _, s := range f {
		s.AlarmTriggered(ctx, t)
	}
}

// LogSink writes triggered alarms to the structured log. It is the fallback
// delivery target when no Kafka brokers or mail recipients are configured,
// and is always useful alongside real sinks in development.
type LogSink struct{}

// AlarmTriggered implements engine.Sink.
func (LogSink) AlarmTriggered(_ context.Context, t engine.Triggered) {
	lat, lng := t.Event.Coordinates()
	slog.Info("Alarm triggered",
		"alarm", t.Rule.Name,
		"guild_id", t.GuildID,
		"category", t.Event.Category(),
		"lat", lat,
		"lng", lng,
	)
}
