// Package webhook accepts scanner push batches over HTTP, decodes the
// tagged messages inside them into typed game events, and hands the events
// to the router. The listener survives transport faults by tearing the
// server down and rebinding rather than exiting.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/SilphSquad/Brock-WhMgr/internal/events"
	"github.com/SilphSquad/Brock-WhMgr/internal/metrics"
)

// ackBody is the fixed acknowledgement returned for every request, however
// many inner messages failed to decode. The scanner treats anything else as
// a transport failure and retries aggressively.
const ackBody = "WH OK"

// maxPayloadCapture bounds how much of a bad payload ends up in the log.
const maxPayloadCapture = 512

// DefaultTypeTags maps the scanner's message type tags to event categories.
// The tag strings are an integration detail of the scanning service, so a
// deployment can override the table wholesale.
var DefaultTypeTags = map[string]events.Category{
	"pokemon":     events.CategoryPokemon,
	"raid":        events.CategoryRaid,
	"quest":       events.CategoryQuest,
	"pokestop":    events.CategoryPokestop,
	"invasion":    events.CategoryPokestop,
	"gym":         events.CategoryGym,
	"gym_details": events.CategoryGymDetails,
	"weather":     events.CategoryWeather,
}

// EventHandler consumes decoded events; the router implements it.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev events.GameEvent)
}

// Config holds the listener's settings.
type Config struct {
	// Addr is the listen address, e.g. ":8008".
	Addr string
	// DSTAdjust shifts scanner timestamps forward one hour.
	DSTAdjust bool
	// SkipEggs drops raid events that have no assigned boss before they
	// are published.
	SkipEggs bool
	// TypeTags overrides DefaultTypeTags when non-nil.
	TypeTags map[string]events.Category
	// RebindPause is the fixed wait between fault-recovery attempts.
	// There is deliberately no backoff; see Run.
	RebindPause time.Duration
}

// Listener is the webhook HTTP endpoint.
type Listener struct {
	cfg     Config
	tags    map[string]events.Category
	handler EventHandler
	stats   *metrics.Collector
	now     func() time.Time
}

// NewListener creates a listener publishing decoded events into handler.
// stats may be nil.
func NewListener(cfg Config, handler EventHandler, stats *metrics.Collector) *Listener {
	tags := cfg.TypeTags
	if tags == nil {
		tags = DefaultTypeTags
	}
	if cfg.RebindPause <= 0 {
		cfg.RebindPause = 2 * time.Second
	}
	return &Listener{
		cfg:     cfg,
		tags:    tags,
		handler: handler,
		stats:   stats,
		now:     time.Now,
	}
}

// Run binds the listen address and serves until ctx is cancelled. The
// initial bind failing is fatal and returned to the caller; any later
// serve fault triggers a full teardown and rebind with a fixed pause
// between attempts, retried indefinitely. The recovery path is best-effort
// by design: no backoff, no attempt cap.
func (l *Listener) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.cfg.Addr)
	if err != nil {
		return fmt.Errorf("bind webhook listener on %s: %w", l.cfg.Addr, err)
	}
	slog.Info("Webhook listener started", "addr", l.cfg.Addr)

	for {
		srv := l.newServer()
		serveErr := make(chan error, 1)
		go func() { serveErr <- srv.Serve(ln) }()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			slog.Info("Webhook listener stopped")
			return nil

		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) || ctx.Err() != nil {
				return nil
			}
			slog.Error("Webhook listener fault, rebinding", "error", err)
			l.stats.Increment(metrics.CounterListenerRebinds)
			_ = srv.Close()
			_ = ln.Close()

			ln = l.rebind(ctx)
			if ln == nil {
				return nil
			}
			slog.Info("Webhook listener rebound", "addr", l.cfg.Addr)
		}
	}
}

// rebind re-creates the TCP listener, retrying forever with the configured
// fixed pause. Returns nil only when ctx is cancelled.
func (l *Listener) rebind(ctx context.Context) net.Listener {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.cfg.RebindPause):
		}
		ln, err := net.Listen("tcp", l.cfg.Addr)
		if err != nil {
			slog.Error("Rebind failed, retrying", "addr", l.cfg.Addr, "error", err)
			continue
		}
		return ln
	}
}

func (l *Listener) newServer() *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handleWebhook)
	return &http.Server{
		Handler: mux,
		// No ReadTimeout: batches can be arbitrarily large.
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// wireMessage is one tagged entry of a webhook batch.
type wireMessage struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// handleWebhook reads the full batch, processes what it can, and always
// acknowledges: decode isolation is opaque to the scanner.
func (l *Listener) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Failed to read webhook body", "error", err)
	} else {
		l.handleBatch(r.Context(), body)
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ackBody))
}

func (l *Listener) handleBatch(ctx context.Context, body []byte) {
	l.stats.Increment(metrics.CounterBatchesReceived)

	var batch []wireMessage
	if err := json.Unmarshal(body, &batch); err != nil {
		slog.Error("Dropping unparsable webhook batch",
			"error", err,
			"payload", capture(body),
		)
		l.stats.Increment(metrics.CounterBatchesDropped)
		return
	}

	for _, msg := range batch {
		l.dispatch(ctx, msg)
	}
}

// dispatch decodes and publishes one message. Failure is isolated here:
// a bad message never affects its batch siblings.
func (l *Listener) dispatch(ctx context.Context, msg wireMessage) {
	category, ok := l.tags[msg.Type]
	if !ok {
		// Unknown types are silently ignored.
		return
	}

	ev, err := l.decode(category, msg.Message)
	if err != nil {
		slog.Error("Dropping undecodable webhook message",
			"type", msg.Type,
			"error", err,
			"payload", capture(msg.Message),
		)
		l.stats.Increment(metrics.CounterMessagesDropped)
		return
	}
	if ev == nil {
		return
	}
	l.handler.HandleEvent(ctx, ev)
}

// decode maps a category to its decoder and applies receive-time drops:
// expired spawns and raids, boss-less raids under SkipEggs, and pokestop
// updates carrying neither a lure nor an invasion. A nil, nil return means
// the message was valid but intentionally not published.
func (l *Listener) decode(category events.Category, raw json.RawMessage) (events.GameEvent, error) {
	now := l.now()

	switch category {
	case events.CategoryPokemon:
		p, err := events.DecodePokemon(raw, l.cfg.DSTAdjust)
		if err != nil {
			return nil, err
		}
		if now.After(p.DespawnTime) {
			slog.Debug("Pokemon already despawned", "pokemon_id", p.PokemonID, "despawn", p.DespawnTime)
			return nil, nil
		}
		return p, nil

	case events.CategoryRaid:
		r, err := events.DecodeRaid(raw, l.cfg.DSTAdjust)
		if err != nil {
			return nil, err
		}
		if l.cfg.SkipEggs && r.IsEgg() {
			slog.Debug("Skipping raid egg", "gym_id", r.GymID, "level", r.Level)
			return nil, nil
		}
		if now.After(r.EndTime) {
			slog.Debug("Raid already ended", "gym_id", r.GymID, "end", r.EndTime)
			return nil, nil
		}
		return r, nil

	case events.CategoryQuest:
		return events.DecodeQuest(raw)

	case events.CategoryPokestop:
		p, err := events.DecodePokestop(raw, l.cfg.DSTAdjust)
		if err != nil {
			return nil, err
		}
		if !p.HasLure(now) && !p.HasInvasion(now) {
			return nil, nil
		}
		return p, nil

	case events.CategoryGym:
		return events.DecodeGym(raw)

	case events.CategoryGymDetails:
		return events.DecodeGymDetails(raw)

	case events.CategoryWeather:
		return events.DecodeWeather(raw)
	}
	return nil, fmt.Errorf("no decoder for category %q", category)
}

// capture returns a bounded prefix of a raw payload for diagnostics.
func capture(b []byte) string {
	if len(b) > maxPayloadCapture {
		return string(b[:maxPayloadCapture]) + "...(truncated)"
	}
	return string(b)
}
