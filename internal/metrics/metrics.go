// Package metrics collects processing counters and periodically reports
// them to Redis, where operational tooling reads them. The collector is
// nil-safe: a nil *Collector accepts increments and does nothing, so the
// pipeline runs without Redis in development and tests.
package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Key is the Redis key the webhook manager's metrics are stored under.
	Key = "metrics:whmgr"
	// TTL is how long metrics stay in Redis if not refreshed.
	TTL = 2 * time.Minute
	// DefaultReportInterval is the default interval for writing metrics.
	DefaultReportInterval = 30 * time.Second
)

// Well-known counter names incremented by the pipeline.
const (
	CounterPokemonReceived      = "pokemon_received"
	CounterPokemonWithStats     = "pokemon_with_stats"
	CounterPokemonMissingStats  = "pokemon_missing_stats"
	CounterRaidsReceived        = "raids_received"
	CounterEggsReceived         = "eggs_received"
	CounterQuestsReceived       = "quests_received"
	CounterPokestopsReceived    = "pokestops_received"
	CounterGymsReceived         = "gyms_received"
	CounterGymDetailsReceived   = "gym_details_received"
	CounterWeatherReceived      = "weather_received"
	CounterAlarmsTriggered      = "alarms_triggered"
	CounterBatchesReceived      = "batches_received"
	CounterBatchesDropped       = "batches_dropped"
	CounterMessagesDropped      = "messages_dropped"
	CounterListenerRebinds      = "listener_rebinds"
)

// Snapshot is the serialized counter state written to Redis.
type Snapshot struct {
	StartedAt   time.Time         `json:"started_at"`
	LastUpdated time.Time         `json:"last_updated"`
	Counters    map[string]uint64 `json:"counters"`
}

// Collector keeps named monotonic counters and reports them to Redis.
type Collector struct {
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	mu       sync.RWMutex
	counters map[string]*atomic.Uint64
}

// NewCollector creates a collector reporting to the given Redis client.
// client may be nil; the collector then only serves in-process snapshots.
func NewCollector(client *redis.Client) *Collector {
	return &Collector{
		redis:          client,
		startedAt:      time.Now().UTC(),
		reportInterval: DefaultReportInterval,
		counters:       make(map[string]*atomic.Uint64),
	}
}

// SetReportInterval overrides the Redis report interval.
func (c *Collector) SetReportInterval(interval time.Duration) {
	c.reportInterval = interval
}

// Increment adds one to the named counter.
func (c *Collector) Increment(name string) {
	if c == nil {
		return
	}
	c.counter(name).Add(1)
}

func (c *Collector) counter(name string) *atomic.Uint64 {
	c.mu.RLock()
	counter, ok := c.counters[name]
	c.mu.RUnlock()
	if ok {
		return counter
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if counter, ok = c.counters[name]; !ok {
		counter = &atomic.Uint64{}
		c.counters[name] = counter
	}
	return counter
}

// Value returns the current value of the named counter.
func (c *Collector) Value(name string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if counter, ok := c.counters[name]; ok {
		return counter.Load()
	}
	return 0
}

// GetSnapshot returns the current counter state.
func (c *Collector) GetSnapshot() *Snapshot {
	c.mu.RLock()
	counters := make(map[string]uint64, len(c.counters))
	for name, counter := range c.counters {
		counters[name] = counter.Load()
	}
	c.mu.RUnlock()

	return &Snapshot{
		StartedAt:   c.startedAt,
		LastUpdated: time.Now().UTC(),
		Counters:    counters,
	}
}

// Start begins periodic reporting to Redis. It returns immediately; the
// report loop exits when ctx is cancelled, after one final write.
func (c *Collector) Start(ctx context.Context) {
	if c == nil || c.redis == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.write(context.Background())
				return
			case <-ticker.C:
				c.write(ctx)
			}
		}
	}()
}

func (c *Collector) write(ctx context.Context) {
	snap := c.GetSnapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Failed to marshal metrics", "error", err)
		return
	}
	if err := c.redis.Set(ctx, Key, data, TTL).Err(); err != nil {
		slog.Error("Failed to write metrics to Redis", "error", err)
		return
	}
	slog.Debug("Metrics written to Redis", "key", Key)
}
