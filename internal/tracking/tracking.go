// Package tracking remembers the last observed value per tracked entity so
// the engine can alert on transitions instead of every report.
package tracking

import (
	"sync"

	"github.com/SilphSquad/Brock-WhMgr/internal/events"
)

// GymStatus is the tracked state of a gym: controlling team and whether it
// is currently under attack.
type GymStatus struct {
	Team     events.Team
	InBattle bool
}

// Tracker maps entity ids to their last observed value. Entries are created
// on first sighting and replaced on every later observation; nothing is ever
// evicted, so memory grows with the number of distinct entities scanned.
// That population (gyms and weather cells of a scan area) is bounded in
// practice; callers needing a hard cap must enforce it externally.
type Tracker[K comparable, V comparable] struct {
	mu   sync.Mutex
	seen map[K]V
}

// NewTracker creates an empty tracker.
func NewTracker[K comparable, V comparable]() *Tracker[K, V] {
	return &Tracker[K, V]{seen: make(map[K]V)}
}

// Observe records value for id and reports the previously stored value and
// whether it differed. An unseen id is seeded with value and reported as
// unchanged, so the first sighting of any entity can never trigger an alert.
func (t *Tracker[K, V]) Observe(id K, value V) (previous V, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.seen[id]
	if !ok {
		t.seen[id] = value
		return value, false
	}
	t.seen[id] = value
	return prev, prev != value
}

// Len returns the number of tracked entities.
func (t *Tracker[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
