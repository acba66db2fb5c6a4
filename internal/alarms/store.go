package alarms

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/SilphSquad/Brock-WhMgr/internal/geofence"
)

// Store serves each guild's active rule set. Reloads build a complete new
// RuleSet and swap the guild's pointer under the write lock, so readers
// either see the old set or the new one, never a partial mix. A failed
// reload leaves the previous set in force.
type Store struct {
	pool  *geofence.Pool
	files map[uint64]string

	mu   sync.RWMutex
	sets map[uint64]*RuleSet
}

// NewStore creates a store over the given guild-id → rule-file mapping.
// Rule sets are not loaded until LoadAll or Reload is called.
func NewStore(pool *geofence.Pool, files map[uint64]string) *Store {
	f := make(map[uint64]string, len(files))
	for guildID, path := range files {
		f[guildID] = path
	}
	return &Store{
		pool:  pool,
		files: f,
		sets:  make(map[uint64]*RuleSet),
	}
}

// LoadAll loads every guild's rule file. Individual failures are logged and
// leave that guild without rules; they do not abort startup.
func (s *Store) LoadAll() {
	for _, guildID := range s.GuildIDs() {
		if err := s.Reload(guildID); err != nil {
			slog.Error("Failed to load guild alarms",
				"guild_id", guildID,
				"error", err,
			)
		}
	}
}

// Reload loads the guild's rule file and atomically swaps its active rule
// set. On failure the previously active set (if any) stays in force.
func (s *Store) Reload(guildID uint64) error {
	path, ok := s.files[guildID]
	if !ok {
		return fmt.Errorf("no rule file configured for guild %d", guildID)
	}

	rs, err := Load(path, s.pool)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sets[guildID] = rs
	s.mu.Unlock()

	slog.Info("Guild alarms loaded",
		"guild_id", guildID,
		"file", path,
		"alarms", len(rs.Alarms),
	)
	return nil
}

// RuleSet returns the guild's active rule set. The returned set is an
// immutable snapshot; it stays valid across concurrent reloads.
func (s *Store) RuleSet(guildID uint64) (*RuleSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.sets[guildID]
	return rs, ok
}

// GuildIDs returns all configured guild ids in ascending order. The engine
// fans events out in this order, which makes the abort-all gate semantics
// deterministic.
func (s *Store) GuildIDs() []uint64 {
	ids := make([]uint64, 0, len(s.files))
	for guildID := range s.files {
		ids = append(ids, guildID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// File returns the rule file path configured for a guild.
func (s *Store) File(guildID uint64) (string, bool) {
	path, ok := s.files[guildID]
	return path, ok
}
