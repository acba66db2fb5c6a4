package alarms

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Watcher triggers a store reload whenever a guild's rule file changes on
// disk. One goroutine per guild polls the file's modification time; a poll
// or reload failure is logged and the watcher keeps going.
type Watcher struct {
	store    *Store
	interval time.Duration
}

// NewWatcher creates a watcher over the store's configured rule files.
func NewWatcher(store *Store, interval time.Duration) *Watcher {
	return &Watcher{store: store, interval: interval}
}

// Start launches one watch goroutine per configured guild. The goroutines
// exit when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	for _, guildID := range w.store.GuildIDs() {
		path, _ := w.store.File(guildID)
		go w.watch(ctx, guildID, path)
	}
}

func (w *Watcher) watch(ctx context.Context, guildID uint64, path string) {
	var lastMod time.Time
	if info, err := os.Stat(path); err == nil {
		lastMod = info.ModTime()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Watching guild rule file",
		"guild_id", guildID,
		"file", path,
		"poll_interval", w.interval,
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				slog.Warn("Failed to stat rule file",
					"guild_id", guildID,
					"file", path,
					"error", err,
				)
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			lastMod = info.ModTime()

			slog.Info("Rule file changed, reloading",
				"guild_id", guildID,
				"file", path,
			)
			if err := w.store.Reload(guildID); err != nil {
				slog.Error("Reload failed, keeping previous rule set",
					"guild_id", guildID,
					"error", err,
				)
			}
		}
	}
}
