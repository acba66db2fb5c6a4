// Package config provides configuration parsing and validation for the
// webhook manager.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration parameters for the webhook manager.
type Config struct {
	// ListenAddr is the webhook HTTP listen address.
	ListenAddr string
	// GuildRules maps guild ids to their alarm rule file paths, parsed
	// from "id=path,id=path" form.
	GuildRules string
	// GatePolicy selects the category-gate behavior: "abort-all" or
	// "skip-guild".
	GatePolicy string

	SkipEggs  bool
	DSTAdjust bool

	// WatchInterval is how often rule files are polled for changes.
	WatchInterval time.Duration
	// RebindPause is the fixed wait between listener rebind attempts.
	RebindPause time.Duration

	// KafkaBrokers enables the Kafka delivery sink when non-empty.
	KafkaBrokers string
	AlarmsTopic  string

	// RedisAddr enables metrics reporting when non-empty.
	RedisAddr string

	// MailRecipients enables the SMTP delivery sink when non-empty
	// (comma-separated addresses).
	MailRecipients string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
}

// Validate checks that all required configuration fields are set and have
// valid values. Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen-addr cannot be empty")
	}
	if c.GuildRules == "" {
		return fmt.Errorf("guild-rules cannot be empty")
	}
	if _, err := ParseGuildRules(c.GuildRules); err != nil {
		return fmt.Errorf("guild-rules: %w", err)
	}
	switch c.GatePolicy {
	case "", "abort-all", "skip-guild":
	default:
		return fmt.Errorf("gate-policy must be abort-all or skip-guild, got %q", c.GatePolicy)
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("watch-interval must be > 0")
	}
	if c.RebindPause <= 0 {
		return fmt.Errorf("rebind-pause must be > 0")
	}
	if c.KafkaBrokers != "" && c.AlarmsTopic == "" {
		return fmt.Errorf("alarms-topic cannot be empty when kafka-brokers is set")
	}
	if c.MailRecipients != "" {
		if c.SMTPHost == "" {
			return fmt.Errorf("smtp-host cannot be empty when mail-recipients is set")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return fmt.Errorf("smtp-port must be in 1..65535, got %d", c.SMTPPort)
		}
	}
	return nil
}

// ParseGuildRules parses a "guildID=path,guildID=path" mapping.
func ParseGuildRules(s string) (map[uint64]string, error) {
	out := make(map[uint64]string)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, path, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q is not guildID=path", entry)
		}
		guildID, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: bad guild id: %w", entry, err)
		}
		path = strings.TrimSpace(path)
		if path == "" {
			return nil, fmt.Errorf("entry %q: empty path", entry)
		}
		if _, dup := out[guildID]; dup {
			return nil, fmt.Errorf("guild %d mapped twice", guildID)
		}
		out[guildID] = path
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no guild mappings")
	}
	return out, nil
}

// ParseRecipients splits a comma-separated address list.
func ParseRecipients(s string) []string {
	var out []string
	for _, addr := range strings.Split(s, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// LoadEnv loads a .env file into the process environment if one exists.
// A missing file is not an error; anything else is reported so a broken
// file does not silently fall back to defaults.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}
}

// EnvOrDefault returns the environment variable's value, or def when unset.
func EnvOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// EnvIntOrDefault returns the environment variable parsed as an int, or def
// when unset or unparsable.
func EnvIntOrDefault(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s=%q is not an integer, using %d\n", key, v, def)
		return def
	}
	return n
}
