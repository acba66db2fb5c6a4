package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		ListenAddr:    ":8008",
		GuildRules:    "123=/etc/whmgr/main.json",
		GatePolicy:    "abort-all",
		WatchInterval: 15 * time.Second,
		RebindPause:   2 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty listen addr", mutate: func(c *Config) { c.ListenAddr = "" }, wantErr: true},
		{name: "empty guild rules", mutate: func(c *Config) { c.GuildRules = "" }, wantErr: true},
		{name: "malformed guild rules", mutate: func(c *Config) { c.GuildRules = "abc" }, wantErr: true},
		{name: "bad gate policy", mutate: func(c *Config) { c.GatePolicy = "maybe" }, wantErr: true},
		{name: "skip-guild policy", mutate: func(c *Config) { c.GatePolicy = "skip-guild" }},
		{name: "zero watch interval", mutate: func(c *Config) { c.WatchInterval = 0 }, wantErr: true},
		{name: "zero rebind pause", mutate: func(c *Config) { c.RebindPause = 0 }, wantErr: true},
		{
			name: "kafka without topic",
			mutate: func(c *Config) {
				c.KafkaBrokers = "localhost:9092"
				c.AlarmsTopic = ""
			},
			wantErr: true,
		},
		{
			name: "mail without smtp host",
			mutate: func(c *Config) {
				c.MailRecipients = "ops@example.com"
			},
			wantErr: true,
		},
		{
			name: "mail with bad port",
			mutate: func(c *Config) {
				c.MailRecipients = "ops@example.com"
				c.SMTPHost = "smtp.example.com"
				c.SMTPPort = 0
			},
			wantErr: true,
		},
		{
			name: "mail fully configured",
			mutate: func(c *Config) {
				c.MailRecipients = "ops@example.com"
				c.SMTPHost = "smtp.example.com"
				c.SMTPPort = 587
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseGuildRules(t *testing.T) {
	t.Run("multiple guilds", func(t *testing.T) {
		got, err := ParseGuildRules("123=/a.json, 456=/b.json")
		if err != nil {
			t.Fatalf("ParseGuildRules() error = %v", err)
		}
		if len(got) != 2 || got[123] != "/a.json" || got[456] != "/b.json" {
			t.Errorf("got %v", got)
		}
	})

	tests := []struct {
		name  string
		input string
	}{
		{name: "no separator", input: "123"},
		{name: "bad guild id", input: "abc=/a.json"},
		{name: "empty path", input: "123="},
		{name: "duplicate guild", input: "123=/a.json,123=/b.json"},
		{name: "all entries blank", input: ", ,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGuildRules(tt.input); err == nil {
				t.Errorf("ParseGuildRules(%q) should fail", tt.input)
			}
		})
	}
}

func TestEnvIntOrDefault(t *testing.T) {
	t.Run("unset returns default", func(t *testing.T) {
		if got := EnvIntOrDefault("WHMGR_TEST_UNSET_PORT", 587); got != 587 {
			t.Errorf("EnvIntOrDefault() = %d, want 587", got)
		}
	})

	t.Run("set value parsed", func(t *testing.T) {
		t.Setenv("WHMGR_TEST_PORT", "2525")
		if got := EnvIntOrDefault("WHMGR_TEST_PORT", 587); got != 2525 {
			t.Errorf("EnvIntOrDefault() = %d, want 2525", got)
		}
	})

	t.Run("unparsable falls back to default", func(t *testing.T) {
		t.Setenv("WHMGR_TEST_PORT", "not-a-port")
		if got := EnvIntOrDefault("WHMGR_TEST_PORT", 587); got != 587 {
			t.Errorf("EnvIntOrDefault() = %d, want fallback 587", got)
		}
	})
}

func TestParseRecipients(t *testing.T) {
	got := ParseRecipients(" a@x.com ,, b@x.com ")
	if len(got) != 2 || got[0] != "a@x.com" || got[1] != "b@x.com" {
		t.Errorf("ParseRecipients() = %v", got)
	}
	if got := ParseRecipients(""); got != nil {
		t.Errorf("ParseRecipients(\"\") = %v, want nil", got)
	}
}
