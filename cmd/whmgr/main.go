package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SilphSquad/Brock-WhMgr/internal/alarms"
	"github.com/SilphSquad/Brock-WhMgr/internal/config"
	"github.com/SilphSquad/Brock-WhMgr/internal/delivery"
	"github.com/SilphSquad/Brock-WhMgr/internal/engine"
	"github.com/SilphSquad/Brock-WhMgr/internal/geofence"
	"github.com/SilphSquad/Brock-WhMgr/internal/metrics"
	"github.com/SilphSquad/Brock-WhMgr/internal/webhook"
)

func main() {
	config.LoadEnv()

	// Parse command-line flags; environment variables provide the defaults
	// so containerized deployments can skip the flag plumbing.
	cfg := &config.Config{}
	flag.StringVar(&cfg.ListenAddr, "listen-addr", config.EnvOrDefault("WHMGR_LISTEN_ADDR", ":8008"), "Webhook HTTP listen address")
	flag.StringVar(&cfg.GuildRules, "guild-rules", config.EnvOrDefault("WHMGR_GUILD_RULES", ""), "Guild rule files as guildID=path,guildID=path")
	flag.StringVar(&cfg.GatePolicy, "gate-policy", config.EnvOrDefault("WHMGR_GATE_POLICY", "abort-all"), "Category gate policy: abort-all or skip-guild")
	flag.BoolVar(&cfg.SkipEggs, "skip-eggs", config.EnvOrDefault("WHMGR_SKIP_EGGS", "") == "true", "Drop raid eggs before evaluation")
	flag.BoolVar(&cfg.DSTAdjust, "dst-adjust", config.EnvOrDefault("WHMGR_DST_ADJUST", "") == "true", "Shift scanner timestamps forward one hour")
	flag.DurationVar(&cfg.WatchInterval, "watch-interval", 15*time.Second, "Rule file poll interval")
	flag.DurationVar(&cfg.RebindPause, "rebind-pause", 2*time.Second, "Pause between listener rebind attempts")
	flag.StringVar(&cfg.KafkaBrokers, "kafka-brokers", config.EnvOrDefault("WHMGR_KAFKA_BROKERS", ""), "Kafka broker addresses (comma-separated, empty disables)")
	flag.StringVar(&cfg.AlarmsTopic, "alarms-topic", config.EnvOrDefault("WHMGR_ALARMS_TOPIC", "alarms.triggered"), "Kafka topic for triggered alarms")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", config.EnvOrDefault("WHMGR_REDIS_ADDR", ""), "Redis server address for metrics (empty disables)")
	flag.StringVar(&cfg.MailRecipients, "mail-recipients", config.EnvOrDefault("WHMGR_MAIL_RECIPIENTS", ""), "Alarm mail recipients (comma-separated, empty disables)")
	flag.StringVar(&cfg.SMTPHost, "smtp-host", config.EnvOrDefault("WHMGR_SMTP_HOST", ""), "SMTP server host")
	flag.IntVar(&cfg.SMTPPort, "smtp-port", config.EnvIntOrDefault("WHMGR_SMTP_PORT", 587), "SMTP server port")
	flag.StringVar(&cfg.SMTPUser, "smtp-user", config.EnvOrDefault("WHMGR_SMTP_USER", ""), "SMTP user / sender address")
	flag.StringVar(&cfg.SMTPPassword, "smtp-password", config.EnvOrDefault("WHMGR_SMTP_PASSWORD", ""), "SMTP password")
	flag.Parse()

	// Set up structured logging
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	slog.Info("Starting webhook manager",
		"listen_addr", cfg.ListenAddr,
		"gate_policy", cfg.GatePolicy,
		"skip_eggs", cfg.SkipEggs,
		"dst_adjust", cfg.DSTAdjust,
		"watch_interval", cfg.WatchInterval,
		"kafka_brokers", cfg.KafkaBrokers,
		"redis_addr", cfg.RedisAddr,
	)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	guildFiles, _ := config.ParseGuildRules(cfg.GuildRules)
	policy, _ := engine.ParseGatePolicy(cfg.GatePolicy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	// Metrics: Redis-backed when configured, in-process only otherwise.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		slog.Info("Connecting to Redis", "addr", cfg.RedisAddr)
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		slog.Info("Successfully connected to Redis")
	}
	stats := metrics.NewCollector(redisClient)
	stats.Start(ctx)

	// Load alarm rules and start watching the files for changes.
	pool := geofence.NewPool()
	store := alarms.NewStore(pool, guildFiles)
	store.LoadAll()
	slog.Info("Alarm rules loaded", "guilds", len(store.GuildIDs()), "geofences", pool.Len())

	watcher := alarms.NewWatcher(store, cfg.WatchInterval)
	watcher.Start(ctx)

	// Assemble delivery sinks. The log sink is always on.
	sinks := delivery.Fanout{delivery.LogSink{}}
	if cfg.KafkaBrokers != "" {
		producer, err := delivery.NewProducer(cfg.KafkaBrokers, cfg.AlarmsTopic)
		if err != nil {
			slog.Error("Failed to create Kafka producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		sinks = append(sinks, producer)
	}
	if cfg.MailRecipients != "" {
		mailSink, err := delivery.NewMailSink(
			cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword,
			config.ParseRecipients(cfg.MailRecipients),
		)
		if err != nil {
			slog.Error("Failed to create mail sink", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, mailSink)
	}

	eng := engine.New(store, sinks, stats, policy)

	listener := webhook.NewListener(webhook.Config{
		Addr:        cfg.ListenAddr,
		DSTAdjust:   cfg.DSTAdjust,
		SkipEggs:    cfg.SkipEggs,
		RebindPause: cfg.RebindPause,
	}, eng, stats)

	if err := listener.Run(ctx); err != nil {
		slog.Error("Webhook listener failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Webhook manager stopped")
}
