// Package delivery carries triggered alarms out of the process: a Kafka
// producer for downstream consumers, an SMTP mail sink for direct operator
// notification, and a log-only fallback. Everything implements engine.Sink
// so delivery targets compose freely.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/SilphSquad/Brock-WhMgr/internal/engine"
)

// writeTimeout is the maximum time to wait for a Kafka write operation.
const writeTimeout = 10 * time.Second

// alarmMessage is the wire form of one triggered alarm.
type alarmMessage struct {
	AlarmID  string `json:"alarm_id"`
	GuildID  uint64 `json:"guild_id"`
	Alarm    string `json:"alarm"`
	Category string `json:"category"`
	Event    any    `json:"event"`
	FiredAt  int64  `json:"fired_at"`
}

// Producer publishes triggered alarms to a Kafka topic, keyed by guild id
// so one guild's alarms stay in partition order.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a producer over a comma-separated broker list.
// Writes are synchronous with leader acks for at-least-once delivery.
func NewProducer(brokers string, topic string) (*Producer, error) {
	if brokers == "" {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	slog.Info("Initializing Kafka producer", "brokers", brokerList, "topic", topic)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{writer: writer, topic: topic}, nil
}

// AlarmTriggered implements engine.Sink. Publish failures are logged and
// swallowed: delivery never stalls event evaluation.
func (p *Producer) AlarmTriggered(ctx context.Context, t engine.Triggered) {
	msg := alarmMessage{
		AlarmID:  uuid.NewString(),
		GuildID:  t.GuildID,
		Alarm:    t.Rule.Name,
		Category: string(t.Event.Category()),
		Event:    t.Event,
		FiredAt:  time.Now().Unix(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal triggered alarm",
			"alarm", t.Rule.Name,
			"guild_id", t.GuildID,
			"error", err,
		)
		return
	}

	kmsg := kafka.Message{
		Key:   []byte(strconv.FormatUint(t.GuildID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "alarm_id", Value: []byte(msg.AlarmID)},
			{Key: "category", Value: []byte(msg.Category)},
		},
	}

	if err := p.writer.WriteMessages(ctx, kmsg); err != nil {
		slog.Error("Failed to publish triggered alarm",
			"alarm", t.Rule.Name,
			"guild_id", t.GuildID,
			"topic", p.topic,
			"error", err,
		)
		return
	}

	slog.Debug("Alarm published",
		"alarm_id", msg.AlarmID,
		"alarm", t.Rule.Name,
		"guild_id", t.GuildID,
		"category", msg.Category,
	)
}

// Close flushes and closes the Kafka writer.
func (p *Producer) Close() error {
	slog.Info("Closing Kafka producer", "topic", p.topic)
	return p.writer.Close()
}
