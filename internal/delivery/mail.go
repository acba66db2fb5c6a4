package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nikoksr/notify"
	"github.com/nikoksr/notify/service/mail"

	"github.com/SilphSquad/Brock-WhMgr/internal/engine"
	"github.com/SilphSquad/Brock-WhMgr/internal/events"
)

// MailSink emails triggered alarms to a fixed recipient list over SMTP.
type MailSink struct {
	smtpHost     string
	smtpPort     int
	smtpUser     string
	smtpPassword string
	recipients   []string
}

// NewMailSink creates a mail sink. recipients must be non-empty.
func NewMailSink(smtpHost string, smtpPort int, smtpUser, smtpPassword string, recipients []string) (*MailSink, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("mail sink needs at least one recipient")
	}
	return &MailSink{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		recipients:   recipients,
	}, nil
}

// AlarmTriggered implements engine.Sink. Send failures are logged and
// swallowed.
func (m *MailSink) AlarmTriggered(ctx context.Context, t engine.Triggered) {
	subject := fmt.Sprintf("[WhMgr] %s: %s alarm fired", t.Rule.Name, t.Event.Category())
	body := describe(t)

	// Fresh mail service per send — nikoksr/notify accumulates receivers
	// across AddReceivers calls, so reusing would cause duplicate sends.
	mailSvc := mail.New(m.smtpUser, fmt.Sprintf("%s:%d", m.smtpHost, m.smtpPort))
	mailSvc.AuthenticateSMTP("", m.smtpUser, m.smtpPassword, m.smtpHost)
	mailSvc.AddReceivers(m.recipients...)

	notifier := notify.New()
	notifier.UseServices(mailSvc)

	if err := notifier.Send(ctx, subject, body); err != nil {
		slog.Error("Failed to send alarm mail",
			"alarm", t.Rule.Name,
			"guild_id", t.GuildID,
			"recipients", len(m.recipients),
			"error", err,
		)
		return
	}

	slog.Info("Alarm mail sent",
		"alarm", t.Rule.Name,
		"guild_id", t.GuildID,
		"recipients", len(m.recipients),
	)
}

// describe renders a plain-text summary of a triggered alarm.
func describe(t engine.Triggered) string {
	var b strings.Builder
	lat, lng := t.Event.Coordinates()
	fmt.Fprintf(&b, "Alarm: %s\nGuild: %d\nCategory: %s\nLocation: %.6f, %.6f\n",
		t.Rule.Name, t.GuildID, t.Event.Category(), lat, lng)

	switch ev := t.Event.(type) {
	case *events.Pokemon:
		fmt.Fprintf(&b, "Pokemon: #%d (form %d)\nIV: %.1f%%\nDespawns: %s\n",
			ev.PokemonID, ev.Form, ev.IV(), ev.DespawnTime.Format("15:04:05"))
	case *events.Raid:
		if ev.IsEgg() {
			fmt.Fprintf(&b, "Egg: level %s at %s\nHatches: %s\n",
				ev.Level, ev.GymName, ev.StartTime.Format("15:04:05"))
		} else {
			fmt.Fprintf(&b, "Raid boss: #%d (level %s) at %s\nEnds: %s\n",
				ev.PokemonID, ev.Level, ev.GymName, ev.EndTime.Format("15:04:05"))
		}
	case *events.Quest:
		fmt.Fprintf(&b, "Quest: %s\nReward: %s\nPokestop: %s\n",
			ev.Template, ev.Reward, ev.PokestopName)
	case *events.Pokestop:
		fmt.Fprintf(&b, "Pokestop: %s\n", ev.Name)
	case *events.Gym:
		fmt.Fprintf(&b, "Gym: %s\nTeam: %s\n", ev.Name, ev.Team)
	case *events.GymDetails:
		fmt.Fprintf(&b, "Gym: %s\nTeam: %s\nUnder attack: %t\n",
			ev.Name, ev.Team, ev.InBattle)
	case *events.Weather:
		fmt.Fprintf(&b, "Cell: %d\nCondition: %d\n", ev.CellID, ev.Condition)
	}
	return b.String()
}
