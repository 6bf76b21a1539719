package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventregistry/internal/domain"
)

const channelEmail = "email"

type messageData struct {
	Name            string
	EventTitle      string
	StartsAt        time.Time
	RegistrationID  string
	AwaitingPayment bool
}

// Notifier turns registration notifications into plain-text emails and
// records every delivery attempt in notification_logs.
type Notifier struct {
	repos    domain.Repositories
	mailer   domain.Mailer
	renderer *Renderer
	clock    domain.Clock
	log      *slog.Logger
}

// NewNotifier wires a notifier. repos must provide Users, Events,
// Registrations and NotificationLogs.
func NewNotifier(repos domain.Repositories, mailer domain.Mailer, renderer *Renderer, clock domain.Clock, logger *slog.Logger) *Notifier {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{repos: repos, mailer: mailer, renderer: renderer, clock: clock, log: logger}
}

func (n *Notifier) Notify(ctx context.Context, note domain.Notification) error {
	user, err := n.repos.Users.GetByID(ctx, note.UserID)
	if err != nil {
		n.record(ctx, note, domain.NotificationFailed, err)
		return fmt.Errorf("load recipient: %w", err)
	}
	if user.Email == "" {
		n.record(ctx, note, domain.NotificationSkipped, nil)
		return nil
	}
	event, err := n.repos.Events.GetByID(ctx, note.EventID)
	if err != nil {
		n.record(ctx, note, domain.NotificationFailed, err)
		return fmt.Errorf("load event: %w", err)
	}

	data := messageData{
		Name:           user.Name,
		EventTitle:     event.Title,
		StartsAt:       event.StartsAt,
		RegistrationID: note.RegistrationID,
	}
	if note.RegistrationID != "" {
		reg, err := n.repos.Registrations.GetByID(ctx, note.RegistrationID)
		if err != nil {
			n.record(ctx, note, domain.NotificationFailed, err)
			return fmt.Errorf("load registration: %w", err)
		}
		data.AwaitingPayment = reg.Status == domain.RegistrationPending
	}
	if data.Name == "" {
		data.Name = user.Email
	}

	subject, text, err := n.renderer.Render(string(note.Type), data)
	if err != nil {
		n.record(ctx, note, domain.NotificationFailed, err)
		return err
	}
	if err := n.mailer.Send(ctx, user.Email, subject, text); err != nil {
		n.record(ctx, note, domain.NotificationFailed, err)
		return err
	}
	n.record(ctx, note, domain.NotificationSent, nil)
	return nil
}

func (n *Notifier) record(ctx context.Context, note domain.Notification, status string, cause error) {
	entry := &domain.NotificationLog{
		Type:      note.Type,
		UserID:    note.UserID,
		EventID:   note.EventID,
		Channel:   channelEmail,
		Status:    status,
		CreatedAt: n.clock.Now(),
	}
	if note.RegistrationID != "" {
		id := note.RegistrationID
		entry.RegistrationID = &id
	}
	if cause != nil {
		msg := cause.Error()
		entry.Error = &msg
	}
	if err := n.repos.NotificationLogs.Create(ctx, entry); err != nil {
		n.log.Error("failed to record notification", "type", note.Type, "user_id", note.UserID, "error", err)
	}
}
