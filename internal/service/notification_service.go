package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okil-ai/consult-api/internal/models"
	"github.com/okil-ai/consult-api/pkg/config"
	"github.com/okil-ai/consult-api/pkg/jobs"
	"github.com/okil-ai/consult-api/pkg/mailer"
)

const notificationQueue = "notifications"

type recipientFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// NotificationService emails the counterpart of a committed change. Delivery is
// best-effort: publishing never blocks and never fails the caller. Account links
// are mailed even when lifecycle notifications are switched off.
type NotificationService struct {
	queue   *jobs.Queue
	users   recipientFinder
	mailer  mailer.Mailer
	metrics *MetricsService
	logger  *zap.Logger
	enabled bool
}

// NewNotificationService builds the service and its worker queue.
func NewNotificationService(users recipientFinder, m mailer.Mailer, metrics *MetricsService, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if isNil(m) {
		m = nil
	}
	svc := &NotificationService{
		users:   users,
		mailer:  m,
		metrics: metrics,
		logger:  logger,
		enabled: cfg.Enabled,
	}
	svc.queue = jobs.NewQueue(notificationQueue, svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		Observer:   metrics.ObserveJob,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.mailer == nil {
		s.logger.Info("notifications disabled, no mailer configured")
		return
	}
	if !s.enabled {
		s.logger.Info("lifecycle notifications disabled, account emails only")
	}
	s.queue.Start(ctx)
}

// Stop drains workers; buffered notifications are dropped.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Publish queues an email for event.RecipientID.
func (s *NotificationService) Publish(ctx context.Context, event models.Event) {
	if s.mailer == nil || event.RecipientID == "" {
		return
	}
	if !s.enabled && !event.Type.Transactional() {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: string(event.Type), Payload: event}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.metrics.ObserveJob(notificationQueue, job.Type, "dropped")
		s.logger.Warn("notification dropped",
			zap.String("event", string(event.Type)), zap.String("entity_id", event.EntityID), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.Event)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	user, err := s.users.FindByID(ctx, event.RecipientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("notification recipient missing", zap.String("recipient_id", event.RecipientID))
			return nil
		}
		return err
	}
	if user.Email == "" {
		return nil
	}
	msg := renderNotification(event, user)
	if err := s.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, mailer.ErrNoRecipient) {
			return nil
		}
		return fmt.Errorf("send %s notification: %w", event.Type, err)
	}
	return nil
}

func renderNotification(event models.Event, recipient *models.User) mailer.Message {
	when := ""
	if event.ScheduledAt != nil {
		at := event.ScheduledAt.UTC()
		when = at.Format(models.DateLayout) + " at " + at.Format(models.TimeLayout) + " UTC"
	}

	var subject, line string
	switch event.Type {
	case models.EventAccountVerification:
		return accountLinkMessage(recipient, "Verify your OKIL email",
			"Confirm your email address to start using OKIL.", "Verify email", event.Link)
	case models.EventPasswordReset:
		return accountLinkMessage(recipient, "Reset your OKIL password",
			"We received a request to reset your password. If it was not you, ignore this email.", "Reset password", event.Link)
	case models.EventAppointmentBooked:
		subject = "New appointment request"
		line = fmt.Sprintf("A client requested an appointment with you on %s.", when)
	case models.EventAppointmentRescheduled:
		subject = "Appointment rescheduled"
		line = fmt.Sprintf("Your appointment has been moved to %s.", when)
	case models.EventAppointmentStatus:
		subject = "Appointment " + event.Status
		line = fmt.Sprintf("Your appointment on %s is now %s.", when, event.Status)
	case models.EventQueryCreated:
		subject = "New legal query: " + event.Subject
		line = fmt.Sprintf("A client sent you a query titled %q.", event.Subject)
	case models.EventQueryStatus:
		subject = "Query " + strings.ReplaceAll(event.Status, "_", " ")
		line = fmt.Sprintf("Your query %q is now %s.", event.Subject, strings.ReplaceAll(event.Status, "_", " "))
	default:
		subject = "OKIL update"
		line = "There is an update on your account."
	}

	body := fmt.Sprintf("Hello %s,\n\n%s\n\nSign in to OKIL to see the details.\n", recipient.FullName, line)
	return mailer.Message{To: recipient.Email, Subject: subject, Body: body}
}

func accountLinkMessage(recipient *models.User, subject, line, action, link string) mailer.Message {
	body := fmt.Sprintf("Hello %s,\n\n%s\n\n%s: %s\n\nThe link expires soon and works once.\n", recipient.FullName, line, action, link)
	markup := fmt.Sprintf(`<p>Hello %s,</p><p>%s</p><p><a href="%s">%s</a></p><p>The link expires soon and works once.</p>`,
		html.EscapeString(recipient.FullName), html.EscapeString(line), html.EscapeString(link), html.EscapeString(action))
	return mailer.Message{To: recipient.Email, Subject: subject, Body: body, HTML: markup}
}
