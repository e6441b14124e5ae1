package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/okil-ai/consult-api/pkg/config"
)

// ErrNoRecipient is returned when a message has no destination address.
var ErrNoRecipient = errors.New("mailer: recipient required")

// Message is a plain-text email with an optional HTML alternative.
type Message struct {
	To      string
	Subject string
	Body    string
	HTML    string
}

// Mailer delivers email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPMailer sends through an SMTP relay, upgrading with STARTTLS when offered.
type SMTPMailer struct {
	client sender
	from   string
	now    func() time.Time
}

// NewSMTPMailer builds a mailer from notification settings.
func NewSMTPMailer(cfg config.NotificationConfig) (*SMTPMailer, error) {
	timeout := cfg.SMTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(timeout),
	}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPass),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From, now: time.Now}, nil
}

// Send delivers msg, honouring ctx for dial and transfer.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	out, err := m.compose(msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	out.Subject(msg.Subject)
	out.SetDateWithValue(m.now().UTC())
	out.SetBodyString(mail.TypeTextPlain, msg.Body)
	if msg.HTML != "" {
		out.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return out, nil
}

// LogMailer only logs messages. Used when SMTP is not configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	m.logger.Info("email suppressed", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	m.logger.Debug("email body", zap.String("to", msg.To), zap.String("body", msg.Body))
	return nil
}

// New picks the SMTP mailer when credentials are configured, otherwise the log mailer.
func New(cfg config.NotificationConfig, logger *zap.Logger) Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SMTPHost == "" || cfg.SMTPUser == "" {
		return NewLogMailer(logger)
	}
	m, err := NewSMTPMailer(cfg)
	if err != nil {
		logger.Warn("smtp mailer unavailable, falling back to log mailer", zap.Error(err))
		return NewLogMailer(logger)
	}
	return m
}
