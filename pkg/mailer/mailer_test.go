package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/okil-ai/consult-api/pkg/config"
)

type senderStub struct {
	sent []*mail.Msg
	err  error
}

func (s *senderStub) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, messages...)
	return nil
}

func newTestMailer(t *testing.T, stub *senderStub) *SMTPMailer {
	t.Helper()
	m, err := NewSMTPMailer(config.NotificationConfig{SMTPHost: "smtp.test", SMTPPort: 587, SMTPUser: "u", SMTPPass: "p", From: "noreply@okil.test"})
	require.NoError(t, err)
	m.client = stub
	m.now = func() time.Time { return time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC) }
	return m
}

func TestSMTPMailerSend(t *testing.T) {
	stub := &senderStub{}
	m := newTestMailer(t, stub)

	err := m.Send(context.Background(), Message{
		To:      "client@okil.test",
		Subject: "Verify your email",
		Body:    "Open the link to verify.",
		HTML:    "<p><a href=\"https://okil.test/verify\">Verify</a></p>",
	})
	require.NoError(t, err)
	require.Len(t, stub.sent, 1)

	msg := stub.sent[0]
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"client@okil.test"}, rcpts)
	assert.Equal(t, []string{"Verify your email"}, msg.GetGenHeader(mail.HeaderSubject))

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "Open the link to verify.")
	assert.Contains(t, raw.String(), "text/html")
}

func TestSMTPMailerErrors(t *testing.T) {
	stub := &senderStub{err: errors.New("421 busy")}
	m := newTestMailer(t, stub)

	assert.ErrorIs(t, m.Send(context.Background(), Message{}), ErrNoRecipient)
	assert.Error(t, m.Send(context.Background(), Message{To: "a@b.test"}))
	assert.Error(t, m.Send(context.Background(), Message{To: "not an address"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "a@b.test"}), context.Canceled)
}

func TestNewPicksLogMailerWithoutCredentials(t *testing.T) {
	_, ok := New(config.NotificationConfig{SMTPHost: "smtp.test"}, nil).(*LogMailer)
	assert.True(t, ok)
	_, ok = New(config.NotificationConfig{SMTPHost: "smtp.test", SMTPPort: 587, SMTPUser: "u"}, nil).(*SMTPMailer)
	assert.True(t, ok)
	_, ok = New(config.NotificationConfig{SMTPHost: "smtp.test", SMTPPort: 0, SMTPUser: "u"}, nil).(*LogMailer)
	assert.True(t, ok)
}
