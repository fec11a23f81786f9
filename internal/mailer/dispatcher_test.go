package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/config"
)

type recordingSender struct {
	sent  []Message
	err   error
	panic bool
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	if s.panic {
		panic("transport exploded")
	}
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestDispatcherSend(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, zap.NewNop())

	ok := d.Send(context.Background(), Message{To: "ana@example.com", Subject: "Oi", HTML: "<p>oi</p>"})
	assert.True(t, ok)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ana@example.com", sender.sent[0].To)
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	tests := []struct {
		name   string
		sender *recordingSender
		msg    Message
	}{
		{name: "transport error", sender: &recordingSender{err: errors.New("535 auth failed")}, msg: Message{To: "a@b.c"}},
		{name: "panic", sender: &recordingSender{panic: true}, msg: Message{To: "a@b.c"}},
		{name: "empty recipient", sender: &recordingSender{}, msg: Message{To: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(tt.sender, zap.NewNop())
			assert.NotPanics(t, func() {
				assert.False(t, d.Send(context.Background(), tt.msg))
			})
		})
	}
}

func TestSMTPSenderRequiresConfiguration(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{Host: "smtp.example.com", Port: 587})
	err := s.Send(context.Background(), Message{To: "a@b.c", Subject: "x", HTML: "y"})
	assert.ErrorIs(t, err, ErrMailNotConfigured)
}

func TestSMTPSenderBuildRejectsBadRecipient(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{Host: "smtp.example.com", Port: 587, FromEmail: "noreply@example.com", FromName: "SAOS"})
	_, err := s.build(Message{To: "not an address", Subject: "x", HTML: "y"})
	assert.Error(t, err)

	m, err := s.build(Message{To: "ana@example.com", Subject: "x", HTML: "<p>y</p>", Text: "y", Attachments: []string{"/does/not/exist.pdf"}})
	require.NoError(t, err)
	assert.NotNil(t, m)
}
