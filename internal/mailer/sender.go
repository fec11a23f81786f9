package mailer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/saos/service-desk/internal/config"
)

// Message is one outbound e-mail.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []string
}

// Sender hands a message to the outbound transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ErrMailNotConfigured is returned when no sender address or host is set.
var ErrMailNotConfigured = errors.New("mail transport not configured")

// SMTPSender submits messages over SMTP with mandatory STARTTLS and LOGIN auth.
type SMTPSender struct {
	cfg config.MailConfig
}

// NewSMTPSender captures an immutable copy of the mail settings.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(s.cfg.Host) == "" || strings.TrimSpace(s.cfg.FromEmail) == "" {
		return ErrMailNotConfigured
	}

	m, err := s.build(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(s.cfg.Timeout()),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// build assembles a multipart/alternative message: plain text first when
// present, HTML as the preferred alternative, then file attachments.
// Attachment paths that do not exist are skipped.
func (s *SMTPSender) build(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	m.Subject(msg.Subject)

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}

	for _, path := range msg.Attachments {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		m.AttachFile(path, mail.WithFileName(filepath.Base(path)))
	}
	return m, nil
}
