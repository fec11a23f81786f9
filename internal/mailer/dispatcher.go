package mailer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// NotificationError describes a failed delivery. It never leaves this package
// as an error value; Dispatcher converts it into a false result plus a log entry.
type NotificationError struct {
	Recipient string
	Subject   string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s (%q): %v", e.Recipient, e.Subject, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// Dispatcher sends messages and reports success as a bool.
type Dispatcher struct {
	sender Sender
	logger *zap.Logger
}

// NewDispatcher wraps a Sender.
func NewDispatcher(sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// Send delivers msg, swallowing and logging every failure (including panics
// raised by the transport).
func (d *Dispatcher) Send(ctx context.Context, msg Message) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logFailure(&NotificationError{Recipient: msg.To, Subject: msg.Subject, Err: fmt.Errorf("panic: %v", r)})
			ok = false
		}
	}()

	if strings.TrimSpace(msg.To) == "" {
		d.logFailure(&NotificationError{Subject: msg.Subject, Err: fmt.Errorf("empty recipient")})
		return false
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		d.logFailure(&NotificationError{Recipient: msg.To, Subject: msg.Subject, Err: err})
		return false
	}
	d.logger.Info("e-mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return true
}

func (d *Dispatcher) logFailure(err *NotificationError) {
	d.logger.Warn("e-mail not sent", zap.String("to", err.Recipient), zap.Error(err))
}
