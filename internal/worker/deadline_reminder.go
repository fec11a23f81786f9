package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/domain"
)

// UrgentLister lists requests whose deadline is close.
type UrgentLister interface {
	Urgent(ctx context.Context, limit int) ([]domain.RequestDetail, error)
}

// ReminderSender delivers the lembrete_prazo notification.
type ReminderSender interface {
	SendDeadlineReminder(ctx context.Context, requestID int64) bool
}

// ReminderResult summarises one sweep.
type ReminderResult struct {
	Candidates int
	Sent       int
	Failed     int
}

// DeadlineReminder sends a reminder for every urgent request.
type DeadlineReminder struct {
	requests UrgentLister
	notifier ReminderSender
	logger   *zap.Logger
	limit    int
}

// NewDeadlineReminder builds a reminder sweep. limit caps how many requests
// one run touches.
func NewDeadlineReminder(requests UrgentLister, notifier ReminderSender, logger *zap.Logger, limit int) *DeadlineReminder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 500
	}
	return &DeadlineReminder{requests: requests, notifier: notifier, logger: logger, limit: limit}
}

// Run performs one sweep. Delivery failures are counted, not returned.
func (r *DeadlineReminder) Run(ctx context.Context) (ReminderResult, error) {
	items, err := r.requests.Urgent(ctx, r.limit)
	if err != nil {
		return ReminderResult{}, err
	}

	result := ReminderResult{Candidates: len(items)}
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		if r.notifier.SendDeadlineReminder(ctx, item.ID) {
			result.Sent++
			continue
		}
		result.Failed++
		r.logger.Warn("deadline reminder not sent",
			zap.Int64("request_id", item.ID),
			zap.String("reference_code", item.ReferenceCode))
	}

	r.logger.Info("deadline reminder sweep finished",
		zap.Int("candidates", result.Candidates),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, ctx.Err()
}
