package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/events"
	"github.com/saos/service-desk/internal/observability"
	"github.com/saos/service-desk/internal/service"
)

// StartNotificationWorker registers the mail handlers, then an activity
// recorder on every request event type.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService, metrics *observability.Metrics, logger *zap.Logger) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if dispatcher == nil {
		return
	}
	recorder := NewActivityRecorder(metrics, logger)
	for _, eventType := range []events.EventType{
		events.EventRequestCreated,
		events.EventRequestStatusChanged,
		events.EventRequestAssigned,
		events.EventRequestUpdated,
		events.EventCommentAdded,
	} {
		dispatcher.Subscribe(eventType, recorder.Handle)
	}
}

// ActivityRecorder counts request events and writes one audit line per event.
type ActivityRecorder struct {
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewActivityRecorder builds a recorder. Both collaborators may be nil.
func NewActivityRecorder(metrics *observability.Metrics, logger *zap.Logger) *ActivityRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityRecorder{metrics: metrics, logger: logger}
}

// Handle is an events.EventHandler.
func (r *ActivityRecorder) Handle(_ context.Context, event events.Event) error {
	r.metrics.RecordEvent(string(event.Type))

	fields := []zap.Field{
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.Int64("request_id", event.RequestID),
		zap.Int64("actor_id", event.ActorID),
	}
	switch payload := event.Payload.(type) {
	case events.RequestUpdatedPayload:
		fields = append(fields, zap.Strings("fields", payload.Fields))
	case events.CommentAddedPayload:
		fields = append(fields, zap.Int64("comment_id", payload.CommentID), zap.Bool("internal", payload.Internal))
	case events.RequestStatusChangedPayload:
		fields = append(fields, zap.Int64("old_status_id", payload.OldStatusID), zap.Int64("new_status_id", payload.NewStatusID))
	case events.RequestAssignedPayload:
		fields = append(fields, zap.Int64("technician_id", payload.TechnicianID))
	case events.RequestCreatedPayload:
		fields = append(fields, zap.String("reference_code", payload.ReferenceCode))
	}
	r.logger.Info("request activity", fields...)
	return nil
}
