package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/saos/service-desk/internal/events"
	"github.com/saos/service-desk/internal/observability"
)

func TestStartNotificationWorkerRecordsActivity(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())

	StartNotificationWorker(dispatcher, nil, metrics, zap.New(core))

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID:        "ev-1",
		Type:      events.EventRequestUpdated,
		RequestID: 7,
		ActorID:   20,
		Payload:   events.RequestUpdatedPayload{Fields: []string{"titulo", "prioridade_id"}},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID:        "ev-2",
		Type:      events.EventCommentAdded,
		RequestID: 7,
		ActorID:   20,
		Payload:   events.CommentAddedPayload{CommentID: 3, Internal: true},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID:        "ev-3",
		Type:      events.EventCommentAdded,
		RequestID: 8,
		ActorID:   10,
		Payload:   events.CommentAddedPayload{CommentID: 4},
	}))

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Events[string(events.EventRequestUpdated)])
	assert.Equal(t, int64(2), snap.Events[string(events.EventCommentAdded)])

	entries := logs.FilterMessage("request activity").All()
	require.Len(t, entries, 3)
	first := entries[0].ContextMap()
	assert.Equal(t, "request_updated", first["event_type"])
	assert.Equal(t, int64(7), first["request_id"])
	assert.Equal(t, []interface{}{"titulo", "prioridade_id"}, first["fields"])
	second := entries[1].ContextMap()
	assert.Equal(t, int64(3), second["comment_id"])
	assert.Equal(t, true, second["internal"])
}

func TestActivityRecorderToleratesMissingCollaborators(t *testing.T) {
	recorder := NewActivityRecorder(nil, nil)
	err := recorder.Handle(context.Background(), events.Event{Type: events.EventRequestCreated, Payload: "unexpected"})
	assert.NoError(t, err)
}

func TestStartNotificationWorkerWithoutDispatcher(t *testing.T) {
	assert.NotPanics(t, func() {
		StartNotificationWorker(nil, nil, observability.NewMetrics(), nil)
	})
}
