package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/v1/solicitacoes", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/api/v1/solicitacoes", "GET", 200, 30*time.Millisecond)
	m.RecordError("/api/v1/solicitacoes/:id", "GET", "NOT_FOUND")
	m.RecordNotification("confirmacao_abertura", true)
	m.RecordNotification("confirmacao_abertura", false)
	m.RecordNotification("lembrete_prazo", false)

	snap := m.Snapshot()

	require.Len(t, snap.Requests, 1)
	assert.Equal(t, int64(2), snap.Requests[0].Count)
	assert.InDelta(t, 20.0, snap.Requests[0].AvgMillis, 0.001)
	assert.Equal(t, int64(1), snap.Errors["/api/v1/solicitacoes/:id|GET|NOT_FOUND"])
	assert.Equal(t, NotificationCounter{Sent: 1, Failed: 1}, snap.Notifications["confirmacao_abertura"])
	assert.Equal(t, NotificationCounter{Failed: 1}, snap.Notifications["lembrete_prazo"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordNotification("x", true)
	})
	assert.Empty(t, m.Snapshot().Requests)
}
