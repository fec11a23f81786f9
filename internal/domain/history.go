package domain

import "time"

// HistoryAction captures what kind of action a history entry records.
type HistoryAction string

const (
	HistoryActionCreated       HistoryAction = "CRIACAO"
	HistoryActionStatusChanged HistoryAction = "MUDANCA_STATUS"
	HistoryActionComment       HistoryAction = "COMENTARIO"
	HistoryActionAnalysis      HistoryAction = "ANALISE"
	HistoryActionUpdated       HistoryAction = "ATUALIZACAO"
	HistoryActionAssigned      HistoryAction = "ATRIBUICAO"
)

// HistoryEntry is an immutable audit trail entry.
type HistoryEntry struct {
	ID          int64
	RequestID   int64
	UserID      int64
	UserName    string
	Action      HistoryAction
	Description string
	Before      map[string]any
	After       map[string]any
	IPAddress   *string
	CreatedAt   time.Time
}
