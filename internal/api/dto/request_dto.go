package dto

import (
	"time"

	"github.com/aarondl/null/v8"

	"github.com/saos/service-desk/internal/domain"
)

// CreateRequestRequest opens a request. Clients always open for themselves;
// cliente_id is only honoured for staff.
type CreateRequestRequest struct {
	Titulo       string  `json:"titulo" validate:"required,max=200"`
	Descricao    string  `json:"descricao" validate:"required"`
	ClienteID    int64   `json:"cliente_id" validate:"omitempty,gt=0"`
	CategoriaID  int64   `json:"categoria_id" validate:"required,gt=0"`
	PrioridadeID int64   `json:"prioridade_id" validate:"required,gt=0"`
	Sistema      *string `json:"sistema" validate:"omitempty,max=100"`
	Modulo       *string `json:"modulo" validate:"omitempty,max=100"`
	Urgente      bool    `json:"urgente"`
	Confidencial bool    `json:"confidencial"`
}

// UpdateRequestRequest is a partial edit; absent fields are left alone.
type UpdateRequestRequest struct {
	Titulo       null.String `json:"titulo" validate:"omitempty,max=200"`
	Descricao    null.String `json:"descricao"`
	CategoriaID  null.Int64  `json:"categoria_id"`
	PrioridadeID null.Int64  `json:"prioridade_id"`
	Sistema      null.String `json:"sistema" validate:"omitempty,max=100"`
	Modulo       null.String `json:"modulo" validate:"omitempty,max=100"`
	Urgente      null.Bool   `json:"urgente"`
	Confidencial null.Bool   `json:"confidencial"`
}

// StatusChangeRequest moves a request to another status.
type StatusChangeRequest struct {
	StatusID   int64  `json:"status_id" validate:"required,gt=0"`
	TecnicoID  *int64 `json:"tecnico_id" validate:"omitempty,gt=0"`
	Comentario string `json:"comentario" validate:"max=2000"`
}

// AssignTechnicianRequest hands a request to a technician.
type AssignTechnicianRequest struct {
	TecnicoID int64 `json:"tecnico_id" validate:"required,gt=0"`
}

// AnalysisRequest records a technical analysis note.
type AnalysisRequest struct {
	Analise string `json:"analise" validate:"required"`
}

// SendEmailRequest triggers a notification scenario by hand.
type SendEmailRequest struct {
	Tipo        string `json:"tipo" validate:"required"`
	Comentario  string `json:"comentario"`
	Informacoes string `json:"informacoes_necessarias"`
	Solucao     string `json:"solucao"`
}

// RequestResponse is a request with its display data and flags.
type RequestResponse struct {
	ID                 int64      `json:"id"`
	CodigoReferencia   string     `json:"codigo_referencia"`
	Titulo             string     `json:"titulo"`
	Descricao          string     `json:"descricao"`
	ClienteID          int64      `json:"cliente_id"`
	ClienteNome        string     `json:"cliente_nome"`
	CategoriaID        int64      `json:"categoria_id"`
	CategoriaNome      string     `json:"categoria_nome"`
	PrioridadeID       int64      `json:"prioridade_id"`
	PrioridadeNome     string     `json:"prioridade_nome"`
	StatusID           int64      `json:"status_id"`
	StatusNome         string     `json:"status_nome"`
	StatusCor          string     `json:"status_cor"`
	TecnicoID          *int64     `json:"tecnico_id"`
	TecnicoNome        *string    `json:"tecnico_nome"`
	Sistema            *string    `json:"sistema"`
	Modulo             *string    `json:"modulo"`
	Urgente            bool       `json:"urgente"`
	Confidencial       bool       `json:"confidencial"`
	PrazoResolucao     *time.Time `json:"prazo_resolucao"`
	PrazoEscalonamento *time.Time `json:"prazo_escalonamento"`
	DataResolucao      *time.Time `json:"data_resolucao"`
	DataFechamento     *time.Time `json:"data_fechamento"`
	DataCriacao        time.Time  `json:"data_criacao"`
	DataAtualizacao    time.Time  `json:"data_atualizacao"`
	Vencida            bool       `json:"vencida"`
	ProximaDoPrazo     bool       `json:"proxima_do_prazo"`
}

// NewRequestResponse flattens a detail row. Flags are supplied by the caller.
func NewRequestResponse(d *domain.RequestDetail, urgent, overdue bool) RequestResponse {
	return RequestResponse{
		ID:                 d.ID,
		CodigoReferencia:   d.ReferenceCode,
		Titulo:             d.Title,
		Descricao:          d.Description,
		ClienteID:          d.ClientID,
		ClienteNome:        d.ClientName,
		CategoriaID:        d.CategoryID,
		CategoriaNome:      d.CategoryName,
		PrioridadeID:       d.PriorityID,
		PrioridadeNome:     d.PriorityName,
		StatusID:           d.StatusID,
		StatusNome:         d.StatusName,
		StatusCor:          d.StatusColor,
		TecnicoID:          d.TechnicianID,
		TecnicoNome:        d.TechnicianName,
		Sistema:            d.System,
		Modulo:             d.Module,
		Urgente:            d.Urgent,
		Confidencial:       d.Confidential,
		PrazoResolucao:     d.ResolutionDeadline,
		PrazoEscalonamento: d.EscalationDeadline,
		DataResolucao:      d.ResolvedAt,
		DataFechamento:     d.ClosedAt,
		DataCriacao:        d.CreatedAt,
		DataAtualizacao:    d.UpdatedAt,
		Vencida:            overdue,
		ProximaDoPrazo:     urgent,
	}
}

// HistoryResponse is one ledger entry.
type HistoryResponse struct {
	ID            int64          `json:"id"`
	SolicitacaoID int64          `json:"solicitacao_id"`
	UsuarioID     int64          `json:"usuario_id"`
	UsuarioNome   string         `json:"usuario_nome"`
	Acao          string         `json:"acao"`
	Descricao     string         `json:"descricao"`
	DadosAnterior map[string]any `json:"dados_anteriores,omitempty"`
	DadosNovos    map[string]any `json:"dados_novos,omitempty"`
	IP            *string        `json:"ip_address,omitempty"`
	DataAcao      time.Time      `json:"data_acao"`
}

// NewHistoryResponse maps a ledger entry.
func NewHistoryResponse(e domain.HistoryEntry) HistoryResponse {
	return HistoryResponse{
		ID:            e.ID,
		SolicitacaoID: e.RequestID,
		UsuarioID:     e.UserID,
		UsuarioNome:   e.UserName,
		Acao:          string(e.Action),
		Descricao:     e.Description,
		DadosAnterior: e.Before,
		DadosNovos:    e.After,
		IP:            e.IPAddress,
		DataAcao:      e.CreatedAt,
	}
}

// CommentRequest adds a comment.
type CommentRequest struct {
	Comentario string `json:"comentario" validate:"required"`
	Interno    bool   `json:"interno"`
}

// CommentResponse is one comment.
type CommentResponse struct {
	ID            int64     `json:"id"`
	SolicitacaoID int64     `json:"solicitacao_id"`
	AutorID       int64     `json:"autor_id"`
	AutorNome     string    `json:"autor_nome"`
	Comentario    string    `json:"comentario"`
	Interno       bool      `json:"interno"`
	DataCriacao   time.Time `json:"data_criacao"`
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c domain.Comment) CommentResponse {
	return CommentResponse{
		ID:            c.ID,
		SolicitacaoID: c.RequestID,
		AutorID:       c.AuthorID,
		AutorNome:     c.AuthorName,
		Comentario:    c.Body,
		Interno:       c.Internal,
		DataCriacao:   c.CreatedAt,
	}
}
