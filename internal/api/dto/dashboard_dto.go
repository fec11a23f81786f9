package dto

import (
	"time"

	"github.com/saos/service-desk/internal/domain"
)

// GroupCountResponse is one bucket of a rollup.
type GroupCountResponse struct {
	ID         int64  `json:"id"`
	Nome       string `json:"nome"`
	Cor        string `json:"cor,omitempty"`
	Quantidade int64  `json:"quantidade"`
}

// DashboardResponse is the request rollup.
type DashboardResponse struct {
	Total         int64                `json:"total"`
	PorStatus     []GroupCountResponse `json:"por_status"`
	PorPrioridade []GroupCountResponse `json:"por_prioridade"`
	ProximasPrazo int64                `json:"proximas_prazo"`
	Vencidas      int64                `json:"vencidas"`
	GeradoEm      time.Time            `json:"gerado_em"`
}

// NewDashboardResponse maps a snapshot.
func NewDashboardResponse(s *domain.DashboardSnapshot) DashboardResponse {
	return DashboardResponse{
		Total:         s.Total,
		PorStatus:     groups(s.ByStatus),
		PorPrioridade: groups(s.ByPriority),
		ProximasPrazo: s.Urgent,
		Vencidas:      s.Overdue,
		GeradoEm:      s.GeneratedAt,
	}
}

func groups(in []domain.GroupCount) []GroupCountResponse {
	out := make([]GroupCountResponse, 0, len(in))
	for _, g := range in {
		out = append(out, GroupCountResponse{ID: g.ID, Nome: g.Name, Cor: g.Color, Quantidade: g.Count})
	}
	return out
}

// AdminStatsResponse counts active reference rows.
type AdminStatsResponse struct {
	UsuariosAtivos   int64 `json:"usuarios_ativos"`
	CategoriasAtivas int64 `json:"categorias_ativas"`
	StatusAtivos     int64 `json:"status_ativos"`
	TemplatesAtivos  int64 `json:"templates_ativos"`
}

// NewAdminStatsResponse maps admin counters.
func NewAdminStatsResponse(s *domain.AdminStats) AdminStatsResponse {
	return AdminStatsResponse{
		UsuariosAtivos:   s.ActiveUsers,
		CategoriasAtivas: s.ActiveCategories,
		StatusAtivos:     s.ActiveStatuses,
		TemplatesAtivos:  s.ActiveTemplates,
	}
}

// PriorityResponse is one priority row.
type PriorityResponse struct {
	ID             int64  `json:"id"`
	Nome           string `json:"nome"`
	Ordem          int    `json:"ordem"`
	HorasResolucao int    `json:"horas_resolucao"`
	HorasEscalacao int    `json:"horas_escalacao"`
	Ativo          bool   `json:"ativo"`
}

// StatusResponse is one status row.
type StatusResponse struct {
	ID         int64  `json:"id"`
	Nome       string `json:"nome"`
	Cor        string `json:"cor"`
	Ordem      int    `json:"ordem"`
	Finalizado bool   `json:"finalizado"`
	Ativo      bool   `json:"ativo"`
}

// CategoryResponse is one category row.
type CategoryResponse struct {
	ID        int64   `json:"id"`
	Nome      string  `json:"nome"`
	Descricao *string `json:"descricao"`
	Ativo     bool    `json:"ativo"`
}
