package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saos/service-desk/internal/api/dto"
	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/observability"
	"github.com/saos/service-desk/internal/repository"
	"github.com/saos/service-desk/internal/service"
)

// DashboardHandler serves rollups and admin views.
type DashboardHandler struct {
	dashboard *service.DashboardService
	lifecycle *service.LifecycleService
	metrics   *observability.Metrics
	loc       *time.Location
}

// NewDashboardHandler constructs handler. loc is the zone ledger date
// filters are read in.
func NewDashboardHandler(dashboard *service.DashboardService, lifecycle *service.LifecycleService, metrics *observability.Metrics, loc *time.Location) *DashboardHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardHandler{dashboard: dashboard, lifecycle: lifecycle, metrics: metrics, loc: loc}
}

// Dashboard GET /dashboard.
func (h *DashboardHandler) Dashboard(c *fiber.Ctx) error {
	snapshot, err := h.dashboard.Snapshot(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDashboardResponse(snapshot)})
}

// AdminStats GET /admin/stats.
func (h *DashboardHandler) AdminStats(c *fiber.Ctx) error {
	stats, err := h.dashboard.AdminStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAdminStatsResponse(stats)})
}

// Metrics GET /admin/metrics.
func (h *DashboardHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}

// Ledger GET /admin/historico.
func (h *DashboardHandler) Ledger(c *fiber.Ctx) error {
	var (
		filter repository.HistoryFilter
		err    error
	)
	if filter.RequestID, err = queryInt64(c, "solicitacao_id"); err != nil {
		return err
	}
	if filter.UserID, err = queryInt64(c, "usuario_id"); err != nil {
		return err
	}
	if raw := strings.TrimSpace(c.Query("acao")); raw != "" {
		action := domain.HistoryAction(strings.ToUpper(raw))
		filter.Action = &action
	}
	if filter.From, err = parseDateQuery(c, "data_inicio", h.loc, false); err != nil {
		return err
	}
	if filter.To, err = parseDateQuery(c, "data_fim", h.loc, true); err != nil {
		return err
	}
	filter.Limit = c.QueryInt("limite", 100)

	entries, err := h.lifecycle.Ledger(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.NewHistoryResponse(e))
	}
	return c.JSON(fiber.Map{"data": items})
}
