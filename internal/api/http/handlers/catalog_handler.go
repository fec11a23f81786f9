package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saos/service-desk/internal/api/dto"
	"github.com/saos/service-desk/internal/service"
)

// CatalogHandler lists reference data. Inactive rows are included with ?todos=true.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Priorities GET /prioridades.
func (h *CatalogHandler) Priorities(c *fiber.Ctx) error {
	items, err := h.catalog.Priorities(c.UserContext(), !c.QueryBool("todos", false))
	if err != nil {
		return err
	}
	out := make([]dto.PriorityResponse, 0, len(items))
	for _, p := range items {
		out = append(out, dto.PriorityResponse{
			ID:             p.ID,
			Nome:           p.Name,
			Ordem:          p.Order,
			HorasResolucao: p.SLAHours,
			HorasEscalacao: p.EscalationHours,
			Ativo:          p.Active,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// Statuses GET /status.
func (h *CatalogHandler) Statuses(c *fiber.Ctx) error {
	items, err := h.catalog.Statuses(c.UserContext(), !c.QueryBool("todos", false))
	if err != nil {
		return err
	}
	out := make([]dto.StatusResponse, 0, len(items))
	for _, s := range items {
		out = append(out, dto.StatusResponse{
			ID:         s.ID,
			Nome:       s.Name,
			Cor:        s.Color,
			Ordem:      s.Order,
			Finalizado: s.Finalizing,
			Ativo:      s.Active,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// Categories GET /categorias.
func (h *CatalogHandler) Categories(c *fiber.Ctx) error {
	items, err := h.catalog.Categories(c.UserContext(), !c.QueryBool("todos", false))
	if err != nil {
		return err
	}
	out := make([]dto.CategoryResponse, 0, len(items))
	for _, cat := range items {
		out = append(out, dto.CategoryResponse{
			ID:        cat.ID,
			Nome:      cat.Name,
			Descricao: cat.Description,
			Ativo:     cat.Active,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}
