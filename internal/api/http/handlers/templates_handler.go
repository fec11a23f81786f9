package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/saos/service-desk/internal/api/dto"
	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/mailer"
	"github.com/saos/service-desk/internal/service"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

// TemplatesHandler administers e-mail templates.
type TemplatesHandler struct {
	templates *service.TemplateService
}

// NewTemplatesHandler constructs handler.
func NewTemplatesHandler(templates *service.TemplateService) *TemplatesHandler {
	return &TemplatesHandler{templates: templates}
}

// List GET /templates-email.
func (h *TemplatesHandler) List(c *fiber.Ctx) error {
	items, err := h.templates.List(c.UserContext(), c.QueryBool("ativos", false))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": templateResponses(items)})
}

// Get GET /templates-email/:id.
func (h *TemplatesHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	tpl, err := h.templates.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTemplateResponse(tpl)})
}

// Create POST /templates-email.
func (h *TemplatesHandler) Create(c *fiber.Ctx) error {
	in, err := h.validInput(c)
	if err != nil {
		return err
	}
	tpl, err := h.templates.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTemplateResponse(tpl)})
}

// Update PUT /templates-email/:id.
func (h *TemplatesHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	in, err := h.validInput(c)
	if err != nil {
		return err
	}
	tpl, err := h.templates.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTemplateResponse(tpl)})
}

// Delete DELETE /templates-email/:id deactivates the template.
func (h *TemplatesHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.templates.SoftDelete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Toggle POST /templates-email/:id/toggle.
func (h *TemplatesHandler) Toggle(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	active, err := h.templates.Toggle(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "ativo": active}})
}

// Validate POST /templates-email/validar.
func (h *TemplatesHandler) Validate(c *fiber.Ctx) error {
	var req dto.TemplateRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	result := h.templates.Validate(templateInput(req))
	return c.JSON(fiber.Map{"data": dto.NewTemplateValidationResponse(result)})
}

// Defaults GET /templates-email/padrao.
func (h *TemplatesHandler) Defaults(c *fiber.Ctx) error {
	defs := h.templates.Defaults()
	items := make([]dto.DefaultTemplateResponse, 0, len(defs))
	for _, d := range defs {
		items = append(items, dto.DefaultTemplateResponse{
			Nome:      d.Name,
			Descricao: d.Description,
			Assunto:   d.Subject,
			Variaveis: d.Variables,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// InstallDefault POST /templates-email/padrao/:nome.
func (h *TemplatesHandler) InstallDefault(c *fiber.Ctx) error {
	tpl, err := h.templates.InstallDefault(c.UserContext(), c.Params("nome"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTemplateResponse(tpl)})
}

// SendTest POST /templates-email/testar.
func (h *TemplatesHandler) SendTest(c *fiber.Ctx) error {
	var req dto.TemplateTestRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	sent, err := h.templates.SendTest(c.UserContext(), req.TemplateID, req.EmailDestino, mailer.Variables(req.Variaveis))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"enviado": sent}})
}

// validInput binds the payload and refuses templates that fail Validate.
func (h *TemplatesHandler) validInput(c *fiber.Ctx) (service.TemplateInput, error) {
	var req dto.TemplateRequest
	if err := bindJSON(c, &req); err != nil {
		return service.TemplateInput{}, err
	}
	in := templateInput(req)
	result := h.templates.Validate(in)
	if !result.Valid {
		return in, apperrors.NewValidationError("template inválido", map[string]any{
			"erros":  result.Errors,
			"avisos": result.Warnings,
		})
	}
	return in, nil
}

func templateInput(req dto.TemplateRequest) service.TemplateInput {
	active := true
	if req.Ativo != nil {
		active = *req.Ativo
	}
	return service.TemplateInput{
		Name:      req.Nome,
		Subject:   req.Assunto,
		HTMLBody:  req.CorpoHTML,
		TextBody:  req.CorpoTexto,
		Variables: req.Variaveis,
		Active:    active,
	}
}

func templateResponses(items []domain.EmailTemplate) []dto.TemplateResponse {
	out := make([]dto.TemplateResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewTemplateResponse(&items[i]))
	}
	return out
}
