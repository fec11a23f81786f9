package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saos/service-desk/internal/api/dto"
	"github.com/saos/service-desk/internal/auth"
	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/repository"
	"github.com/saos/service-desk/internal/service"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

// RequestsHandler manages request endpoints.
type RequestsHandler struct {
	lifecycle     *service.LifecycleService
	transitions   service.StatusTransitioner
	comments      *service.CommentService
	notifications *service.NotificationService
	reports       *service.ReportService
	loc           *time.Location
}

// RequestsHandlerDeps bundles the services behind request endpoints.
// Transitions defaults to the lifecycle service itself.
type RequestsHandlerDeps struct {
	Lifecycle     *service.LifecycleService
	Transitions   service.StatusTransitioner
	Comments      *service.CommentService
	Notifications *service.NotificationService
	Reports       *service.ReportService
	Location      *time.Location
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(deps RequestsHandlerDeps) *RequestsHandler {
	transitions := deps.Transitions
	if transitions == nil {
		transitions = deps.Lifecycle
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &RequestsHandler{
		lifecycle:     deps.Lifecycle,
		transitions:   transitions,
		comments:      deps.Comments,
		notifications: deps.Notifications,
		reports:       deps.Reports,
		loc:           loc,
	}
}

// Create POST /solicitacoes.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateRequestRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	clientID := principal.ID()
	if principal.IsStaff() && req.ClienteID > 0 {
		clientID = req.ClienteID
	}
	created, err := h.lifecycle.Create(c.UserContext(), service.CreateRequestInput{
		Title:        req.Titulo,
		Description:  req.Descricao,
		ClientID:     clientID,
		CategoryID:   req.CategoriaID,
		PriorityID:   req.PrioridadeID,
		CreatedByID:  ptrTo(principal.ID()),
		System:       req.Sistema,
		Module:       req.Modulo,
		Urgent:       req.Urgente,
		Confidential: req.Confidencial,
		IPAddress:    clientIP(c),
	})
	if err != nil {
		return err
	}
	return h.respondDetail(c, http.StatusCreated, created.ID)
}

// List GET /solicitacoes.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter, err := h.parseFilter(c)
	if err != nil {
		return err
	}
	if !principal.IsStaff() {
		filter.ClientID = ptrTo(principal.ID())
	}
	items, err := h.lifecycle.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.responses(items)})
}

// Urgent GET /solicitacoes/urgentes.
func (h *RequestsHandler) Urgent(c *fiber.Ctx) error {
	items, err := h.lifecycle.Urgent(c.UserContext(), c.QueryInt("limite", 50))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.responses(items)})
}

// Overdue GET /solicitacoes/vencidas.
func (h *RequestsHandler) Overdue(c *fiber.Ctx) error {
	items, err := h.lifecycle.Overdue(c.UserContext(), c.QueryInt("limite", 50))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.responses(items)})
}

// Export GET /solicitacoes/export.
func (h *RequestsHandler) Export(c *fiber.Ctx) error {
	filter, err := h.parseFilter(c)
	if err != nil {
		return err
	}
	filter.Limit = 0
	report, err := h.reports.ExportRequests(c.UserContext(), filter)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+report.FileName)
	return c.Send(report.Content)
}

// Get GET /solicitacoes/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.visible(c, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.response(detail)})
}

// GetByReference GET /solicitacoes/codigo/:codigo.
func (h *RequestsHandler) GetByReference(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	detail, err := h.lifecycle.GetByReference(c.UserContext(), c.Params("codigo"))
	if err != nil {
		return err
	}
	if !principal.IsStaff() && detail.ClientID != principal.ID() {
		return apperrors.NewNotFound("request", nil)
	}
	return c.JSON(fiber.Map{"data": h.response(detail)})
}

// Update PUT /solicitacoes/:id.
func (h *RequestsHandler) Update(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateRequestRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	_, err = h.lifecycle.UpdateRequest(c.UserContext(), id, principal.ID(), service.RequestPatch{
		Title:        req.Titulo,
		Description:  req.Descricao,
		CategoryID:   req.CategoriaID,
		PriorityID:   req.PrioridadeID,
		System:       req.Sistema,
		Module:       req.Modulo,
		Urgent:       req.Urgente,
		Confidential: req.Confidencial,
	}, clientIP(c))
	if err != nil {
		return err
	}
	return h.respondDetail(c, http.StatusOK, id)
}

// ChangeStatus PUT /solicitacoes/:id/status.
func (h *RequestsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.StatusChangeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	_, err = h.transitions.TransitionStatus(c.UserContext(), service.TransitionInput{
		RequestID:    id,
		StatusID:     req.StatusID,
		ActorID:      principal.ID(),
		TechnicianID: req.TecnicoID,
		Comment:      req.Comentario,
		IPAddress:    clientIP(c),
	})
	if err != nil {
		return err
	}
	return h.respondDetail(c, http.StatusOK, id)
}

// AssignTechnician PUT /solicitacoes/:id/tecnico.
func (h *RequestsHandler) AssignTechnician(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignTechnicianRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	_, err = h.lifecycle.AssignTechnician(c.UserContext(), service.AssignInput{
		RequestID:    id,
		TechnicianID: req.TecnicoID,
		ActorID:      principal.ID(),
		IPAddress:    clientIP(c),
	})
	if err != nil {
		return err
	}
	return h.respondDetail(c, http.StatusOK, id)
}

// RecordAnalysis POST /solicitacoes/:id/analise.
func (h *RequestsHandler) RecordAnalysis(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AnalysisRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	entry, err := h.lifecycle.RecordAnalysis(c.UserContext(), id, principal.ID(), req.Analise, clientIP(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewHistoryResponse(*entry)})
}

// History GET /solicitacoes/:id/historico.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.visible(c, id); err != nil {
		return err
	}
	entries, err := h.lifecycle.History(c.UserContext(), id, c.QueryInt("limite", 100))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.NewHistoryResponse(e))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListComments GET /solicitacoes/:id/comentarios.
func (h *RequestsHandler) ListComments(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.visible(c, id); err != nil {
		return err
	}
	comments, err := h.comments.List(c.UserContext(), id, principal.IsStaff())
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for _, cm := range comments {
		items = append(items, dto.NewCommentResponse(cm))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /solicitacoes/:id/comentarios.
func (h *RequestsHandler) AddComment(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.visible(c, id); err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Add(c.UserContext(), service.AddCommentInput{
		RequestID: id,
		AuthorID:  principal.ID(),
		Body:      req.Comentario,
		Internal:  req.Interno && principal.IsStaff(),
		IPAddress: clientIP(c),
	})
	if err != nil {
		return err
	}
	comment.AuthorName = principal.User.Name
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(*comment)})
}

// SendEmail POST /solicitacoes/:id/enviar-email. Attachments are never taken
// from the request body.
func (h *RequestsHandler) SendEmail(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.SendEmailRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	known := false
	for _, s := range h.notifications.Scenarios() {
		if s == req.Tipo {
			known = true
			break
		}
	}
	if !known {
		return apperrors.NewValidationError("tipo de email desconhecido", map[string]any{"tipos": h.notifications.Scenarios()})
	}
	if _, err := h.lifecycle.Get(c.UserContext(), id); err != nil {
		return err
	}
	sent := h.notifications.Send(c.UserContext(), req.Tipo, id, service.NotificationArgs{
		Comment:     req.Comentario,
		Information: req.Informacoes,
		Solution:    req.Solucao,
	})
	return c.JSON(fiber.Map{"data": fiber.Map{"enviado": sent, "tipo": req.Tipo}})
}

// visible loads a request, hiding other clients' requests behind NOT_FOUND.
func (h *RequestsHandler) visible(c *fiber.Ctx, id int64) (*domain.RequestDetail, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	detail, err := h.lifecycle.Get(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if !principal.IsStaff() && detail.ClientID != principal.ID() {
		return nil, apperrors.NewNotFound("request", nil)
	}
	return detail, nil
}

func (h *RequestsHandler) respondDetail(c *fiber.Ctx, status int, id int64) error {
	detail, err := h.lifecycle.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(fiber.Map{"data": h.response(detail)})
}

func (h *RequestsHandler) response(d *domain.RequestDetail) dto.RequestResponse {
	urgent, overdue := h.lifecycle.Flags(d.Request)
	return dto.NewRequestResponse(d, urgent, overdue)
}

func (h *RequestsHandler) responses(items []domain.RequestDetail) []dto.RequestResponse {
	out := make([]dto.RequestResponse, 0, len(items))
	for i := range items {
		out = append(out, h.response(&items[i]))
	}
	return out
}

func (h *RequestsHandler) parseFilter(c *fiber.Ctx) (repository.RequestFilter, error) {
	var (
		filter repository.RequestFilter
		err    error
	)
	if filter.ClientID, err = queryInt64(c, "cliente_id"); err != nil {
		return filter, err
	}
	if filter.TechnicianID, err = queryInt64(c, "tecnico_id"); err != nil {
		return filter, err
	}
	if filter.StatusID, err = queryInt64(c, "status_id"); err != nil {
		return filter, err
	}
	if filter.PriorityID, err = queryInt64(c, "prioridade_id"); err != nil {
		return filter, err
	}
	if filter.CategoryID, err = queryInt64(c, "categoria_id"); err != nil {
		return filter, err
	}
	if filter.CreatedFrom, err = parseDateQuery(c, "data_inicio", h.loc, false); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = parseDateQuery(c, "data_fim", h.loc, true); err != nil {
		return filter, err
	}
	filter.Limit = c.QueryInt("limite", 50)
	filter.Offset = c.QueryInt("offset", 0)
	return filter, nil
}

func ptrTo(v int64) *int64 {
	return &v
}
