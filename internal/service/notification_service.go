package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/config"
	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/events"
	"github.com/saos/service-desk/internal/mailer"
	"github.com/saos/service-desk/internal/observability"
	"github.com/saos/service-desk/internal/repository"
)

// Mailer delivers one message and reports whether it went out.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) bool
}

// NotificationArgs carries the scenario-specific extras.
type NotificationArgs struct {
	Comment     string
	Information string
	Solution    string
	Attachments []string
}

const (
	defaultSystemName   = "Sistema Principal"
	defaultResponsible  = "Sistema"
	defaultComment      = "Nenhum comentário adicional"
	unknownStatusName   = "Desconhecido"
	defaultStatusColor  = "#6B7280"
	defaultPriorityTier = "media"
)

// NotificationService renders scenario templates against a request's display
// data and hands them to the mailer. Every entry point returns a bool and
// never an error.
type NotificationService struct {
	requests   repository.RequestRepository
	templates  repository.TemplateRepository
	mail       Mailer
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	links      config.LinksConfig
	loc        *time.Location
	logger     *zap.Logger
	clock      Clock
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	RequestRepo  repository.RequestRepository
	TemplateRepo repository.TemplateRepository
	Mailer       Mailer
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Links        config.LinksConfig
	Location     *time.Location
	Logger       *zap.Logger
	Clock        Clock
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{
		requests:   deps.RequestRepo,
		templates:  deps.TemplateRepo,
		mail:       deps.Mailer,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		links:      deps.Links,
		loc:        loc,
		logger:     nopIfNil(deps.Logger),
		clock:      deps.Clock,
	}
}

// RegisterHandlers subscribes to request events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventRequestStatusChanged, n.handleRequestStatusChanged)
	n.dispatcher.Subscribe(events.EventRequestAssigned, n.handleRequestAssigned)
}

func (n *NotificationService) handleRequestCreated(ctx context.Context, event events.Event) error {
	n.SendOpeningConfirmation(ctx, event.RequestID)
	return nil
}

func (n *NotificationService) handleRequestStatusChanged(ctx context.Context, event events.Event) error {
	var comment string
	if payload, ok := event.Payload.(events.RequestStatusChangedPayload); ok {
		comment = payload.Comment
	}
	n.SendStatusUpdate(ctx, event.RequestID, comment)
	return nil
}

func (n *NotificationService) handleRequestAssigned(ctx context.Context, event events.Event) error {
	n.SendTechnicianAssignment(ctx, event.RequestID)
	return nil
}

// SendOpeningConfirmation sends confirmacao_abertura to the client.
func (n *NotificationService) SendOpeningConfirmation(ctx context.Context, requestID int64) bool {
	return n.Send(ctx, TemplateOpeningConfirmation, requestID, NotificationArgs{})
}

// SendStatusUpdate sends atualizacao_status to the client.
func (n *NotificationService) SendStatusUpdate(ctx context.Context, requestID int64, comment string) bool {
	return n.Send(ctx, TemplateStatusUpdate, requestID, NotificationArgs{Comment: comment})
}

// SendInformationRequest asks the client for more details.
func (n *NotificationService) SendInformationRequest(ctx context.Context, requestID int64, information string) bool {
	return n.Send(ctx, TemplateInformationRequest, requestID, NotificationArgs{Information: information})
}

// SendResolution tells the client the request was resolved.
func (n *NotificationService) SendResolution(ctx context.Context, requestID int64, solution string) bool {
	return n.Send(ctx, TemplateResolution, requestID, NotificationArgs{Solution: solution})
}

// SendDeadlineReminder sends lembrete_prazo to the client.
func (n *NotificationService) SendDeadlineReminder(ctx context.Context, requestID int64) bool {
	return n.Send(ctx, TemplateDeadlineReminder, requestID, NotificationArgs{})
}

// SendTechnicianAssignment tells the responsible technician about the request.
func (n *NotificationService) SendTechnicianAssignment(ctx context.Context, requestID int64) bool {
	return n.Send(ctx, TemplateTechnicianAssigned, requestID, NotificationArgs{})
}

// Scenarios lists the names accepted by Send.
func (n *NotificationService) Scenarios() []string {
	return []string{
		TemplateOpeningConfirmation,
		TemplateStatusUpdate,
		TemplateInformationRequest,
		TemplateResolution,
		TemplateDeadlineReminder,
		TemplateTechnicianAssigned,
	}
}

// Send renders the scenario's template for the request and delivers it. It
// returns false when the request or the active template is missing, when the
// scenario has no recipient, or when delivery fails.
func (n *NotificationService) Send(ctx context.Context, scenario string, requestID int64, args NotificationArgs) (ok bool) {
	log := n.logger.With(zap.String("scenario", scenario), zap.Int64("request_id", requestID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("notification panicked", zap.Any("panic", r))
			ok = false
		}
		n.metrics.RecordNotification(scenario, ok)
	}()

	detail, err := n.requests.GetDetail(ctx, requestID)
	if err != nil {
		log.Warn("notification skipped: request not found", zap.Error(err))
		return false
	}

	vars, to, known := n.variables(scenario, detail, args)
	if !known {
		log.Warn("notification skipped: unknown scenario")
		return false
	}
	if strings.TrimSpace(to) == "" {
		log.Warn("notification skipped: no recipient")
		return false
	}

	return n.deliver(ctx, log, scenario, to, vars, args.Attachments)
}

// SendWelcome greets a newly registered client.
func (n *NotificationService) SendWelcome(ctx context.Context, user *domain.User) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("notification panicked", zap.Any("panic", r))
			ok = false
		}
		n.metrics.RecordNotification(TemplateClientWelcome, ok)
	}()
	if user == nil {
		return false
	}
	log := n.logger.With(zap.String("scenario", TemplateClientWelcome), zap.Int64("user_id", user.ID))
	vars := mailer.Variables{
		"nome_cliente":   user.Name,
		"link_dashboard": n.links.BaseURL + "/dashboard",
	}
	return n.deliver(ctx, log, TemplateClientWelcome, user.Email, vars, nil)
}

func (n *NotificationService) deliver(ctx context.Context, log *zap.Logger, name, to string, vars mailer.Variables, attachments []string) bool {
	tpl, err := n.templates.GetByName(ctx, name)
	if err != nil {
		log.Warn("notification skipped: template missing or inactive", zap.Error(err))
		return false
	}
	if n.mail == nil {
		log.Warn("notification skipped: mailer not configured")
		return false
	}
	rendered := mailer.Render(*tpl, vars)
	return n.mail.Send(ctx, mailer.Message{
		To:          to,
		Subject:     rendered.Subject,
		HTML:        rendered.HTML,
		Text:        rendered.Text,
		Attachments: attachments,
	})
}

// variables assembles the placeholder values for scenario and picks the
// recipient. known is false for unrecognised scenarios.
func (n *NotificationService) variables(scenario string, d *domain.RequestDetail, args NotificationArgs) (vars mailer.Variables, to string, known bool) {
	now := n.clock.now()
	responsible := defaultResponsible
	if d.TechnicianName != nil && strings.TrimSpace(*d.TechnicianName) != "" {
		responsible = *d.TechnicianName
	}

	vars = mailer.Variables{
		"codigo_referencia": d.ReferenceCode,
		"nome_cliente":      d.ClientName,
		"titulo":            d.Title,
	}
	to = d.ClientEmail

	switch scenario {
	case TemplateOpeningConfirmation:
		vars["categoria"] = d.CategoryName
		vars["prioridade"] = d.PriorityName
		vars["prioridade_classe"] = priorityTier(d.PriorityID)
		vars["prazo_estimado"] = mailer.FormatDeadline(d.ResolutionDeadline, n.loc)
		vars["descricao"] = d.Description
		vars["data_hora"] = mailer.FormatOpened(d.CreatedAt, n.loc)
		vars["tipo_solicitacao"] = d.Title
		vars["sistema"] = valueOr(d.System, defaultSystemName)
		vars["link_acompanhamento"] = n.trackingLink(d.ReferenceCode)
	case TemplateStatusUpdate:
		vars["novo_status"] = nonEmpty(d.StatusName, unknownStatusName)
		vars["cor_status"] = nonEmpty(d.StatusColor, defaultStatusColor)
		vars["responsavel"] = responsible
		vars["data_atualizacao"] = mailer.FormatTimestamp(&now, n.loc)
		vars["comentario"] = nonEmpty(strings.TrimSpace(args.Comment), defaultComment)
		vars["link_acompanhamento"] = n.trackingLink(d.ReferenceCode)
	case TemplateInformationRequest:
		vars["responsavel"] = responsible
		vars["informacoes_necessarias"] = strings.TrimSpace(args.Information)
		vars["link_atualizacao"] = fmt.Sprintf("%s/atualizar/%s", n.links.BaseURL, d.ReferenceCode)
	case TemplateResolution:
		vars["solucao"] = strings.TrimSpace(args.Solution)
		vars["responsavel"] = responsible
		vars["data_resolucao"] = mailer.FormatTimestamp(d.ResolvedAt, n.loc)
		vars["tempo_resolucao"] = mailer.ResolutionTime(d.CreatedAt, d.ResolvedAt)
		vars["link_avaliacao"] = fmt.Sprintf("%s/avaliar/%s", n.links.BaseURL, d.ReferenceCode)
	case TemplateDeadlineReminder:
		vars["prazo_limite"] = mailer.FormatDeadline(d.ResolutionDeadline, n.loc)
		vars["tempo_restante"] = mailer.TimeRemaining(d.ResolutionDeadline, now)
		vars["responsavel"] = responsible
		vars["link_acompanhamento"] = n.trackingLink(d.ReferenceCode)
	case TemplateTechnicianAssigned:
		vars["categoria"] = d.CategoryName
		vars["prioridade"] = d.PriorityName
		vars["descricao"] = d.Description
		vars["prazo_limite"] = mailer.FormatDeadline(d.ResolutionDeadline, n.loc)
		vars["link_solicitacao"] = fmt.Sprintf("%s/solicitacao/%d", n.links.BaseURL, d.ID)
		to = valueOr(d.TechnicianEmail, "")
	default:
		return nil, "", false
	}
	return vars, to, true
}

func (n *NotificationService) trackingLink(code string) string {
	return fmt.Sprintf("%s/acompanhar/%s", n.links.BaseURL, code)
}

// priorityTier maps the seeded priority ids to a CSS class suffix.
func priorityTier(priorityID int64) string {
	switch priorityID {
	case 1:
		return "baixa"
	case 2:
		return "media"
	case 3:
		return "alta"
	case 4:
		return "urgente"
	default:
		return defaultPriorityTier
	}
}

func valueOr(p *string, fallback string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return fallback
	}
	return *p
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
