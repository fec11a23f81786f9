package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/config"
	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/events"
	"github.com/saos/service-desk/internal/refcode"
	"github.com/saos/service-desk/internal/repository"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

const maxReferenceAttempts = 5

// LifecycleService is the sole writer of request rows. Every state change it
// makes is paired with a history entry in the same transaction.
type LifecycleService struct {
	requests   repository.RequestRepository
	history    repository.HistoryRepository
	catalog    repository.CatalogRepository
	users      repository.UserRepository
	tx         repository.TxManager
	sequencer  refcode.Sequencer
	dispatcher events.Dispatcher
	cfg        config.LifecycleConfig
	loc        *time.Location
	logger     *zap.Logger
	clock      Clock
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	RequestRepo repository.RequestRepository
	HistoryRepo repository.HistoryRepository
	CatalogRepo repository.CatalogRepository
	UserRepo    repository.UserRepository
	TxManager   repository.TxManager
	Sequencer   refcode.Sequencer
	Dispatcher  events.Dispatcher
	Config      config.LifecycleConfig
	Location    *time.Location
	Logger      *zap.Logger
	Clock       Clock
}

// CreateRequestInput describes a new request.
type CreateRequestInput struct {
	Title        string
	Description  string
	ClientID     int64
	CategoryID   int64
	PriorityID   int64
	CreatedByID  *int64
	System       *string
	Module       *string
	Urgent       bool
	Confidential bool
	IPAddress    *string
}

// TransitionInput moves a request to another status. TechnicianID defaults to
// the actor, who becomes the responsible technician.
type TransitionInput struct {
	RequestID    int64
	StatusID     int64
	ActorID      int64
	TechnicianID *int64
	Comment      string
	IPAddress    *string
}

// RequestPatch lists editable request fields. Unset fields are left alone;
// an empty System or Module clears it.
type RequestPatch struct {
	Title        null.String
	Description  null.String
	CategoryID   null.Int64
	PriorityID   null.Int64
	System       null.String
	Module       null.String
	Urgent       null.Bool
	Confidential null.Bool
}

// AssignInput hands a request to a technician.
type AssignInput struct {
	RequestID    int64
	TechnicianID int64
	ActorID      int64
	IPAddress    *string
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	sequencer := deps.Sequencer
	if sequencer == nil {
		sequencer = refcode.NewCountSequencer(deps.RequestRepo)
	}
	return &LifecycleService{
		requests:   deps.RequestRepo,
		history:    deps.HistoryRepo,
		catalog:    deps.CatalogRepo,
		users:      deps.UserRepo,
		tx:         deps.TxManager,
		sequencer:  sequencer,
		dispatcher: deps.Dispatcher,
		cfg:        deps.Config,
		loc:        loc,
		logger:     nopIfNil(deps.Logger),
		clock:      deps.Clock,
	}
}

// Create validates input, computes deadlines from the priority SLA, issues a
// reference code and stores the request with its CRIACAO entry.
func (s *LifecycleService) Create(ctx context.Context, in CreateRequestInput) (*domain.Request, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	var missing []string
	if in.Title == "" {
		missing = append(missing, "titulo")
	}
	if in.Description == "" {
		missing = append(missing, "descricao")
	}
	if in.ClientID <= 0 {
		missing = append(missing, "cliente_id")
	}
	if in.CategoryID <= 0 {
		missing = append(missing, "categoria_id")
	}
	if in.PriorityID <= 0 {
		missing = append(missing, "prioridade_id")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("campos obrigatórios não informados", map[string]any{"fields": missing})
	}

	sla, escalation, err := s.deadlineWindows(ctx, in.PriorityID)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	req := &domain.Request{
		Title:              in.Title,
		Description:        in.Description,
		ClientID:           in.ClientID,
		CategoryID:         in.CategoryID,
		PriorityID:         in.PriorityID,
		StatusID:           s.cfg.OpenStatusID,
		CreatedByID:        in.CreatedByID,
		System:             trimmedOrNil(in.System),
		Module:             trimmedOrNil(in.Module),
		Urgent:             in.Urgent,
		Confidential:       in.Confidential,
		ResolutionDeadline: ptr(now.Add(sla)),
		EscalationDeadline: ptr(now.Add(escalation)),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	actorID := in.ClientID
	if in.CreatedByID != nil && *in.CreatedByID > 0 {
		actorID = *in.CreatedByID
	}

	day := now.In(s.loc)
	prefix := domain.ReferencePrefix(day)
	for attempt := 1; ; attempt++ {
		seq, err := s.sequencer.Next(ctx, prefix)
		if err != nil {
			return nil, apperrors.NewStorageError(err)
		}
		req.ID = 0
		req.ReferenceCode = domain.FormatReferenceCode(day, seq)

		err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
			if err := s.requests.Create(ctx, tx, req); err != nil {
				return err
			}
			return s.history.Create(ctx, tx, &domain.HistoryEntry{
				RequestID:   req.ID,
				UserID:      actorID,
				Action:      domain.HistoryActionCreated,
				Description: "Solicitação criada",
				After:       creationPayload(req),
				IPAddress:   in.IPAddress,
				CreatedAt:   now,
			})
		})
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateReference) {
			return nil, s.mapWriteError(err)
		}
		if attempt >= maxReferenceAttempts {
			s.logger.Error("reference code allocation exhausted", zap.String("prefix", prefix), zap.Int("attempts", attempt))
			return nil, apperrors.NewConflict("não foi possível gerar o código de referência", map[string]any{"prefix": prefix})
		}
		s.logger.Warn("reference code collision; retrying",
			zap.String("reference_code", req.ReferenceCode),
			zap.Int("attempt", attempt))
	}

	s.logger.Info("request created",
		zap.Int64("request_id", req.ID),
		zap.String("reference_code", req.ReferenceCode),
		zap.Int64("actor_id", actorID))

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: req.ID,
		ActorID:   actorID,
		Timestamp: now,
		Payload: events.RequestCreatedPayload{
			ReferenceCode: req.ReferenceCode,
			PriorityID:    req.PriorityID,
			Title:         req.Title,
		},
	})
	return req, nil
}

// TransitionStatus moves the request to in.StatusID. Any status may follow any
// other; TransitionGuard adds a transition table in front of this when enabled.
func (s *LifecycleService) TransitionStatus(ctx context.Context, in TransitionInput) (*domain.Request, error) {
	if in.StatusID <= 0 {
		return nil, apperrors.NewValidationError("status obrigatório", map[string]any{"fields": []string{"status_id"}})
	}

	req, err := s.requests.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, apperrors.MapError("request", err)
	}

	status, err := s.catalog.GetStatus(ctx, in.StatusID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewValidationError("status desconhecido", map[string]any{"status_id": in.StatusID})
		}
		return nil, apperrors.NewStorageError(err)
	}

	now := s.clock.now()
	oldStatus := req.StatusID
	req.StatusID = status.ID
	switch {
	case in.TechnicianID != nil:
		req.TechnicianID = in.TechnicianID
	case in.ActorID > 0:
		req.TechnicianID = ptr(in.ActorID)
	}
	req.UpdatedAt = now
	if status.Finalizing && req.ResolvedAt == nil {
		req.ResolvedAt = ptr(notBefore(now, req.CreatedAt))
	}
	if status.ID == s.cfg.ClosedStatusID && req.ClosedAt == nil {
		req.ClosedAt = ptr(notBefore(now, req.CreatedAt))
	}

	comment := strings.TrimSpace(in.Comment)
	entry := &domain.HistoryEntry{
		RequestID:   req.ID,
		UserID:      in.ActorID,
		Action:      domain.HistoryActionStatusChanged,
		Description: statusChangeDescription(status.Name, comment),
		Before:      map[string]any{"status_id": oldStatus},
		After:       map[string]any{"status_id": status.ID},
		IPAddress:   in.IPAddress,
		CreatedAt:   now,
	}
	err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := s.requests.Update(ctx, tx, req); err != nil {
			return err
		}
		return s.history.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, s.mapWriteError(err)
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventRequestStatusChanged,
		RequestID: req.ID,
		ActorID:   in.ActorID,
		Timestamp: now,
		Payload: events.RequestStatusChangedPayload{
			OldStatusID: oldStatus,
			NewStatusID: status.ID,
			Comment:     comment,
		},
	})
	return req, nil
}

// UpdateRequest applies patch. Deadlines are fixed at creation and are not
// recomputed even when the priority changes.
func (s *LifecycleService) UpdateRequest(ctx context.Context, requestID, actorID int64, patch RequestPatch, ip *string) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError("request", err)
	}

	before := map[string]any{}
	after := map[string]any{}
	var fields []string
	track := func(field string, old, updated any) {
		before[field] = old
		after[field] = updated
		fields = append(fields, field)
	}

	if patch.Title.Valid {
		title := strings.TrimSpace(patch.Title.String)
		if title == "" {
			return nil, apperrors.NewValidationError("título não pode ser vazio", map[string]any{"fields": []string{"titulo"}})
		}
		if title != req.Title {
			track("titulo", req.Title, title)
			req.Title = title
		}
	}
	if patch.Description.Valid {
		desc := strings.TrimSpace(patch.Description.String)
		if desc == "" {
			return nil, apperrors.NewValidationError("descrição não pode ser vazia", map[string]any{"fields": []string{"descricao"}})
		}
		if desc != req.Description {
			track("descricao", req.Description, desc)
			req.Description = desc
		}
	}
	if patch.CategoryID.Valid && patch.CategoryID.Int64 != req.CategoryID {
		if patch.CategoryID.Int64 <= 0 {
			return nil, apperrors.NewValidationError("categoria inválida", map[string]any{"fields": []string{"categoria_id"}})
		}
		track("categoria_id", req.CategoryID, patch.CategoryID.Int64)
		req.CategoryID = patch.CategoryID.Int64
	}
	if patch.PriorityID.Valid && patch.PriorityID.Int64 != req.PriorityID {
		if patch.PriorityID.Int64 <= 0 {
			return nil, apperrors.NewValidationError("prioridade inválida", map[string]any{"fields": []string{"prioridade_id"}})
		}
		track("prioridade_id", req.PriorityID, patch.PriorityID.Int64)
		req.PriorityID = patch.PriorityID.Int64
	}
	if patch.System.Valid {
		updated := trimmedOrNil(&patch.System.String)
		if !equalStringPtr(req.System, updated) {
			track("sistema", derefOrNil(req.System), derefOrNil(updated))
			req.System = updated
		}
	}
	if patch.Module.Valid {
		updated := trimmedOrNil(&patch.Module.String)
		if !equalStringPtr(req.Module, updated) {
			track("modulo", derefOrNil(req.Module), derefOrNil(updated))
			req.Module = updated
		}
	}
	if patch.Urgent.Valid && patch.Urgent.Bool != req.Urgent {
		track("urgente", req.Urgent, patch.Urgent.Bool)
		req.Urgent = patch.Urgent.Bool
	}
	if patch.Confidential.Valid && patch.Confidential.Bool != req.Confidential {
		track("confidencial", req.Confidential, patch.Confidential.Bool)
		req.Confidential = patch.Confidential.Bool
	}

	if len(fields) == 0 {
		return req, nil
	}

	now := s.clock.now()
	req.UpdatedAt = now
	err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := s.requests.Update(ctx, tx, req); err != nil {
			return err
		}
		return s.history.Create(ctx, tx, &domain.HistoryEntry{
			RequestID:   req.ID,
			UserID:      actorID,
			Action:      domain.HistoryActionUpdated,
			Description: fmt.Sprintf("Solicitação atualizada: %s", strings.Join(fields, ", ")),
			Before:      before,
			After:       after,
			IPAddress:   ip,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, s.mapWriteError(err)
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventRequestUpdated,
		RequestID: req.ID,
		ActorID:   actorID,
		Timestamp: now,
		Payload:   events.RequestUpdatedPayload{Fields: fields},
	})
	return req, nil
}

// AssignTechnician makes an active technician or administrator responsible
// for the request.
func (s *LifecycleService) AssignTechnician(ctx context.Context, in AssignInput) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, apperrors.MapError("request", err)
	}
	technician, err := s.users.GetByID(ctx, in.TechnicianID)
	if err != nil {
		return nil, apperrors.MapError("technician", err)
	}
	if !technician.Active || !technician.Role.IsStaff() {
		return nil, apperrors.NewValidationError("usuário não é um técnico ativo", map[string]any{"tecnico_id": in.TechnicianID})
	}
	if req.TechnicianID != nil && *req.TechnicianID == technician.ID {
		return req, nil
	}

	now := s.clock.now()
	oldTechnician := req.TechnicianID
	req.TechnicianID = ptr(technician.ID)
	req.UpdatedAt = now
	err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := s.requests.Update(ctx, tx, req); err != nil {
			return err
		}
		return s.history.Create(ctx, tx, &domain.HistoryEntry{
			RequestID:   req.ID,
			UserID:      in.ActorID,
			Action:      domain.HistoryActionAssigned,
			Description: fmt.Sprintf("Solicitação atribuída a %s", technician.Name),
			Before:      map[string]any{"tecnico_id": derefOrNil(oldTechnician)},
			After:       map[string]any{"tecnico_id": technician.ID},
			IPAddress:   in.IPAddress,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, s.mapWriteError(err)
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventRequestAssigned,
		RequestID: req.ID,
		ActorID:   in.ActorID,
		Timestamp: now,
		Payload: events.RequestAssignedPayload{
			OldTechnicianID: oldTechnician,
			TechnicianID:    technician.ID,
		},
	})
	return req, nil
}

// RecordAnalysis appends an ANALISE entry without touching the request row.
func (s *LifecycleService) RecordAnalysis(ctx context.Context, requestID, actorID int64, analysis string, ip *string) (*domain.HistoryEntry, error) {
	analysis = strings.TrimSpace(analysis)
	if analysis == "" {
		return nil, apperrors.NewValidationError("análise obrigatória", map[string]any{"fields": []string{"analise"}})
	}
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, apperrors.MapError("request", err)
	}
	entry := &domain.HistoryEntry{
		RequestID:   requestID,
		UserID:      actorID,
		Action:      domain.HistoryActionAnalysis,
		Description: analysis,
		IPAddress:   ip,
		CreatedAt:   s.clock.now(),
	}
	if err := s.history.Create(ctx, nil, entry); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return entry, nil
}

// Get returns a request with its display data.
func (s *LifecycleService) Get(ctx context.Context, requestID int64) (*domain.RequestDetail, error) {
	detail, err := s.requests.GetDetail(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError("request", err)
	}
	return detail, nil
}

// GetByReference looks a request up by its OS code.
func (s *LifecycleService) GetByReference(ctx context.Context, code string) (*domain.RequestDetail, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperrors.NewValidationError("código de referência obrigatório", nil)
	}
	detail, err := s.requests.GetDetailByReference(ctx, code)
	if err != nil {
		return nil, apperrors.MapError("request", err)
	}
	return detail, nil
}

// List filters requests, newest first.
func (s *LifecycleService) List(ctx context.Context, filter repository.RequestFilter) ([]domain.RequestDetail, error) {
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedTo.Before(*filter.CreatedFrom) {
		return nil, apperrors.NewValidationError("intervalo de datas inválido", nil)
	}
	items, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return items, nil
}

// Urgent lists open requests whose deadline falls within the urgent window,
// earliest deadline first.
func (s *LifecycleService) Urgent(ctx context.Context, limit int) ([]domain.RequestDetail, error) {
	now := s.clock.now()
	items, err := s.requests.ListUrgent(ctx, now, now.Add(s.cfg.UrgentWindow()), s.cfg.TerminalStatusIDs, limit)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return items, nil
}

// Overdue lists open requests past their deadline, earliest deadline first.
func (s *LifecycleService) Overdue(ctx context.Context, limit int) ([]domain.RequestDetail, error) {
	items, err := s.requests.ListOverdue(ctx, s.clock.now(), s.cfg.TerminalStatusIDs, limit)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return items, nil
}

// History returns the ledger of one request, newest first.
func (s *LifecycleService) History(ctx context.Context, requestID int64, limit int) ([]domain.HistoryEntry, error) {
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, apperrors.MapError("request", err)
	}
	entries, err := s.history.ListByRequest(ctx, requestID, limit)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return entries, nil
}

// Ledger lists history entries across requests.
func (s *LifecycleService) Ledger(ctx context.Context, filter repository.HistoryFilter) ([]domain.HistoryEntry, error) {
	entries, err := s.history.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return entries, nil
}

// Flags evaluates the urgent and overdue predicates at the current time.
func (s *LifecycleService) Flags(req domain.Request) (urgent, overdue bool) {
	now := s.clock.now()
	return req.IsUrgent(now, s.cfg.UrgentWindow(), s.cfg.TerminalStatusIDs),
		req.IsOverdue(now, s.cfg.TerminalStatusIDs)
}

func (s *LifecycleService) deadlineWindows(ctx context.Context, priorityID int64) (time.Duration, time.Duration, error) {
	priority, err := s.catalog.GetPriority(ctx, priorityID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			s.logger.Warn("priority not found; using default deadlines", zap.Int64("priority_id", priorityID))
			return hours(s.cfg.DefaultSLAHours, 72), hours(s.cfg.DefaultEscalationHours, 48), nil
		}
		return 0, 0, apperrors.NewStorageError(err)
	}
	return priority.SLA(), priority.Escalation(), nil
}

func (s *LifecycleService) mapWriteError(err error) error {
	if errors.Is(err, repository.ErrUnknownReference) {
		return apperrors.NewValidationError("referência inexistente (cliente, categoria, prioridade ou técnico)", nil)
	}
	return apperrors.MapError("request", err)
}

func creationPayload(req *domain.Request) map[string]any {
	payload := map[string]any{
		"codigo_referencia": req.ReferenceCode,
		"status_id":         req.StatusID,
		"prioridade_id":     req.PriorityID,
	}
	if req.ResolutionDeadline != nil {
		payload["prazo_resolucao"] = req.ResolutionDeadline.UTC().Format(time.RFC3339)
	}
	if req.EscalationDeadline != nil {
		payload["prazo_escalonamento"] = req.EscalationDeadline.UTC().Format(time.RFC3339)
	}
	return payload
}

func statusChangeDescription(name, comment string) string {
	if strings.TrimSpace(name) == "" {
		name = "Desconhecido"
	}
	desc := "Status alterado para " + name
	if comment != "" {
		desc += " - " + comment
	}
	return desc
}

func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}

func hours(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Hour
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func derefOrNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
