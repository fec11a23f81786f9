package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/mailer"
	"github.com/saos/service-desk/internal/repository"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

const (
	maxTemplateNameLen    = 100
	maxTemplateSubjectLen = 200
)

// TemplateService is the sole writer of e-mail templates.
type TemplateService struct {
	templates repository.TemplateRepository
	mail      Mailer
	logger    *zap.Logger
	clock     Clock
}

// TemplateDependencies bundles collaborators for the template store.
type TemplateDependencies struct {
	TemplateRepo repository.TemplateRepository
	Mailer       Mailer
	Logger       *zap.Logger
	Clock        Clock
}

// TemplateInput is the editable part of a template.
type TemplateInput struct {
	Name      string
	Subject   string
	HTMLBody  string
	TextBody  string
	Variables []string
	Active    bool
}

// NewTemplateService constructs the service.
func NewTemplateService(deps TemplateDependencies) *TemplateService {
	return &TemplateService{
		templates: deps.TemplateRepo,
		mail:      deps.Mailer,
		logger:    nopIfNil(deps.Logger),
		clock:     deps.Clock,
	}
}

// List returns templates ordered by name.
func (s *TemplateService) List(ctx context.Context, activeOnly bool) ([]domain.EmailTemplate, error) {
	items, err := s.templates.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return items, nil
}

// Get returns a template by id whether or not it is active.
func (s *TemplateService) Get(ctx context.Context, id int64) (*domain.EmailTemplate, error) {
	tpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError("template", err)
	}
	return tpl, nil
}

// GetByName returns the active template registered under name.
func (s *TemplateService) GetByName(ctx context.Context, name string) (*domain.EmailTemplate, error) {
	tpl, err := s.templates.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, apperrors.MapError("template", err)
	}
	return tpl, nil
}

// Create stores a template. It does not run Validate; callers decide whether
// an invalid result blocks them.
func (s *TemplateService) Create(ctx context.Context, in TemplateInput) (*domain.EmailTemplate, error) {
	now := s.clock.now()
	tpl := &domain.EmailTemplate{
		Name:      strings.TrimSpace(in.Name),
		Subject:   in.Subject,
		HTMLBody:  in.HTMLBody,
		TextBody:  in.TextBody,
		Variables: normalizeVariables(in.Variables),
		Active:    in.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, s.mapWriteError(tpl.Name, err)
	}
	s.logger.Info("email template created", zap.Int64("template_id", tpl.ID), zap.String("name", tpl.Name))
	return tpl, nil
}

// Update replaces the editable fields and refreshes the updated timestamp.
func (s *TemplateService) Update(ctx context.Context, id int64, in TemplateInput) (*domain.EmailTemplate, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl.Name = strings.TrimSpace(in.Name)
	tpl.Subject = in.Subject
	tpl.HTMLBody = in.HTMLBody
	tpl.TextBody = in.TextBody
	tpl.Variables = normalizeVariables(in.Variables)
	tpl.Active = in.Active
	tpl.UpdatedAt = s.clock.now()
	if err := s.templates.Update(ctx, tpl); err != nil {
		return nil, s.mapWriteError(tpl.Name, err)
	}
	return tpl, nil
}

// SoftDelete deactivates the template. Rows are never removed.
func (s *TemplateService) SoftDelete(ctx context.Context, id int64) error {
	return s.SetActive(ctx, id, false)
}

// SetActive flips the active flag.
func (s *TemplateService) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.templates.SetActive(ctx, id, active, s.clock.now()); err != nil {
		return s.mapWriteError("", err)
	}
	return nil
}

// Toggle inverts the active flag and returns the new state.
func (s *TemplateService) Toggle(ctx context.Context, id int64) (bool, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if err := s.SetActive(ctx, id, !tpl.Active); err != nil {
		return false, err
	}
	return !tpl.Active, nil
}

// ExtractVariables lists the distinct {name} placeholders in text.
func (s *TemplateService) ExtractVariables(text string) []string {
	return mailer.ExtractVariables(text)
}

// Validate checks required fields and lengths, and compares the placeholders
// in use with the declared variable list.
func (s *TemplateService) Validate(in TemplateInput) domain.TemplateValidation {
	result := domain.TemplateValidation{Errors: []string{}, Warnings: []string{}}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		result.Errors = append(result.Errors, "Nome do template é obrigatório")
	}
	if strings.TrimSpace(in.Subject) == "" {
		result.Errors = append(result.Errors, "Assunto do email é obrigatório")
	}
	if strings.TrimSpace(in.HTMLBody) == "" {
		result.Errors = append(result.Errors, "Corpo HTML é obrigatório")
	}
	if utf8.RuneCountInString(name) > maxTemplateNameLen {
		result.Errors = append(result.Errors, "Nome do template deve ter no máximo 100 caracteres")
	}
	if utf8.RuneCountInString(in.Subject) > maxTemplateSubjectLen {
		result.Errors = append(result.Errors, "Assunto deve ter no máximo 200 caracteres")
	}

	used := mailer.ExtractVariables(in.HTMLBody)
	for _, v := range append(mailer.ExtractVariables(in.Subject), mailer.ExtractVariables(in.TextBody)...) {
		if !slices.Contains(used, v) {
			used = append(used, v)
		}
	}
	slices.Sort(used)
	declared := normalizeVariables(in.Variables)

	var undeclared, unused []string
	for _, v := range used {
		if !slices.Contains(declared, v) {
			undeclared = append(undeclared, v)
		}
	}
	for _, v := range declared {
		if !slices.Contains(used, v) {
			unused = append(unused, v)
		}
	}
	if len(undeclared) > 0 {
		result.Warnings = append(result.Warnings, "Variáveis não documentadas: "+strings.Join(undeclared, ", "))
	}
	if len(unused) > 0 {
		result.Warnings = append(result.Warnings, "Variáveis documentadas mas não usadas: "+strings.Join(unused, ", "))
	}

	result.Variables = used
	result.Valid = len(result.Errors) == 0
	return result
}

// Defaults lists the built-in templates.
func (s *TemplateService) Defaults() []DefaultTemplate {
	return defaultTemplates()
}

// InstallDefault creates the built-in template registered under name.
func (s *TemplateService) InstallDefault(ctx context.Context, name string) (*domain.EmailTemplate, error) {
	def, ok := findDefaultTemplate(name)
	if !ok {
		return nil, apperrors.NewNotFound("default template", map[string]any{"nome": name})
	}
	return s.Create(ctx, TemplateInput{
		Name:      def.Name,
		Subject:   def.Subject,
		HTMLBody:  def.HTMLBody,
		TextBody:  def.TextBody,
		Variables: def.Variables,
		Active:    true,
	})
}

// SendTest renders the template with vars and sends it to one address. A
// missing template is an error; a failed delivery is reported as false.
func (s *TemplateService) SendTest(ctx context.Context, templateID int64, to string, vars mailer.Variables) (bool, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return false, apperrors.NewValidationError("destinatário obrigatório", map[string]any{"fields": []string{"email_destino"}})
	}
	tpl, err := s.Get(ctx, templateID)
	if err != nil {
		return false, err
	}
	if s.mail == nil {
		return false, nil
	}
	rendered := mailer.Render(*tpl, vars)
	return s.mail.Send(ctx, mailer.Message{
		To:      to,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
	}), nil
}

func (s *TemplateService) mapWriteError(name string, err error) error {
	if errors.Is(err, repository.ErrDuplicateTemplateName) {
		return apperrors.NewConflict("já existe um template ativo com este nome", map[string]any{"nome": name})
	}
	return apperrors.MapError("template", err)
}

func normalizeVariables(vars []string) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
