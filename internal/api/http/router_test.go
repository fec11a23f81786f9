package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/api/http/handlers"
	"github.com/saos/service-desk/internal/auth"
	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/mailer"
	"github.com/saos/service-desk/internal/observability"
	"github.com/saos/service-desk/internal/repository"
	"github.com/saos/service-desk/internal/service"
)

type stubUsers map[int64]*domain.User

func (s stubUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type routerFixture struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	metrics *observability.Metrics
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	return newRouterFixtureWith(t, handlers.RequestsHandlerDeps{
		Notifications: service.NewNotificationService(service.NotificationDependencies{}),
	})
}

func newRouterFixtureWith(t *testing.T, requests handlers.RequestsHandlerDeps) *routerFixture {
	t.Helper()
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)

	tokens := auth.NewTokenManager("secret", 10)
	users := stubUsers{
		10: {ID: 10, Name: "Maria Cliente", Role: domain.RoleClient, Active: true},
		20: {ID: 20, Name: "João Técnico", Role: domain.RoleTechnician, Active: true},
		30: {ID: 30, Name: "Ana Admin", Role: domain.RoleAdmin, Active: true},
	}

	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("saos", "test", nil, nil),
		Auth:           handlers.NewAuthHandler(nil),
		Requests:       handlers.NewRequestsHandler(requests),
		Templates:      handlers.NewTemplatesHandler(service.NewTemplateService(service.TemplateDependencies{})),
		Users:          handlers.NewUsersHandler(nil),
		Dashboard:      handlers.NewDashboardHandler(nil, nil, metrics, nil),
		Catalog:        handlers.NewCatalogHandler(nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users),
	})
	return &routerFixture{app: app, tokens: tokens, metrics: metrics}
}

func (f *routerFixture) do(t *testing.T, method, path string, userID int64, role domain.UserRole, body string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if userID != 0 {
		token, _, err := f.tokens.GenerateToken(userID, role)
		require.NoError(t, err)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newRouterFixture(t)

	resp, env := f.do(t, http.MethodGet, "/api/v1/solicitacoes", 0, "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
	assert.NotEmpty(t, resp.Header.Get(observability.RequestIDHeader))
}

func TestRoleGuards(t *testing.T) {
	f := newRouterFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		userID int64
		role   domain.UserRole
		want   int
	}{
		{name: "client cannot read metrics", method: http.MethodGet, path: "/api/v1/admin/metrics", userID: 10, role: domain.RoleClient, want: http.StatusForbidden},
		{name: "technician cannot read metrics", method: http.MethodGet, path: "/api/v1/admin/metrics", userID: 20, role: domain.RoleTechnician, want: http.StatusForbidden},
		{name: "admin reads metrics", method: http.MethodGet, path: "/api/v1/admin/metrics", userID: 30, role: domain.RoleAdmin, want: http.StatusOK},
		{name: "client cannot list urgent", method: http.MethodGet, path: "/api/v1/solicitacoes/urgentes", userID: 10, role: domain.RoleClient, want: http.StatusForbidden},
		{name: "client cannot change status", method: http.MethodPut, path: "/api/v1/solicitacoes/1/status", userID: 10, role: domain.RoleClient, want: http.StatusForbidden},
		{name: "technician cannot manage users", method: http.MethodGet, path: "/api/v1/usuarios", userID: 20, role: domain.RoleTechnician, want: http.StatusForbidden},
		{name: "technician cannot manage templates", method: http.MethodGet, path: "/api/v1/templates-email/padrao", userID: 20, role: domain.RoleTechnician, want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := f.do(t, tt.method, tt.path, tt.userID, tt.role, "")
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestLoginValidatesPayload(t *testing.T) {
	f := newRouterFixture(t)

	resp, env := f.do(t, http.MethodPost, "/api/v1/auth/login", 0, "", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	fields, ok := env.Error.Details["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "required", fields["login"])
	assert.Equal(t, "required", fields["senha"])
}

func TestMalformedIdentifiersAndFilters(t *testing.T) {
	f := newRouterFixture(t)

	resp, env := f.do(t, http.MethodGet, "/api/v1/solicitacoes/abc", 10, domain.RoleClient, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	resp, env = f.do(t, http.MethodGet, "/api/v1/solicitacoes?status_id=aberto", 10, domain.RoleClient, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "aberto", env.Error.Details["status_id"])

	resp, env = f.do(t, http.MethodGet, "/api/v1/solicitacoes?data_inicio=10/03/2025", 20, domain.RoleTechnician, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestSendEmailRejectsUnknownScenario(t *testing.T) {
	f := newRouterFixture(t)

	resp, env := f.do(t, http.MethodPost, "/api/v1/solicitacoes/5/enviar-email", 20, domain.RoleTechnician, `{"tipo":"spam"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "tipo de email desconhecido", env.Error.Message)
	assert.Len(t, env.Error.Details["tipos"], 6)
}

type detailRepo struct {
	repository.RequestRepository
	detail *domain.RequestDetail
}

func (r detailRepo) GetDetail(_ context.Context, id int64) (*domain.RequestDetail, error) {
	if r.detail == nil || r.detail.ID != id {
		return nil, pgx.ErrNoRows
	}
	return r.detail, nil
}

type namedTemplates struct {
	repository.TemplateRepository
}

func (namedTemplates) GetByName(_ context.Context, name string) (*domain.EmailTemplate, error) {
	return &domain.EmailTemplate{Name: name, Subject: "OS {codigo_referencia}", HTMLBody: "<p>{comentario}</p>", Active: true}, nil
}

type recordingMailer struct {
	sent []mailer.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) bool {
	m.sent = append(m.sent, msg)
	return true
}

func TestSendEmailDropsBodyAttachments(t *testing.T) {
	requests := detailRepo{detail: &domain.RequestDetail{
		Request:     domain.Request{ID: 5, ReferenceCode: "OS202503100001", CreatedAt: time.Now()},
		ClientName:  "Maria Cliente",
		ClientEmail: "maria@example.com",
		StatusName:  "Em Andamento",
	}}
	mail := &recordingMailer{}
	f := newRouterFixtureWith(t, handlers.RequestsHandlerDeps{
		Lifecycle: service.NewLifecycleService(service.LifecycleDependencies{RequestRepo: requests}),
		Notifications: service.NewNotificationService(service.NotificationDependencies{
			RequestRepo:  requests,
			TemplateRepo: namedTemplates{},
			Mailer:       mail,
		}),
	})

	body := `{"tipo":"atualizacao_status","comentario":"segue","anexos":["/etc/passwd",".env"]}`
	resp, env := f.do(t, http.MethodPost, "/api/v1/solicitacoes/5/enviar-email", 20, domain.RoleTechnician, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Enviado bool   `json:"enviado"`
		Tipo    string `json:"tipo"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Enviado)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "maria@example.com", mail.sent[0].To)
	assert.Equal(t, "OS OS202503100001", mail.sent[0].Subject)
	assert.Empty(t, mail.sent[0].Attachments)
}

func TestTemplateValidationEndpoints(t *testing.T) {
	f := newRouterFixture(t)
	payload := `{"nome":"aviso","assunto":"Olá {nome_cliente}","corpo_html":"","variaveis":["nome_cliente","extra"]}`

	resp, env := f.do(t, http.MethodPost, "/api/v1/templates-email/validar", 30, domain.RoleAdmin, payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Valido    bool     `json:"valido"`
		Erros     []string `json:"erros"`
		Avisos    []string `json:"avisos"`
		Variaveis []string `json:"variaveis_encontradas"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Valido)
	assert.Equal(t, []string{"Corpo HTML é obrigatório"}, result.Erros)
	assert.Equal(t, []string{"Variáveis documentadas mas não usadas: extra"}, result.Avisos)
	assert.Equal(t, []string{"nome_cliente"}, result.Variaveis)

	resp, env = f.do(t, http.MethodPost, "/api/v1/templates-email", 30, domain.RoleAdmin, payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "template inválido", env.Error.Message)
}

func TestDefaultTemplatesEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	resp, env := f.do(t, http.MethodGet, "/api/v1/templates-email/padrao", 30, domain.RoleAdmin, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []struct {
		Nome string `json:"nome"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 7)
	assert.Equal(t, "confirmacao_abertura", items[0].Nome)
}

func TestMiddlewareRendersUnknownRoutesAndPanics(t *testing.T) {
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("kaboom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	env = envelope{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Errors["/boom|GET|INTERNAL_ERROR"])
}
