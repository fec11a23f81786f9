package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saos/service-desk/internal/api/http/handlers"
	"github.com/saos/service-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Requests       *handlers.RequestsHandler
	Templates      *handlers.TemplatesHandler
	Users          *handlers.UsersHandler
	Dashboard      *handlers.DashboardHandler
	Catalog        *handlers.CatalogHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")
	api.Post("/auth/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	protected.Get("/auth/me", cfg.Auth.Me)
	protected.Put("/auth/senha", cfg.Auth.ChangePassword)

	protected.Get("/categorias", cfg.Catalog.Categories)
	protected.Get("/prioridades", cfg.Catalog.Priorities)
	protected.Get("/status", cfg.Catalog.Statuses)

	staff := auth.RequireStaff()
	admin := auth.RequireAdmin()

	requests := protected.Group("/solicitacoes")
	requests.Get("/", cfg.Requests.List)
	requests.Post("/", cfg.Requests.Create)
	requests.Get("/urgentes", staff, cfg.Requests.Urgent)
	requests.Get("/vencidas", staff, cfg.Requests.Overdue)
	requests.Get("/export", staff, cfg.Requests.Export)
	requests.Get("/codigo/:codigo", cfg.Requests.GetByReference)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Put("/:id", staff, cfg.Requests.Update)
	requests.Put("/:id/status", staff, cfg.Requests.ChangeStatus)
	requests.Put("/:id/tecnico", staff, cfg.Requests.AssignTechnician)
	requests.Post("/:id/analise", staff, cfg.Requests.RecordAnalysis)
	requests.Get("/:id/comentarios", cfg.Requests.ListComments)
	requests.Post("/:id/comentarios", cfg.Requests.AddComment)
	requests.Get("/:id/historico", cfg.Requests.History)
	requests.Post("/:id/enviar-email", staff, cfg.Requests.SendEmail)

	protected.Get("/dashboard", staff, cfg.Dashboard.Dashboard)

	adminGroup := protected.Group("/admin", admin)
	adminGroup.Get("/stats", cfg.Dashboard.AdminStats)
	adminGroup.Get("/metrics", cfg.Dashboard.Metrics)
	adminGroup.Get("/historico", cfg.Dashboard.Ledger)

	users := protected.Group("/usuarios", admin)
	users.Get("/", cfg.Users.List)
	users.Post("/", cfg.Users.Create)
	users.Put("/:id", cfg.Users.Update)
	users.Post("/:id/toggle", cfg.Users.Toggle)

	templates := protected.Group("/templates-email", admin)
	templates.Get("/", cfg.Templates.List)
	templates.Post("/", cfg.Templates.Create)
	templates.Get("/padrao", cfg.Templates.Defaults)
	templates.Post("/padrao/:nome", cfg.Templates.InstallDefault)
	templates.Post("/validar", cfg.Templates.Validate)
	templates.Post("/testar", cfg.Templates.SendTest)
	templates.Get("/:id", cfg.Templates.Get)
	templates.Put("/:id", cfg.Templates.Update)
	templates.Delete("/:id", cfg.Templates.Delete)
	templates.Post("/:id/toggle", cfg.Templates.Toggle)
}
