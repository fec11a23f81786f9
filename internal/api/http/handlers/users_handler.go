package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saos/service-desk/internal/api/dto"
	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/repository"
	"github.com/saos/service-desk/internal/service"
)

// UsersHandler exposes account administration.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// List GET /usuarios.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	filter := repository.UserFilter{
		ActiveOnly: c.QueryBool("ativos", false),
		Limit:      c.QueryInt("limite", 100),
		Offset:     c.QueryInt("offset", 0),
	}
	if raw := strings.TrimSpace(c.Query("tipo")); raw != "" {
		role := domain.UserRole(strings.ToUpper(raw))
		filter.Role = &role
	}
	users, err := h.users.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /usuarios.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), service.CreateUserInput{
		Name:     req.Nome,
		Email:    req.Email,
		TaxID:    req.CPF,
		Phone:    req.Telefone,
		Role:     domain.UserRole(req.Tipo),
		Password: req.Senha,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update PUT /usuarios/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), id, service.UserPatch{
		Name:     req.Nome,
		Email:    req.Email,
		TaxID:    req.CPF,
		Phone:    req.Telefone,
		Role:     req.Tipo,
		Active:   req.Ativo,
		Password: req.Senha,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Toggle POST /usuarios/:id/toggle.
func (h *UsersHandler) Toggle(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.users.ToggleActive(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
