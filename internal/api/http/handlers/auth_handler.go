package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saos/service-desk/internal/api/dto"
	"github.com/saos/service-desk/internal/auth"
	"github.com/saos/service-desk/internal/service"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

// AuthHandler exposes login and password endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	token, err := h.auth.Login(c.UserContext(), req.Login, req.Senha)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{
			Token:     token.Token,
			ExpiresAt: token.ExpiresAt,
			Usuario:   dto.NewUserResponse(token.User),
		},
	})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(principal.User)})
}

// ChangePassword handles PUT /auth/senha.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), principal.ID(), req.SenhaAtual, req.NovaSenha); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"alterada": true}})
}
