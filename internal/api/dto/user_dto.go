package dto

import (
	"time"

	"github.com/aarondl/null/v8"

	"github.com/saos/service-desk/internal/domain"
)

// LoginRequest accepts an e-mail or a CPF as login.
type LoginRequest struct {
	Login string `json:"login" validate:"required"`
	Senha string `json:"senha" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Usuario   UserResponse `json:"usuario"`
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	SenhaAtual string `json:"senha_atual" validate:"required"`
	NovaSenha  string `json:"nova_senha" validate:"required,min=6"`
}

// CreateUserRequest payload for new accounts.
type CreateUserRequest struct {
	Nome     string  `json:"nome" validate:"required,max=150"`
	Email    string  `json:"email" validate:"required,email"`
	CPF      *string `json:"cpf" validate:"omitempty,max=20"`
	Telefone *string `json:"telefone" validate:"omitempty,max=30"`
	Tipo     string  `json:"tipo" validate:"omitempty,oneof=CLIENTE TECNICO ADMIN"`
	Senha    string  `json:"senha" validate:"required,min=6"`
}

// UpdateUserRequest is a partial account edit.
type UpdateUserRequest struct {
	Nome     null.String `json:"nome" validate:"omitempty,max=150"`
	Email    null.String `json:"email" validate:"omitempty,email"`
	CPF      null.String `json:"cpf" validate:"omitempty,max=20"`
	Telefone null.String `json:"telefone" validate:"omitempty,max=30"`
	Tipo     null.String `json:"tipo" validate:"omitempty,oneof=CLIENTE TECNICO ADMIN"`
	Ativo    null.Bool   `json:"ativo"`
	Senha    null.String `json:"senha" validate:"omitempty,min=6"`
}

// UserResponse never exposes the password hash.
type UserResponse struct {
	ID           int64      `json:"id"`
	Nome         string     `json:"nome"`
	Email        string     `json:"email"`
	CPF          *string    `json:"cpf"`
	Telefone     *string    `json:"telefone"`
	Tipo         string     `json:"tipo"`
	Ativo        bool       `json:"ativo"`
	UltimoAcesso *time.Time `json:"ultimo_acesso"`
	DataCriacao  time.Time  `json:"data_criacao"`
}

// NewUserResponse maps a user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Nome:         u.Name,
		Email:        u.Email,
		CPF:          u.TaxID,
		Telefone:     u.Phone,
		Tipo:         string(u.Role),
		Ativo:        u.Active,
		UltimoAcesso: u.LastAccessAt,
		DataCriacao:  u.CreatedAt,
	}
}
