package dto

import (
	"time"

	"github.com/saos/service-desk/internal/domain"
)

// TemplateRequest creates or replaces a template. Ativo defaults to true.
type TemplateRequest struct {
	Nome       string   `json:"nome"`
	Assunto    string   `json:"assunto"`
	CorpoHTML  string   `json:"corpo_html"`
	CorpoTexto string   `json:"corpo_texto"`
	Variaveis  []string `json:"variaveis"`
	Ativo      *bool    `json:"ativo"`
}

// TemplateResponse is one stored template.
type TemplateResponse struct {
	ID              int64     `json:"id"`
	Nome            string    `json:"nome"`
	Assunto         string    `json:"assunto"`
	CorpoHTML       string    `json:"corpo_html"`
	CorpoTexto      string    `json:"corpo_texto"`
	Variaveis       []string  `json:"variaveis"`
	Ativo           bool      `json:"ativo"`
	DataCriacao     time.Time `json:"data_criacao"`
	DataAtualizacao time.Time `json:"data_atualizacao"`
}

// NewTemplateResponse maps a template.
func NewTemplateResponse(t *domain.EmailTemplate) TemplateResponse {
	vars := t.Variables
	if vars == nil {
		vars = []string{}
	}
	return TemplateResponse{
		ID:              t.ID,
		Nome:            t.Name,
		Assunto:         t.Subject,
		CorpoHTML:       t.HTMLBody,
		CorpoTexto:      t.TextBody,
		Variaveis:       vars,
		Ativo:           t.Active,
		DataCriacao:     t.CreatedAt,
		DataAtualizacao: t.UpdatedAt,
	}
}

// TemplateValidationResponse is the outcome of a template check.
type TemplateValidationResponse struct {
	Valido    bool     `json:"valido"`
	Erros     []string `json:"erros"`
	Avisos    []string `json:"avisos"`
	Variaveis []string `json:"variaveis_encontradas"`
}

// NewTemplateValidationResponse maps a validation result.
func NewTemplateValidationResponse(v domain.TemplateValidation) TemplateValidationResponse {
	return TemplateValidationResponse{
		Valido:    v.Valid,
		Erros:     v.Errors,
		Avisos:    v.Warnings,
		Variaveis: v.Variables,
	}
}

// TemplateTestRequest sends a rendered template to one address.
type TemplateTestRequest struct {
	TemplateID   int64          `json:"template_id" validate:"required,gt=0"`
	EmailDestino string         `json:"email_destino" validate:"required,email"`
	Variaveis    map[string]any `json:"variaveis"`
}

// DefaultTemplateResponse describes a built-in template.
type DefaultTemplateResponse struct {
	Nome      string   `json:"nome"`
	Descricao string   `json:"descricao"`
	Assunto   string   `json:"assunto"`
	Variaveis []string `json:"variaveis"`
}
