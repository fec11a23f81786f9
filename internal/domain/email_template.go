package domain

import "time"

// EmailTemplate is a named subject/body pair with {name} placeholders.
type EmailTemplate struct {
	ID        int64
	Name      string
	Subject   string
	HTMLBody  string
	TextBody  string
	Variables []string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TemplateValidation is the outcome of checking a template before it is stored.
type TemplateValidation struct {
	Valid     bool
	Errors    []string
	Warnings  []string
	Variables []string
}
