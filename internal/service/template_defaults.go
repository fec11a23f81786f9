package service

import (
	"fmt"
	"slices"
	"strings"

	"github.com/saos/service-desk/internal/mailer"
)

// Names of the templates the notification scenarios look up.
const (
	TemplateOpeningConfirmation = "confirmacao_abertura"
	TemplateStatusUpdate        = "atualizacao_status"
	TemplateInformationRequest  = "solicitacao_informacoes"
	TemplateResolution          = "resolucao_concluida"
	TemplateDeadlineReminder    = "lembrete_prazo"
	TemplateTechnicianAssigned  = "escalacao_tecnico"
	TemplateClientWelcome       = "boas_vindas_cliente"
)

// DefaultTemplate is a built-in template that can be installed on demand.
type DefaultTemplate struct {
	Name        string
	Description string
	Subject     string
	HTMLBody    string
	TextBody    string
	Variables   []string
}

type templateField struct {
	label string
	value string
}

type templateLayout struct {
	staff     bool
	heading   string
	intro     string
	fields    []templateField
	block     string
	linkVar   string
	linkLabel string
}

const headerColor = "#3B82F6"

func (l templateLayout) html() string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>` + l.heading + `</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<div style="background: ` + headerColor + `; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0;">
<h1 style="margin: 0;">SAOS - Sistema de Abertura de OS</h1>
</div>
<div style="background: #f9f9f9; padding: 20px; border-radius: 0 0 8px 8px;">
`)
	fmt.Fprintf(&b, "<h2 style=\"color: %s;\">%s</h2>\n", headerColor, l.heading)
	if l.staff {
		b.WriteString("<p>Olá,</p>\n")
	} else {
		b.WriteString("<p>Olá <strong>{nome_cliente}</strong>,</p>\n")
	}
	fmt.Fprintf(&b, "<p>%s</p>\n", l.intro)
	if len(l.fields) > 0 {
		b.WriteString(`<div style="background: white; padding: 15px; border-radius: 5px; margin: 15px 0;">` + "\n")
		for _, f := range l.fields {
			fmt.Fprintf(&b, "<p><strong>%s:</strong> %s</p>\n", f.label, f.value)
		}
		b.WriteString("</div>\n")
	}
	if l.block != "" {
		fmt.Fprintf(&b, `<div style="background: white; padding: 15px; border-radius: 5px; margin: 10px 0;"><p>%s</p></div>`+"\n", l.block)
	}
	if l.linkVar != "" {
		fmt.Fprintf(&b, `<div style="text-align: center; margin: 30px 0;"><a href="{%s}" style="background: %s; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; display: inline-block;">%s</a></div>`+"\n",
			l.linkVar, headerColor, l.linkLabel)
	}
	b.WriteString(`<p style="font-size: 12px; color: #666; text-align: center;">Este é um email automático. Não responda a esta mensagem.</p>
</div>
</div>
</body>
</html>
`)
	return b.String()
}

func (l templateLayout) text() string {
	var b strings.Builder
	b.WriteString("SAOS - Sistema de Abertura de OS\n\n")
	b.WriteString(l.heading + "\n\n")
	if l.staff {
		b.WriteString("Olá,\n\n")
	} else {
		b.WriteString("Olá {nome_cliente},\n\n")
	}
	b.WriteString(l.intro + "\n\n")
	for _, f := range l.fields {
		fmt.Fprintf(&b, "- %s: %s\n", f.label, f.value)
	}
	if l.block != "" {
		b.WriteString("\n" + l.block + "\n")
	}
	if l.linkVar != "" {
		fmt.Fprintf(&b, "\n%s: {%s}\n", l.linkLabel, l.linkVar)
	}
	b.WriteString("\nEste é um email automático. Não responda a esta mensagem.\n")
	return b.String()
}

func newDefault(name, description, subject string, layout templateLayout) DefaultTemplate {
	html := layout.html()
	return DefaultTemplate{
		Name:        name,
		Description: description,
		Subject:     subject,
		HTMLBody:    html,
		TextBody:    layout.text(),
		Variables:   mergeVariables(subject, html),
	}
}

func mergeVariables(texts ...string) []string {
	var out []string
	for _, text := range texts {
		for _, v := range mailer.ExtractVariables(text) {
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	slices.Sort(out)
	return out
}

func defaultTemplates() []DefaultTemplate {
	return []DefaultTemplate{
		newDefault(TemplateOpeningConfirmation,
			"Email enviado quando uma nova solicitação é criada",
			"Sua solicitação #{codigo_referencia} foi registrada com sucesso",
			templateLayout{
				heading: "Solicitação Registrada com Sucesso!",
				intro:   "Sua solicitação foi registrada em nosso sistema com sucesso. Abaixo estão os detalhes:",
				fields: []templateField{
					{"Código", "{codigo_referencia}"},
					{"Título", "{titulo}"},
					{"Categoria", "{categoria}"},
					{"Prioridade", `<span class="prioridade-{prioridade_classe}">{prioridade}</span>`},
					{"Sistema", "{sistema}"},
					{"Aberta em", "{data_hora}"},
					{"Prazo Estimado", "{prazo_estimado}"},
				},
				block:     "{descricao}",
				linkVar:   "link_acompanhamento",
				linkLabel: "Acompanhar Solicitação",
			}),
		newDefault(TemplateStatusUpdate,
			"Email enviado quando o status da solicitação é alterado",
			"Atualização da solicitação #{codigo_referencia}",
			templateLayout{
				heading: "Status Atualizado",
				intro:   "O status da sua solicitação foi atualizado.",
				fields: []templateField{
					{"Código", "{codigo_referencia}"},
					{"Novo Status", `<span style="color: {cor_status};">{novo_status}</span>`},
					{"Responsável", "{responsavel}"},
					{"Atualizado em", "{data_atualizacao}"},
				},
				block:     "{comentario}",
				linkVar:   "link_acompanhamento",
				linkLabel: "Acompanhar Solicitação",
			}),
		newDefault(TemplateInformationRequest,
			"Email solicitando informações adicionais do cliente",
			"Informações necessárias - Solicitação #{codigo_referencia}",
			templateLayout{
				heading: "Precisamos de Mais Informações",
				intro:   "Para dar continuidade à sua solicitação, precisamos de algumas informações adicionais.",
				fields: []templateField{
					{"Código", "{codigo_referencia}"},
					{"Título", "{titulo}"},
					{"Responsável", "{responsavel}"},
				},
				block:     "{informacoes_necessarias}",
				linkVar:   "link_atualizacao",
				linkLabel: "Enviar Informações",
			}),
		newDefault(TemplateResolution,
			"Email enviado quando a solicitação é resolvida",
			"Sua solicitação #{codigo_referencia} foi resolvida",
			templateLayout{
				heading: "Solicitação Resolvida",
				intro:   "Sua solicitação foi resolvida. Confira os detalhes abaixo:",
				fields: []templateField{
					{"Código", "{codigo_referencia}"},
					{"Título", "{titulo}"},
					{"Responsável", "{responsavel}"},
					{"Resolvida em", "{data_resolucao}"},
					{"Tempo de Resolução", "{tempo_resolucao}"},
				},
				block:     "{solucao}",
				linkVar:   "link_avaliacao",
				linkLabel: "Avaliar Atendimento",
			}),
		newDefault(TemplateDeadlineReminder,
			"Email de lembrete quando o prazo está próximo",
			"Lembrete: Prazo da solicitação #{codigo_referencia}",
			templateLayout{
				heading: "Lembrete de Prazo",
				intro:   "O prazo da sua solicitação está se aproximando.",
				fields: []templateField{
					{"Código", "{codigo_referencia}"},
					{"Título", "{titulo}"},
					{"Prazo Limite", "{prazo_limite}"},
					{"Tempo Restante", "{tempo_restante}"},
					{"Responsável", "{responsavel}"},
				},
				linkVar:   "link_acompanhamento",
				linkLabel: "Acompanhar Solicitação",
			}),
		newDefault(TemplateTechnicianAssigned,
			"Email enviado para técnicos quando uma solicitação é atribuída",
			"Nova solicitação atribuída: #{codigo_referencia}",
			templateLayout{
				staff:   true,
				heading: "Nova Solicitação Atribuída",
				intro:   "Uma solicitação do cliente {nome_cliente} foi atribuída a você.",
				fields: []templateField{
					{"Código", "{codigo_referencia}"},
					{"Título", "{titulo}"},
					{"Categoria", "{categoria}"},
					{"Prioridade", "{prioridade}"},
					{"Prazo Limite", "{prazo_limite}"},
				},
				block:     "{descricao}",
				linkVar:   "link_solicitacao",
				linkLabel: "Abrir Solicitação",
			}),
		newDefault(TemplateClientWelcome,
			"Email de boas-vindas enviado quando um cliente é cadastrado",
			"Bem-vindo ao SAOS, {nome_cliente}",
			templateLayout{
				heading:   "Bem-vindo!",
				intro:     "Seu cadastro foi realizado. A partir de agora você pode abrir e acompanhar suas solicitações pelo portal.",
				linkVar:   "link_dashboard",
				linkLabel: "Acessar o Portal",
			}),
	}
}

func findDefaultTemplate(name string) (DefaultTemplate, bool) {
	name = strings.TrimSpace(name)
	for _, def := range defaultTemplates() {
		if def.Name == name {
			return def, true
		}
	}
	return DefaultTemplate{}, false
}
