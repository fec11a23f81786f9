// Package mailer renders {name}-placeholder templates and submits them over SMTP.
package mailer

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/saos/service-desk/internal/domain"
)

// Variables maps placeholder names to their values. Values are rendered with fmt.Sprint.
type Variables map[string]any

// Rendered is a template after substitution.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// Render substitutes vars into the subject, HTML body and text body independently.
func Render(tpl domain.EmailTemplate, vars Variables) Rendered {
	return Rendered{
		Subject: Substitute(tpl.Subject, vars),
		HTML:    Substitute(tpl.HTMLBody, vars),
		Text:    Substitute(tpl.TextBody, vars),
	}
}

// Substitute replaces every {key} whose key is present in vars with the value's
// string form. Unknown placeholders are left verbatim. The scan is single-pass
// over the input: substituted values are copied to the output and never
// rescanned, so a value containing {other} stays literal.
func Substitute(text string, vars Variables) string {
	if text == "" || len(vars) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		if text[i] != '{' {
			b.WriteByte(text[i])
			i++
			continue
		}
		end := strings.IndexAny(text[i+1:], "{}")
		if end < 0 || text[i+1+end] != '}' || end == 0 {
			b.WriteByte('{')
			i++
			continue
		}
		key := text[i+1 : i+1+end]
		value, ok := vars[key]
		if !ok {
			b.WriteByte('{')
			i++
			continue
		}
		b.WriteString(stringify(value))
		i += end + 2
	}
	return b.String()
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// ExtractVariables returns the distinct placeholder names in text, sorted.
func ExtractVariables(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	slices.Sort(names)
	return names
}
