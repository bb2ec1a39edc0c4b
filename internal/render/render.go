// Package render turns module payloads into HTML fragments for the
// server-rendered storefront page.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"strings"

	"seraphine-concierge-backend/internal/module"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer maps a module payload to exactly one HTML fragment. It is a total
// function over module kinds: a kind it does not recognize renders to the
// empty string with no error, so an older widget talking to a newer server
// degrades to nothing instead of breaking.
type Renderer struct {
	t     *template.Template
	theme string
}

// New builds the renderer. themeClass is an extra CSS class stamped onto
// every fragment root ("cz-aurora" during the aurora rollout); empty means
// the default theme.
func New(themeClass string) (*Renderer, error) {
	t, err := template.New("modules").Funcs(template.FuncMap{
		"money": Money,
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse module templates: %w", err)
	}
	return &Renderer{t: t, theme: themeClass}, nil
}

// templateData is what every module template sees. Disabled mirrors the
// widget's isProcessing flag and must reach every interactive control.
type templateData struct {
	M          module.Module
	Disabled   bool
	ThemeClass string
}

// Render produces the fragment for the payload's kind. processing disables
// all interactive sub-components so a second submission cannot race the
// first.
func (r *Renderer) Render(m module.Module, processing bool) (string, error) {
	tmpl := r.t.Lookup(string(m.Kind) + ".tmpl")
	if tmpl == nil {
		return "", nil
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, templateData{M: m, Disabled: processing, ThemeClass: r.theme}); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", m.Kind, err)
	}
	return b.String(), nil
}

// Money formats integer cents for display, e.g. 189000 USD -> "$1,890.00".
func Money(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100
	digits := fmt.Sprintf("%d", whole)
	var grouped strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}
	symbol := currency + " "
	if currency == "USD" || currency == "" {
		symbol = "$"
	}
	return fmt.Sprintf("%s%s%s.%02d", sign, symbol, grouped.String(), frac)
}
