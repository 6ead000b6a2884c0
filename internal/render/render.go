// Package render turns view names and view data into user-facing
// message text. Templates are embedded at build time.
package render

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer renders named views.
type Renderer struct {
	templates *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	t := template.New("").Funcs(template.FuncMap{
		"add":       func(a, b int) int { return a + b },
		"parseTime": ParseTime,
		"timeAgo":   TimeAgo,
	})
	t, err := t.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Render executes the named view with the given data.
func (r *Renderer) Render(view string, data any) (string, error) {
	var buf strings.Builder
	if err := r.templates.ExecuteTemplate(&buf, view+".tmpl", data); err != nil {
		return "", fmt.Errorf("failed to render view %q: %w", view, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
