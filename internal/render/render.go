package render

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded HTML templates for the admin pages.
type Renderer struct {
	templates *template.Template
	logger    *slog.Logger
}

// New parses the embedded templates
func New(logger *slog.Logger) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl, logger: logger}, nil
}

// HTML writes the named template with the given status. Execution errors are
// logged, not surfaced; headers are already committed by then.
func (r *Renderer) HTML(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		r.logger.Error("failed to execute template",
			slog.String("template", name),
			slog.Any("error", err))
	}
}

// Error renders the shared error page
func (r *Renderer) Error(w http.ResponseWriter, status int, message string) {
	r.HTML(w, status, "error.html", map[string]any{
		"Status":  status,
		"Message": message,
	})
}
