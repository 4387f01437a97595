package api

import (
	"bytes"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/sunrise-go/internal/logger"
)

// TemplateRenderer is a custom HTML template renderer for Echo framework.
type TemplateRenderer struct {
	templates *template.Template
	log       logger.Logger
}

// NewTemplateRenderer parses every *.html template in fsys
func NewTemplateRenderer(fsys fs.FS, log logger.Logger) (*TemplateRenderer, error) {
	tmpl, err := template.New("").ParseFS(fsys, "*.html")
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{templates: tmpl, log: log}, nil
}

// Render renders a template with the given data.
func (t *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	// Render into a buffer so a failing template writes nothing
	var buf bytes.Buffer
	if err := t.templates.ExecuteTemplate(&buf, name, data); err != nil {
		t.log.Error("error executing template", logger.String("template", name), logger.Error(err))
		return err
	}

	_, err := buf.WriteTo(w)
	if err != nil {
		t.log.Error("error writing template result", logger.Error(err))
	}
	return err
}
