package email

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.txt
var templateFS embed.FS

// Renderer renders the plain-text notification templates embedded in the binary.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Render executes <name>_subject.txt and <name>.txt with data.
func (r *Renderer) Render(name string, data any) (subject, text string, err error) {
	subject, err = r.execute(name+"_subject.txt", data)
	if err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	text, err = r.execute(name+".txt", data)
	if err != nil {
		return "", "", fmt.Errorf("render text: %w", err)
	}
	return strings.TrimSpace(subject), text, nil
}

func (r *Renderer) execute(file string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, file, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
