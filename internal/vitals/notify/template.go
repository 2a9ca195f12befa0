package notify

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Vitals {{.EventLabel}}]
Patient: {{.Patient}}
Signal: {{.Signal}}
Alert: {{.Message}}
Value: {{.Value}} {{.Unit}}
Observed At: {{.ObservedAt}}
Suggestion: {{.Suggestion}}
{{ if .Contact }}
Contact: {{.Contact}}
{{ end }}`

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	Patient    string
	Signal     string
	Code       string
	Message    string
	Value      string
	Unit       string
	ObservedAt string
	Suggestion string
	Contact    string
	Event      string
	EventLabel string
}

// Template renders notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("vitals-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("vitals template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
