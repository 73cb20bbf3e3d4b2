package notify

import (
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// messageTemplate pairs the subject and body templates for one
// template id.
type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

// Renderer renders notification templates by id. Unknown ids fall back
// to the default incident escalation template so a misconfigured rule
// still produces a usable notification.
type Renderer struct {
	mu        sync.RWMutex
	templates map[string]*messageTemplate
	fallback  string
}

// Built-in template definitions: id -> subject, body.
var builtinTemplates = map[string][2]string{
	"incident-escalation": {
		`[{{.Severity | upper}}] Incident {{.IncidentID}} requires attention`,
		`Incident {{.IncidentID}}{{if .Title}} ({{.Title}}){{end}} has been escalated.

Severity:   {{.Severity}}
Status:     {{.Status}}
{{- if .Department}}
Department: {{.Department}}
{{- end}}
{{- if .Location}}
Location:   {{.Location}}
{{- end}}
Created:    {{.CreatedAt.Format "2006-01-02 15:04:05 MST"}}

Please respond as soon as possible.`,
	},
	"manager-escalation": {
		`[{{.Severity | upper}}] Management escalation: incident {{.IncidentID}}`,
		`Incident {{.IncidentID}}{{if .Title}} ({{.Title}}){{end}} has been escalated to management.

Severity: {{.Severity}}
Status:   {{.Status}}
Created:  {{.CreatedAt.Format "2006-01-02 15:04:05 MST"}}

Immediate attention is required.`,
	},
	"manual-escalation": {
		`[{{.Severity | upper}}] Manual escalation: incident {{.IncidentID}}`,
		`Incident {{.IncidentID}}{{if .Title}} ({{.Title}}){{end}} has been escalated manually.

Reason:       {{.Reason}}
Escalated by: {{.EscalatedBy}}
Severity:     {{.Severity}}
Status:       {{.Status}}

Immediate attention is required.`,
	},
	"emergency-alert": {
		`EMERGENCY: incident {{.IncidentID}}`,
		`An emergency alert has been raised for incident {{.IncidentID}}{{if .Title}} ({{.Title}}){{end}}.

Severity: {{.Severity}}
{{- if .Location}}
Location: {{.Location}}
{{- end}}

Follow the emergency response procedure immediately.`,
	},
	"regulatory-notice": {
		`Regulatory report required: incident {{.IncidentID}}`,
		`Incident {{.IncidentID}}{{if .Title}} ({{.Title}}){{end}} requires a regulatory report.

Severity: {{.Severity}}
Status:   {{.Status}}
Created:  {{.CreatedAt.Format "2006-01-02 15:04:05 MST"}}

The report is due within 48 hours of this notice.`,
	},
}

var templateFuncs = template.FuncMap{
	"upper": strings.ToUpper,
}

// NewRenderer creates a renderer with the built-in templates loaded.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*messageTemplate),
		fallback:  "incident-escalation",
	}

	for id, def := range builtinTemplates {
		if err := r.Add(id, def[0], def[1]); err != nil {
			return nil, fmt.Errorf("builtin template %q: %w", id, err)
		}
	}

	return r, nil
}

// Add parses and registers a template, replacing any existing one with
// the same id.
func (r *Renderer) Add(id, subjectSrc, bodySrc string) error {
	subject, err := template.New(id + ".subject").Funcs(templateFuncs).Parse(subjectSrc)
	if err != nil {
		return fmt.Errorf("parse subject: %w", err)
	}
	body, err := template.New(id + ".body").Funcs(templateFuncs).Parse(bodySrc)
	if err != nil {
		return fmt.Errorf("parse body: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[id] = &messageTemplate{subject: subject, body: body}
	return nil
}

// Render renders the template with the given data.
func (r *Renderer) Render(templateID string, data map[string]any) (string, string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[templateID]
	if !ok {
		tmpl = r.templates[r.fallback]
	}
	r.mu.RUnlock()

	if tmpl == nil {
		return "", "", fmt.Errorf("unknown template %q and no fallback", templateID)
	}

	var subject, body strings.Builder
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}

	return strings.TrimSpace(subject.String()), body.String(), nil
}

// Has reports whether a template id is registered.
func (r *Renderer) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[id]
	return ok
}
