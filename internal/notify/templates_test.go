package notify

import (
	"strings"
	"testing"
	"time"
)

func templateData() map[string]any {
	return map[string]any{
		"IncidentID":  "INC-42",
		"Title":       "Forklift collision",
		"Severity":    "critical",
		"Status":      "open",
		"Department":  "warehouse",
		"Location":    "dock 3",
		"CreatedAt":   time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC),
		"Reason":      "customer called twice",
		"EscalatedBy": "alice",
	}
}

func TestRendererBuiltinTemplates(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	subject, body, err := r.Render("incident-escalation", templateData())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(subject, "[CRITICAL]") {
		t.Errorf("subject = %q, severity should be uppercased", subject)
	}
	if !strings.Contains(subject, "INC-42") {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(body, "Forklift collision") || !strings.Contains(body, "dock 3") {
		t.Errorf("body = %q", body)
	}
}

func TestRendererManualEscalation(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	_, body, err := r.Render("manual-escalation", templateData())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "customer called twice") || !strings.Contains(body, "alice") {
		t.Errorf("body = %q", body)
	}
}

func TestRendererUnknownIDFallsBack(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	subject, _, err := r.Render("no-such-template", templateData())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(subject, "INC-42") {
		t.Errorf("fallback subject = %q", subject)
	}
}

func TestRendererAdd(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	if r.Has("custom") {
		t.Fatal("custom template should not exist yet")
	}
	if err := r.Add("custom", "Hello {{.IncidentID}}", "Body for {{.IncidentID}}"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !r.Has("custom") {
		t.Fatal("custom template not registered")
	}

	subject, body, err := r.Render("custom", templateData())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Hello INC-42" || body != "Body for INC-42" {
		t.Errorf("subject=%q body=%q", subject, body)
	}
}

func TestRendererAddRejectsBadTemplate(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	if err := r.Add("broken", "{{.Unclosed", "body"); err == nil {
		t.Error("expected parse error for bad subject template")
	}
	if err := r.Add("broken", "subject", "{{.Unclosed"); err == nil {
		t.Error("expected parse error for bad body template")
	}
	if r.Has("broken") {
		t.Error("failed Add must not register the template")
	}
}
