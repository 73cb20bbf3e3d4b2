package rules

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalRules = `
rules:
  - id: r1
    name: first
    catch_all: true
    actions:
      - type: send_emergency_alert
`

const replacementRules = `
rules:
  - id: r1
    name: first
    catch_all: true
    actions:
      - type: send_emergency_alert
  - id: r2
    name: second
    priority: 5
    trigger:
      severities: [critical]
    actions:
      - type: notify_role
        target: on-call
        channels: [email]
`

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileProviderReload(t *testing.T) {
	path := writeRulesFile(t, minimalRules)

	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if got := len(p.Rules()); got != 1 {
		t.Fatalf("got %d rules, want 1", got)
	}

	if err := os.WriteFile(path, []byte(replacementRules), 0600); err != nil {
		t.Fatal(err)
	}
	if err := p.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := len(p.Rules()); got != 2 {
		t.Errorf("got %d rules after reload, want 2", got)
	}
}

func TestFileProviderReloadKeepsOldSetOnFailure(t *testing.T) {
	path := writeRulesFile(t, replacementRules)

	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	if err := os.WriteFile(path, []byte("rules: [broken"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := p.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if got := len(p.Rules()); got != 2 {
		t.Errorf("got %d rules after failed reload, want previous set of 2", got)
	}
}

func TestProviderRulesReturnsSnapshot(t *testing.T) {
	rules, err := LoadFromBytes([]byte(replacementRules))
	if err != nil {
		t.Fatal(err)
	}
	p := NewProvider(rules)

	snapshot := p.Rules()
	snapshot[0] = nil

	if p.Rules()[0] == nil {
		t.Error("mutating the snapshot affected the provider")
	}
}

func TestProviderReplaceValidates(t *testing.T) {
	p := NewProvider(nil)

	bad := []*Rule{{ID: "r1"}}
	if err := p.Replace(bad); err == nil {
		t.Fatal("expected validation error")
	}
	if got := len(p.Rules()); got != 0 {
		t.Errorf("rule set changed after failed replace: %d rules", got)
	}

	good, err := LoadFromBytes([]byte(minimalRules))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Replace(good); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got := len(p.Rules()); got != 1 {
		t.Errorf("got %d rules, want 1", got)
	}
}

func TestStaticProviderHasNoReload(t *testing.T) {
	p := NewProvider(nil)
	if err := p.Reload(); err == nil {
		t.Error("expected error reloading a static provider")
	}
}
