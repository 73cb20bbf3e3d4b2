package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/safetrack-hq/escalator/internal/models"
	"github.com/safetrack-hq/escalator/internal/rules"
)

func TestProcessRulesRunsMatchingRulesByPriority(t *testing.T) {
	// Declared out of priority order; rule-c and rule-a share a priority
	// so their rule-set order must be preserved.
	ruleSet := compileRules(t,
		notifyUserRule("rule-c", 10, "user-c"),
		notifyUserRule("rule-b", 20, "user-b"),
		notifyUserRule("rule-a", 10, "user-a"),
	)

	h := newHarness(t, ruleSet)
	h.incidents.incidents["INC-1"] = openIncident("INC-1", models.SeverityCritical, time.Hour)

	if err := h.orch.ProcessRules(context.Background(), "INC-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	sent := h.gateway.sent()
	if len(sent) != 3 {
		t.Fatalf("got %d notifications, want 3", len(sent))
	}
	wantOrder := []string{"user-c", "user-a", "user-b"}
	for i, want := range wantOrder {
		if sent[i].UserID != want {
			t.Errorf("notification %d went to %s, want %s", i, sent[i].UserID, want)
		}
	}
}

func TestProcessRulesSkipsNonMatchingAndDisabled(t *testing.T) {
	disabled := false
	off := notifyUserRule("off", 1, "user-off")
	off.Enabled = &disabled

	wrongSeverity := notifyUserRule("wrong", 2, "user-wrong")
	wrongSeverity.Trigger = rules.Trigger{Severities: []string{"minor"}}

	matching := notifyUserRule("match", 3, "user-match")

	h := newHarness(t, compileRules(t, off, wrongSeverity, matching))
	h.incidents.incidents["INC-1"] = openIncident("INC-1", models.SeverityCritical, time.Hour)

	if err := h.orch.ProcessRules(context.Background(), "INC-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	sent := h.gateway.sent()
	if len(sent) != 1 || sent[0].UserID != "user-match" {
		t.Errorf("unexpected notifications: %+v", sent)
	}
}

func TestProcessRulesUnknownIncident(t *testing.T) {
	h := newHarness(t, compileRules(t, notifyUserRule("r1", 1, "user-1")))

	err := h.orch.ProcessRules(context.Background(), "missing")
	if !errors.Is(err, ErrIncidentNotFound) {
		t.Fatalf("err = %v, want ErrIncidentNotFound", err)
	}
	if len(h.gateway.sent()) != 0 {
		t.Error("no notifications should be sent for a missing incident")
	}
	if len(h.sink.all()) != 0 {
		t.Error("no history should be written for a missing incident")
	}
}

func TestProcessRulesDelayedAction(t *testing.T) {
	rule := &rules.Rule{
		ID:       "delayed",
		Name:     "delayed rule",
		Priority: 1,
		Trigger:  rules.Trigger{Severities: []string{"critical"}},
		Actions: []rules.Action{
			{Type: "notify_user", Target: "user-1", Channels: []string{"email"}},
			{Type: "notify_user", Target: "user-2", Channels: []string{"email"}, Delay: "15m"},
		},
	}

	h := newHarness(t, compileRules(t, rule))
	h.incidents.incidents["INC-1"] = openIncident("INC-1", models.SeverityCritical, time.Hour)

	if err := h.orch.ProcessRules(context.Background(), "INC-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(*h.slept) != 1 || (*h.slept)[0] != 15*time.Minute {
		t.Errorf("slept %v, want one 15m delay", *h.slept)
	}

	sent := h.gateway.sent()
	if len(sent) != 2 || sent[0].UserID != "user-1" || sent[1].UserID != "user-2" {
		t.Errorf("unexpected notification order: %+v", sent)
	}
}

func TestProcessRulesCancelledDuringDelay(t *testing.T) {
	rule := &rules.Rule{
		ID:       "delayed",
		Name:     "delayed rule",
		Priority: 1,
		Trigger:  rules.Trigger{Severities: []string{"critical"}},
		Actions: []rules.Action{
			{Type: "notify_user", Target: "user-1", Channels: []string{"email"}, Delay: "1h"},
		},
	}

	h := newHarness(t, compileRules(t, rule))
	h.incidents.incidents["INC-1"] = openIncident("INC-1", models.SeverityCritical, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.orch.ProcessRules(ctx, "INC-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(h.gateway.sent()) != 0 {
		t.Error("no notification should be sent after cancellation")
	}
}

func TestProcessRulesPublishesEvents(t *testing.T) {
	rule := notifyUserRule("r1", 1, "user-1")
	rule.Description = "critical escalation"

	h := newHarness(t, compileRules(t, rule))
	h.incidents.incidents["INC-1"] = openIncident("INC-1", models.SeverityCritical, time.Hour)

	if err := h.orch.ProcessRules(context.Background(), "INC-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	evs := drainEvents(h.events)
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	ev := evs[0]
	if ev.Type != models.EventEscalationTriggered {
		t.Errorf("event type = %s", ev.Type)
	}
	if ev.RuleID != "r1" || ev.IncidentID != "INC-1" {
		t.Errorf("event = %+v", ev)
	}
	if len(ev.Targets) != 1 || ev.Targets[0] != "user-1" {
		t.Errorf("event targets = %v", ev.Targets)
	}
	if ev.Timestamp.IsZero() {
		t.Error("event timestamp not filled in")
	}
}

func TestProcessRulesRecoversFromRulePanic(t *testing.T) {
	panicking := &rules.Rule{
		ID:       "boom",
		Name:     "panicking rule",
		Priority: 1,
		Trigger:  rules.Trigger{Severities: []string{"critical"}},
		Actions: []rules.Action{
			{Type: "notify_role", Target: "on-call", Channels: []string{"email"}},
		},
	}
	after := notifyUserRule("after", 2, "user-after")

	h := newHarness(t, compileRules(t, panicking, after))
	h.incidents.incidents["INC-1"] = openIncident("INC-1", models.SeverityCritical, time.Hour)
	h.directory.panicOnRole = true

	if err := h.orch.ProcessRules(context.Background(), "INC-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	// The panicking rule is recorded as failed and the next rule still ran.
	var failureEntry *models.EscalationHistoryEntry
	for _, e := range h.sink.all() {
		if e.RuleID == "boom" {
			failureEntry = e
		}
	}
	if failureEntry == nil {
		t.Fatal("no history entry for the failed rule")
	}
	if failureEntry.IsSuccessful {
		t.Error("failure entry marked successful")
	}
	if !strings.Contains(failureEntry.Details, "rule processing failed") {
		t.Errorf("details = %q", failureEntry.Details)
	}

	sent := h.gateway.sent()
	if len(sent) != 1 || sent[0].UserID != "user-after" {
		t.Errorf("later rule did not run: %+v", sent)
	}
}

func TestTriggerManual(t *testing.T) {
	h := newHarness(t, nil)
	h.incidents.incidents["INC-1"] = openIncident("INC-1", models.SeverityMajor, time.Hour)
	h.directory.management = []string{"mgr-1", "mgr-2"}

	err := h.orch.TriggerManual(context.Background(), "INC-1", "customer called twice", "alice")
	if err != nil {
		t.Fatalf("trigger manual: %v", err)
	}

	sent := h.gateway.sent()
	if len(sent) != 2 {
		t.Fatalf("got %d notifications, want 2", len(sent))
	}
	for _, call := range sent {
		if len(call.Channels) != 2 || call.Channels[0] != models.ChannelEmail || call.Channels[1] != models.ChannelSMS {
			t.Errorf("manual escalation channels = %v, want [email sms]", call.Channels)
		}
	}

	entries := h.sink.all()
	if len(entries) != 1 {
		t.Fatalf("got %d history entries, want exactly 1", len(entries))
	}
	entry := entries[0]
	if entry.RuleID != "" {
		t.Errorf("manual escalation must have no rule id, got %q", entry.RuleID)
	}
	if entry.ExecutedBy != "alice" {
		t.Errorf("executed by = %q", entry.ExecutedBy)
	}
	if entry.ActionTarget != "mgr-1,mgr-2" {
		t.Errorf("action target = %q", entry.ActionTarget)
	}
	if !entry.IsSuccessful || entry.Details != "customer called twice" {
		t.Errorf("entry = %+v", entry)
	}

	evs := drainEvents(h.events)
	if len(evs) != 1 || evs[0].RuleID != "" || evs[0].Description != "customer called twice" {
		t.Errorf("events = %+v", evs)
	}
}

func TestTriggerManualPartialDelivery(t *testing.T) {
	h := newHarness(t, nil)
	h.incidents.incidents["INC-1"] = openIncident("INC-1", models.SeverityMajor, time.Hour)
	h.directory.management = []string{"mgr-1", "mgr-2"}
	h.gateway.failFor = map[string]error{"mgr-2": errGatewayDown}

	if err := h.orch.TriggerManual(context.Background(), "INC-1", "reason", "bob"); err != nil {
		t.Fatalf("trigger manual: %v", err)
	}

	entries := h.sink.all()
	if len(entries) != 1 {
		t.Fatalf("got %d history entries, want 1", len(entries))
	}
	entry := entries[0]
	if !entry.IsSuccessful {
		t.Error("one delivered target should mark the escalation successful")
	}
	if !strings.Contains(entry.Details, "mgr-2") || !strings.Contains(entry.Details, "failures") {
		t.Errorf("details = %q", entry.Details)
	}
}

func TestTriggerManualUnknownIncident(t *testing.T) {
	h := newHarness(t, nil)

	err := h.orch.TriggerManual(context.Background(), "missing", "reason", "alice")
	if !errors.Is(err, ErrIncidentNotFound) {
		t.Fatalf("err = %v, want ErrIncidentNotFound", err)
	}
	if len(h.sink.all()) != 0 {
		t.Error("no history should be written for a missing incident")
	}
}

func TestGetActiveRules(t *testing.T) {
	disabled := false
	off := notifyUserRule("off", 0, "user-off")
	off.Enabled = &disabled

	h := newHarness(t, compileRules(t,
		notifyUserRule("late", 20, "u1"),
		off,
		notifyUserRule("early", 5, "u2"),
	))

	active := h.orch.GetActiveRules()
	if len(active) != 2 {
		t.Fatalf("got %d active rules, want 2", len(active))
	}
	if active[0].ID != "early" || active[1].ID != "late" {
		t.Errorf("order = [%s %s]", active[0].ID, active[1].ID)
	}
}
