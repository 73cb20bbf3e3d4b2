package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/safetrack-hq/escalator/internal/models"
)

func TestScanOverdueEscalatesStaleIncidents(t *testing.T) {
	h := newHarness(t, nil)
	h.directory.management = []string{"mgr-1"}

	stale := openIncident("INC-stale", models.SeverityMajor, 30*time.Hour)
	h.incidents.incidents["INC-stale"] = stale
	h.incidents.overdue = func(cutoff time.Time, severities []models.Severity, statuses []models.Status) []*models.IncidentSnapshot {
		// Only the unrestricted (stale) query finds this incident.
		if len(severities) == 0 {
			return []*models.IncidentSnapshot{stale}
		}
		return nil
	}

	scanner := NewScanner(h.incidents, h.orch, 1)
	if err := scanner.ScanOverdue(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}

	entries := h.sink.all()
	if len(entries) != 1 {
		t.Fatalf("got %d history entries, want 1", len(entries))
	}
	if entries[0].ExecutedBy != "system" {
		t.Errorf("executed by = %q", entries[0].ExecutedBy)
	}
	if !strings.Contains(entries[0].Details, "no response for over 24 hours") {
		t.Errorf("details = %q", entries[0].Details)
	}
}

func TestScanOverdueEscalatesTwiceWhenBothThresholdsMatch(t *testing.T) {
	h := newHarness(t, nil)
	h.directory.management = []string{"mgr-1"}

	inc := openIncident("INC-both", models.SeverityCritical, 30*time.Hour)
	h.incidents.incidents["INC-both"] = inc
	h.incidents.overdue = func(cutoff time.Time, severities []models.Severity, statuses []models.Status) []*models.IncidentSnapshot {
		return []*models.IncidentSnapshot{inc}
	}

	scanner := NewScanner(h.incidents, h.orch, 1)
	if err := scanner.ScanOverdue(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}

	entries := h.sink.all()
	if len(entries) != 2 {
		t.Fatalf("got %d history entries, want one per matching reason", len(entries))
	}

	reasons := map[string]bool{}
	for _, e := range entries {
		reasons[e.Details] = true
	}
	if !reasons["no response for over 24 hours"] {
		t.Error("missing stale reason")
	}
	if !reasons["critical incident with no response for over 2 hours"] {
		t.Error("missing critical stale reason")
	}
}

func TestScanOverdueQueryThresholds(t *testing.T) {
	h := newHarness(t, nil)

	type query struct {
		cutoff     time.Time
		severities []models.Severity
		statuses   []models.Status
	}
	var queries []query
	h.incidents.overdue = func(cutoff time.Time, severities []models.Severity, statuses []models.Status) []*models.IncidentSnapshot {
		queries = append(queries, query{cutoff, severities, statuses})
		return nil
	}

	scanner := NewScanner(h.incidents, h.orch, 1)
	scanner.now = func() time.Time { return testNow }

	if err := scanner.ScanOverdue(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(queries) != 2 {
		t.Fatalf("got %d queries, want 2", len(queries))
	}

	if !queries[0].cutoff.Equal(testNow.Add(-24 * time.Hour)) {
		t.Errorf("stale cutoff = %v", queries[0].cutoff)
	}
	if len(queries[0].severities) != 0 {
		t.Errorf("stale query must not restrict severity: %v", queries[0].severities)
	}
	if len(queries[0].statuses) != 2 {
		t.Errorf("stale query statuses = %v", queries[0].statuses)
	}

	if !queries[1].cutoff.Equal(testNow.Add(-2 * time.Hour)) {
		t.Errorf("critical cutoff = %v", queries[1].cutoff)
	}
	if len(queries[1].severities) != 2 {
		t.Errorf("critical query severities = %v", queries[1].severities)
	}
	if len(queries[1].statuses) != 1 || queries[1].statuses[0] != models.StatusOpen {
		t.Errorf("critical query statuses = %v", queries[1].statuses)
	}
}

func TestScanOverdueSurvivesVanishedIncident(t *testing.T) {
	h := newHarness(t, nil)
	h.directory.management = []string{"mgr-1"}

	// The incident shows up in the overdue query but is gone by the
	// time TriggerManual loads it. A second incident must still be
	// escalated.
	vanished := openIncident("INC-gone", models.SeverityMajor, 30*time.Hour)
	present := openIncident("INC-here", models.SeverityMajor, 30*time.Hour)
	h.incidents.incidents["INC-here"] = present
	h.incidents.overdue = func(cutoff time.Time, severities []models.Severity, statuses []models.Status) []*models.IncidentSnapshot {
		if len(severities) == 0 {
			return []*models.IncidentSnapshot{vanished, present}
		}
		return nil
	}

	scanner := NewScanner(h.incidents, h.orch, 1)
	if err := scanner.ScanOverdue(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}

	entries := h.sink.all()
	if len(entries) != 1 || entries[0].IncidentID != "INC-here" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestScanOverdueQueryFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.incidents.findErr = fmt.Errorf("db locked")

	scanner := NewScanner(h.incidents, h.orch, 1)
	if err := scanner.ScanOverdue(context.Background()); err == nil {
		t.Fatal("expected query error")
	}
}
