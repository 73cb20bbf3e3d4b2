package engine

import (
	"log"
	"strings"
	"time"

	"github.com/safetrack-hq/escalator/internal/models"
	"github.com/safetrack-hq/escalator/internal/rules"
)

// Matcher decides whether an escalation rule applies to an incident.
// It is a pure function of its inputs and the supplied evaluation time.
type Matcher struct{}

// NewMatcher creates a new Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// IsApplicable reports whether rule applies to inc at the current time.
func (m *Matcher) IsApplicable(rule *rules.Rule, inc *models.IncidentSnapshot) bool {
	return m.IsApplicableAt(rule, inc, time.Now())
}

// IsApplicableAt reports whether rule applies to inc at the given time.
// All configured trigger dimensions must pass; an empty dimension is
// vacuously true.
func (m *Matcher) IsApplicableAt(rule *rules.Rule, inc *models.IncidentSnapshot, now time.Time) bool {
	t := &rule.Trigger

	if !matchSeverity(t.SeveritySet(), inc.Severity) {
		return false
	}
	if !matchStatus(t.StatusSet(), inc.Status) {
		return false
	}
	if !matchNoResponse(t.AfterNoResponseDuration(), inc, now) {
		return false
	}
	if !matchDepartment(t.Departments, inc.Department) {
		return false
	}
	if !matchLocation(t.Locations, inc.Location) {
		return false
	}
	if expr := t.Expr(); expr != nil {
		matched, err := expr.Match(inc, now)
		if err != nil {
			// A broken expression fails closed, but must stay diagnosable.
			log.Printf("rule %s: expression error for incident %s: %v", rule.ID, inc.ID, err)
			return false
		}
		if !matched {
			return false
		}
	}

	return true
}

func matchSeverity(set []models.Severity, sev models.Severity) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == sev {
			return true
		}
	}
	return false
}

func matchStatus(set []models.Status, st models.Status) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == st {
			return true
		}
	}
	return false
}

// matchNoResponse passes when the time since the incident's last
// activity (last response, or creation when none) is at least min.
func matchNoResponse(min time.Duration, inc *models.IncidentSnapshot, now time.Time) bool {
	if min == 0 {
		return true
	}
	return now.Sub(inc.LastActivity()) >= min
}

func matchDepartment(set []string, department string) bool {
	if len(set) == 0 {
		return true
	}
	for _, d := range set {
		if strings.EqualFold(d, department) {
			return true
		}
	}
	return false
}

// matchLocation passes when the incident has no location (it cannot
// violate the dimension) or any configured substring matches
// case-insensitively.
func matchLocation(set []string, location string) bool {
	if len(set) == 0 || location == "" {
		return true
	}
	loc := strings.ToLower(location)
	for _, s := range set {
		if strings.Contains(loc, strings.ToLower(s)) {
			return true
		}
	}
	return false
}
