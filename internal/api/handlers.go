package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/safetrack-hq/escalator/internal/api/middleware"
	"github.com/safetrack-hq/escalator/internal/engine"
	"github.com/safetrack-hq/escalator/internal/rules"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// handleEscalate runs all applicable rules against one incident.
func (s *Server) handleEscalate(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "id")
	if incidentID == "" {
		JSONError(w, NewBadRequest("incident id is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	if err := s.engine.ProcessRules(ctx, incidentID); err != nil {
		if errors.Is(err, engine.ErrIncidentNotFound) {
			JSONError(w, ErrIncidentNotFound)
			return
		}
		log.Printf("api: escalate incident %s: %v", incidentID, err)
		JSONError(w, ErrInternalServer)
		return
	}

	Accepted(w, map[string]string{
		"incident_id": incidentID,
		"status":      "escalated",
	})
}

// manualEscalateRequest is the body for POST /incidents/{id}/escalate/manual.
type manualEscalateRequest struct {
	Reason      string `json:"reason"`
	EscalatedBy string `json:"escalated_by"`
}

// handleManualEscalate escalates one incident to management outside the
// rule set.
func (s *Server) handleManualEscalate(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "id")
	if incidentID == "" {
		JSONError(w, NewBadRequest("incident id is required"))
		return
	}

	var req manualEscalateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("invalid request body"))
		return
	}
	if req.Reason == "" {
		JSONError(w, NewValidationError("reason is required"))
		return
	}
	if req.EscalatedBy == "" {
		req.EscalatedBy = middleware.GetService(r.Context())
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	if err := s.engine.TriggerManual(ctx, incidentID, req.Reason, req.EscalatedBy); err != nil {
		if errors.Is(err, engine.ErrIncidentNotFound) {
			JSONError(w, ErrIncidentNotFound)
			return
		}
		log.Printf("api: manual escalate incident %s: %v", incidentID, err)
		JSONError(w, ErrInternalServer)
		return
	}

	Accepted(w, map[string]string{
		"incident_id":  incidentID,
		"status":       "escalated",
		"escalated_by": req.EscalatedBy,
	})
}

// handleScan triggers one overdue-incident sweep.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		JSONError(w, NewBadRequest("scanner is not configured"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	start := time.Now()
	if err := s.scanner.ScanOverdue(ctx); err != nil {
		log.Printf("api: overdue scan: %v", err)
		JSONError(w, ErrInternalServer)
		return
	}

	OK(w, map[string]string{
		"status":   "completed",
		"duration": time.Since(start).String(),
	})
}

// ruleActionSummary describes one action of a rule.
type ruleActionSummary struct {
	Type     string   `json:"type"`
	Target   string   `json:"target,omitempty"`
	Channels []string `json:"channels,omitempty"`
	Delay    string   `json:"delay,omitempty"`
}

// ruleSummary is the API representation of an escalation rule.
type ruleSummary struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Priority    int                 `json:"priority"`
	CatchAll    bool                `json:"catch_all,omitempty"`
	Actions     []ruleActionSummary `json:"actions"`
}

func summarizeRule(rule *rules.Rule) ruleSummary {
	summary := ruleSummary{
		ID:          rule.ID,
		Name:        rule.Name,
		Description: rule.Description,
		Priority:    rule.Priority,
		CatchAll:    rule.CatchAll,
	}
	for _, action := range rule.Actions {
		as := ruleActionSummary{
			Type:   string(action.ActionType()),
			Target: action.Target,
		}
		for _, ch := range action.ChannelSet() {
			as.Channels = append(as.Channels, string(ch))
		}
		if d := action.DelayDuration(); d > 0 {
			as.Delay = d.String()
		}
		summary.Actions = append(summary.Actions, as)
	}
	return summary
}

// handleListRules returns the enabled rules in evaluation order.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	active := s.engine.GetActiveRules()

	summaries := make([]ruleSummary, 0, len(active))
	for _, rule := range active {
		summaries = append(summaries, summarizeRule(rule))
	}

	OK(w, map[string]any{
		"rules": summaries,
		"total": len(summaries),
	})
}

// handleReloadRules reloads the rule set from its file.
func (s *Server) handleReloadRules(w http.ResponseWriter, r *http.Request) {
	if s.reloader == nil {
		JSONError(w, NewBadRequest("rule set has no reloadable source"))
		return
	}

	if err := s.reloader.Reload(); err != nil {
		// Invalid rule files keep the previous rule set active.
		JSONError(w, NewValidationError(err.Error()))
		return
	}

	OK(w, map[string]any{
		"status": "reloaded",
		"rules":  len(s.engine.GetActiveRules()),
	})
}

// handleHistory lists escalation history entries, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.listHistory(w, r, "")
}

// handleIncidentHistory lists history entries for one incident.
func (s *Server) handleIncidentHistory(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "id")
	if incidentID == "" {
		JSONError(w, NewBadRequest("incident id is required"))
		return
	}
	s.listHistory(w, r, incidentID)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request, incidentID string) {
	if s.history == nil {
		JSONError(w, NewBadRequest("history is not configured"))
		return
	}

	page, perPage := pagination(r)
	offset := (page - 1) * perPage

	var err error
	var entries []any
	var total int64

	if incidentID == "" {
		list, n, listErr := s.history.List(r.Context(), perPage, offset)
		err, total = listErr, n
		for _, e := range list {
			entries = append(entries, e)
		}
	} else {
		list, n, listErr := s.history.ListByIncident(r.Context(), incidentID, perPage, offset)
		err, total = listErr, n
		for _, e := range list {
			entries = append(entries, e)
		}
	}
	if err != nil {
		log.Printf("api: list history: %v", err)
		JSONError(w, ErrInternalServer)
		return
	}
	if entries == nil {
		entries = []any{}
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))

	OK(w, PaginatedResponse{
		Items:      entries,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	})
}

// pagination parses page and per_page query parameters with bounds.
func pagination(r *http.Request) (page, perPage int) {
	page = 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	perPage = defaultPerPage
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			perPage = n
			if perPage > maxPerPage {
				perPage = maxPerPage
			}
		}
	}
	return page, perPage
}
