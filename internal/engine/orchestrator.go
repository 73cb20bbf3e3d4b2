package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/safetrack-hq/escalator/internal/metrics"
	"github.com/safetrack-hq/escalator/internal/models"
	"github.com/safetrack-hq/escalator/internal/rules"
)

// RuleProvider supplies the current rule set. Implementations must
// return a snapshot that is never mutated afterwards.
type RuleProvider interface {
	Rules() []*rules.Rule
}

// manualChannels is the channel set used for direct manual escalation
// notifications.
var manualChannels = []models.Channel{models.ChannelEmail, models.ChannelSMS}

// Orchestrator drives the escalation of one incident: it selects
// applicable rules, orders them by priority, and runs their actions
// sequentially. Different incidents may be escalated concurrently; no
// ordering holds between concurrent calls, and callers needing
// per-incident mutual exclusion must serialize at this boundary.
type Orchestrator struct {
	provider  RuleProvider
	incidents IncidentStore
	directory Directory
	gateway   NotificationGateway
	renderer  TemplateRenderer
	executor  *Executor
	recorder  *Recorder
	events    *Publisher
	matcher   *Matcher

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(provider RuleProvider, incidents IncidentStore, directory Directory, gateway NotificationGateway, renderer TemplateRenderer, executor *Executor, recorder *Recorder, events *Publisher) *Orchestrator {
	return &Orchestrator{
		provider:  provider,
		incidents: incidents,
		directory: directory,
		gateway:   gateway,
		renderer:  renderer,
		executor:  executor,
		recorder:  recorder,
		events:    events,
		matcher:   NewMatcher(),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// ProcessRules escalates one incident through every applicable rule.
// A missing incident is logged and returned as ErrIncidentNotFound
// with no other effect. Rule and action failures are recorded in the
// history and never propagate; besides the not-found case the only
// returned errors are context cancellation.
func (o *Orchestrator) ProcessRules(ctx context.Context, incidentID string) error {
	inc, err := o.incidents.GetIncident(ctx, incidentID)
	if err != nil {
		if errors.Is(err, ErrIncidentNotFound) {
			log.Printf("orchestrator: incident %s not found, skipping escalation", incidentID)
			return err
		}
		return fmt.Errorf("load incident %s: %w", incidentID, err)
	}

	now := o.now()
	var matched []*rules.Rule
	for _, rule := range o.provider.Rules() {
		if !rule.IsEnabled() {
			continue
		}
		metrics.RulesEvaluated.Inc()
		if o.matcher.IsApplicableAt(rule, inc, now) {
			metrics.RulesMatched.Inc()
			matched = append(matched, rule)
		}
	}

	// Ascending priority; stable so equal priorities keep rule-set order.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority < matched[j].Priority
	})

	for _, rule := range matched {
		targets, err := o.runRule(ctx, inc, rule)
		if err != nil {
			return err
		}

		o.events.Publish(&models.Event{
			Type:        models.EventEscalationTriggered,
			IncidentID:  inc.ID,
			RuleID:      rule.ID,
			Description: rule.Description,
			Targets:     targets,
		})
	}

	return nil
}

// runRule executes one rule's actions in declared order. A delayed
// action suspends the rest of this rule's sequence, not other rules.
// An unexpected failure escaping the action loop is recorded as a
// single generic history entry and does not stop later rules. The
// returned error is context cancellation only.
func (o *Orchestrator) runRule(ctx context.Context, inc *models.IncidentSnapshot, rule *rules.Rule) (targets []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("orchestrator: rule %s failed for incident %s: %v", rule.ID, inc.ID, r)
			o.recorder.Record(ctx, &models.EscalationHistoryEntry{
				IncidentID: inc.ID,
				RuleID:     rule.ID,
				RuleName:   rule.Name,
				ActionType: models.ActionNotifyUser,
				Details:    fmt.Sprintf("rule processing failed: %v", r),
				ExecutedBy: "system",
			})
		}
	}()

	for i := range rule.Actions {
		action := &rule.Actions[i]

		if d := action.DelayDuration(); d > 0 {
			if err := o.sleep(ctx, d); err != nil {
				return targets, err
			}
		}

		if err := o.executor.Execute(ctx, inc, rule, action); err != nil {
			return targets, err
		}
		if action.Target != "" {
			targets = append(targets, action.Target)
		}
	}

	return targets, nil
}

// TriggerManual escalates an incident outside the rule set: it
// notifies the management escalation targets directly, writes one
// history entry, and publishes the triggered event with no rule id.
func (o *Orchestrator) TriggerManual(ctx context.Context, incidentID, reason, escalatedBy string) error {
	inc, err := o.incidents.GetIncident(ctx, incidentID)
	if err != nil {
		if errors.Is(err, ErrIncidentNotFound) {
			log.Printf("orchestrator: incident %s not found, skipping manual escalation", incidentID)
			return err
		}
		return fmt.Errorf("load incident %s: %w", incidentID, err)
	}

	metrics.ManualEscalations.Inc()

	entry := &models.EscalationHistoryEntry{
		IncidentID: inc.ID,
		ActionType: models.ActionNotifyUser,
		Details:    reason,
		ExecutedBy: escalatedBy,
	}

	targets, err := o.directory.ManagementTargets(ctx, inc)
	if err != nil {
		entry.Details = fmt.Sprintf("%s; resolve management targets: %v", reason, err)
		o.recorder.Record(ctx, entry)
		log.Printf("orchestrator: manual escalation of %s failed: %v", incidentID, err)
		return nil
	}
	entry.ActionTarget = strings.Join(targets, ",")

	data := templateData(inc, map[string]string{"Reason": reason, "EscalatedBy": escalatedBy})
	subject, body, err := o.renderer.Render(TemplateManualEscalation, data)
	if err != nil {
		entry.Details = fmt.Sprintf("%s; render template: %v", reason, err)
		o.recorder.Record(ctx, entry)
		log.Printf("orchestrator: manual escalation of %s failed: %v", incidentID, err)
		return nil
	}

	var failures []string
	delivered := 0
	for _, userID := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := o.gateway.SendMultiChannel(ctx, userID, subject, body, manualChannels, inc.Severity); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", userID, err))
			continue
		}
		delivered++
	}

	entry.IsSuccessful = delivered > 0
	if len(failures) > 0 {
		entry.Details = fmt.Sprintf("%s; failures: %s", reason, strings.Join(failures, "; "))
	}
	o.recorder.Record(ctx, entry)

	o.events.Publish(&models.Event{
		Type:        models.EventEscalationTriggered,
		IncidentID:  inc.ID,
		Description: reason,
		Targets:     targets,
	})

	return nil
}

// GetActiveRules returns the enabled rules in execution order.
func (o *Orchestrator) GetActiveRules() []*rules.Rule {
	var active []*rules.Rule
	for _, rule := range o.provider.Rules() {
		if rule.IsEnabled() {
			active = append(active, rule)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority < active[j].Priority
	})
	return active
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
