package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/safetrack-hq/escalator/internal/metrics"
	"github.com/safetrack-hq/escalator/internal/models"
	"github.com/safetrack-hq/escalator/internal/rules"
)

// Default notification template ids, used when an action does not name
// its own template.
const (
	TemplateIncidentEscalation = "incident-escalation"
	TemplateManagerEscalation  = "manager-escalation"
	TemplateEmergencyAlert     = "emergency-alert"
	TemplateRegulatoryNotice   = "regulatory-notice"
	TemplateManualEscalation   = "manual-escalation"
)

// regulatoryReportingWindow is the reporting deadline attached to
// regulatory report events.
const regulatoryReportingWindow = 48 * time.Hour

// Executor runs a single escalation action against the notification
// gateway. Every concrete user notification attempt produces one
// history entry; failures are recorded and never abort the caller.
type Executor struct {
	gateway   NotificationGateway
	directory Directory
	renderer  TemplateRenderer
	recorder  *Recorder
	events    *Publisher
}

// NewExecutor creates an action executor.
func NewExecutor(gateway NotificationGateway, directory Directory, renderer TemplateRenderer, recorder *Recorder, events *Publisher) *Executor {
	return &Executor{
		gateway:   gateway,
		directory: directory,
		renderer:  renderer,
		recorder:  recorder,
		events:    events,
	}
}

// Execute runs one action for the given incident. rule may carry the
// rule the action belongs to; it is only used for history bookkeeping
// and event payloads. The returned error is non-nil only on context
// cancellation: action-level failures are recorded in the history and
// swallowed so subsequent actions keep running.
func (e *Executor) Execute(ctx context.Context, inc *models.IncidentSnapshot, rule *rules.Rule, action *rules.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch action.ActionType() {
	case models.ActionNotifyUser:
		e.notifyUser(ctx, inc, rule, action.Target,
			templateOr(action.Template, TemplateIncidentEscalation),
			action.ChannelSet(), action.Params)

	case models.ActionNotifyRole:
		users, err := e.directory.UsersInRole(ctx, action.Target)
		if err != nil {
			e.recordResolutionFailure(ctx, inc, rule, action, fmt.Errorf("resolve role %q: %w", action.Target, err))
			return ctx.Err()
		}
		return e.fanOut(ctx, inc, rule, users,
			templateOr(action.Template, TemplateIncidentEscalation),
			action.ChannelSet(), action.Params)

	case models.ActionNotifyDepartment:
		users, err := e.directory.UsersInDepartment(ctx, action.Target)
		if err != nil {
			e.recordResolutionFailure(ctx, inc, rule, action, fmt.Errorf("resolve department %q: %w", action.Target, err))
			return ctx.Err()
		}
		return e.fanOut(ctx, inc, rule, users,
			templateOr(action.Template, TemplateIncidentEscalation),
			action.ChannelSet(), action.Params)

	case models.ActionEscalateToManager:
		users, err := e.directory.ManagementTargets(ctx, inc)
		if err != nil {
			e.recordResolutionFailure(ctx, inc, rule, action, fmt.Errorf("resolve management targets: %w", err))
			return ctx.Err()
		}
		return e.fanOut(ctx, inc, rule, users,
			templateOr(action.Template, TemplateManagerEscalation),
			action.ChannelSet(), action.Params)

	case models.ActionSendEmergencyAlert:
		e.events.Publish(&models.Event{
			Type:        models.EventEmergencyAlertTriggered,
			IncidentID:  inc.ID,
			RuleID:      ruleID(rule),
			Description: ruleDescription(rule),
		})
		contacts, err := e.directory.EmergencyContacts(ctx)
		if err != nil {
			e.recordResolutionFailure(ctx, inc, rule, action, fmt.Errorf("resolve emergency contacts: %w", err))
			return ctx.Err()
		}
		// The emergency channel set is non-negotiable: email, SMS and
		// push regardless of what the action configured.
		return e.fanOut(ctx, inc, rule, contacts,
			templateOr(action.Template, TemplateEmergencyAlert),
			models.EmergencyChannels, action.Params)

	case models.ActionSendRegulatory:
		deadline := time.Now().UTC().Add(regulatoryReportingWindow)
		e.events.Publish(&models.Event{
			Type:        models.EventRegulatoryReportRequired,
			IncidentID:  inc.ID,
			RuleID:      ruleID(rule),
			Description: ruleDescription(rule),
			Deadline:    &deadline,
		})
		team, err := e.directory.RegulatoryTeam(ctx)
		if err != nil {
			e.recordResolutionFailure(ctx, inc, rule, action, fmt.Errorf("resolve regulatory team: %w", err))
			return ctx.Err()
		}
		return e.fanOut(ctx, inc, rule, team,
			templateOr(action.Template, TemplateRegulatoryNotice),
			[]models.Channel{models.ChannelEmail}, action.Params)

	default:
		// Unknown types are skipped, not failed: a log line and a
		// counter, no history entry.
		metrics.UnknownActions.Inc()
		log.Printf("executor: skipping unsupported action type %q for incident %s", action.Type, inc.ID)
	}

	return nil
}

// fanOut notifies each resolved user independently; one user's failure
// does not block the others.
func (e *Executor) fanOut(ctx context.Context, inc *models.IncidentSnapshot, rule *rules.Rule, users []string, templateID string, channels []models.Channel, params map[string]string) error {
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.notifyUser(ctx, inc, rule, userID, templateID, channels, params)
	}
	return nil
}

// notifyUser renders the template, sends one multi-channel
// notification, and records the attempt.
func (e *Executor) notifyUser(ctx context.Context, inc *models.IncidentSnapshot, rule *rules.Rule, userID, templateID string, channels []models.Channel, params map[string]string) {
	entry := &models.EscalationHistoryEntry{
		IncidentID:   inc.ID,
		RuleID:       ruleID(rule),
		RuleName:     ruleName(rule),
		ActionType:   models.ActionNotifyUser,
		ActionTarget: userID,
		ExecutedBy:   "system",
	}

	subject, body, err := e.renderer.Render(templateID, templateData(inc, params))
	if err != nil {
		metrics.ActionFailures.WithLabelValues(string(models.ActionNotifyUser)).Inc()
		entry.Details = fmt.Sprintf("render template %q: %v", templateID, err)
		e.recorder.Record(ctx, entry)
		log.Printf("executor: %s", entry.Details)
		return
	}

	failed, err := e.gateway.SendMultiChannel(ctx, userID, subject, body, channels, inc.Severity)
	if err != nil {
		metrics.ActionFailures.WithLabelValues(string(models.ActionNotifyUser)).Inc()
		entry.Details = err.Error()
		e.recorder.Record(ctx, entry)
		log.Printf("executor: notify user %s for incident %s failed: %v", userID, inc.ID, err)
		return
	}

	metrics.ActionsExecuted.WithLabelValues(string(models.ActionNotifyUser)).Inc()
	entry.IsSuccessful = true
	if len(failed) > 0 {
		entry.Details = fmt.Sprintf("delivered with channel failures: %s", joinChannels(failed))
	}
	e.recorder.Record(ctx, entry)
}

// recordResolutionFailure records one failure entry for an action whose
// target set could not be resolved.
func (e *Executor) recordResolutionFailure(ctx context.Context, inc *models.IncidentSnapshot, rule *rules.Rule, action *rules.Action, err error) {
	metrics.ActionFailures.WithLabelValues(string(action.ActionType())).Inc()
	log.Printf("executor: %s for incident %s: %v", action.Type, inc.ID, err)
	e.recorder.Record(ctx, &models.EscalationHistoryEntry{
		IncidentID:   inc.ID,
		RuleID:       ruleID(rule),
		RuleName:     ruleName(rule),
		ActionType:   action.ActionType(),
		ActionTarget: action.Target,
		Details:      err.Error(),
		ExecutedBy:   "system",
	})
}

// templateData builds the template data map from the incident snapshot
// with the action's parameters merged in.
func templateData(inc *models.IncidentSnapshot, params map[string]string) map[string]any {
	data := map[string]any{
		"IncidentID": inc.ID,
		"Title":      inc.Title,
		"Severity":   string(inc.Severity),
		"Status":     string(inc.Status),
		"Department": inc.Department,
		"Location":   inc.Location,
		"CreatedAt":  inc.CreatedAt,
	}
	for k, v := range params {
		data[k] = v
	}
	return data
}

func templateOr(id, fallback string) string {
	if id != "" {
		return id
	}
	return fallback
}

func ruleID(rule *rules.Rule) string {
	if rule == nil {
		return ""
	}
	return rule.ID
}

func ruleName(rule *rules.Rule) string {
	if rule == nil {
		return ""
	}
	return rule.Name
}

func ruleDescription(rule *rules.Rule) string {
	if rule == nil {
		return ""
	}
	return rule.Description
}

func joinChannels(channels []models.Channel) string {
	s := ""
	for i, c := range channels {
		if i > 0 {
			s += ","
		}
		s += string(c)
	}
	return s
}
