package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/safetrack-hq/escalator/internal/models"
	"github.com/safetrack-hq/escalator/internal/rules"
)

// Shared fakes for engine tests.

type fakeIncidents struct {
	incidents map[string]*models.IncidentSnapshot
	overdue   func(cutoff time.Time, severities []models.Severity, statuses []models.Status) []*models.IncidentSnapshot
	findErr   error
}

func (f *fakeIncidents) GetIncident(ctx context.Context, id string) (*models.IncidentSnapshot, error) {
	inc, ok := f.incidents[id]
	if !ok {
		return nil, ErrIncidentNotFound
	}
	return inc, nil
}

func (f *fakeIncidents) FindOverdue(ctx context.Context, cutoff time.Time, severities []models.Severity, statuses []models.Status) ([]*models.IncidentSnapshot, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.overdue == nil {
		return nil, nil
	}
	return f.overdue(cutoff, severities, statuses), nil
}

type fakeDirectory struct {
	roles       map[string][]string
	departments map[string][]string
	management  []string
	emergency   []string
	regulatory  []string
	err         error
	panicOnRole bool
}

func (f *fakeDirectory) UsersInRole(ctx context.Context, role string) ([]string, error) {
	if f.panicOnRole {
		panic("directory exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.roles[role], nil
}

func (f *fakeDirectory) UsersInDepartment(ctx context.Context, department string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.departments[department], nil
}

func (f *fakeDirectory) ManagementTargets(ctx context.Context, inc *models.IncidentSnapshot) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.management, nil
}

func (f *fakeDirectory) EmergencyContacts(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.emergency, nil
}

func (f *fakeDirectory) RegulatoryTeam(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.regulatory, nil
}

type sendCall struct {
	UserID   string
	Subject  string
	Body     string
	Channels []models.Channel
	Priority models.Severity
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []sendCall
	failFor map[string]error     // total failure per user id
	partial []models.Channel     // channels reported as failed on otherwise successful sends
}

func (f *fakeGateway) SendMultiChannel(ctx context.Context, userID, subject, body string, channels []models.Channel, priority models.Severity) ([]models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sendCall{
		UserID:   userID,
		Subject:  subject,
		Body:     body,
		Channels: append([]models.Channel(nil), channels...),
		Priority: priority,
	})
	if err, ok := f.failFor[userID]; ok {
		return append([]models.Channel(nil), channels...), err
	}
	return f.partial, nil
}

func (f *fakeGateway) sent() []sendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendCall(nil), f.calls...)
}

type fakeRenderer struct {
	err       error
	templates []string
}

func (f *fakeRenderer) Render(templateID string, data map[string]any) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.templates = append(f.templates, templateID)
	return "subject:" + templateID, "body", nil
}

type memorySink struct {
	mu      sync.Mutex
	entries []*models.EscalationHistoryEntry
	err     error
}

func (m *memorySink) Append(ctx context.Context, entry *models.EscalationHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	copied := *entry
	m.entries = append(m.entries, &copied)
	return nil
}

func (m *memorySink) all() []*models.EscalationHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.EscalationHistoryEntry(nil), m.entries...)
}

// compileRules validates rules so their internal state is built.
func compileRules(t *testing.T, rs ...*rules.Rule) []*rules.Rule {
	t.Helper()
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			t.Fatalf("rule %s: %v", r.ID, err)
		}
	}
	return rs
}

// testHarness bundles an orchestrator with its fakes.
type testHarness struct {
	orch      *Orchestrator
	incidents *fakeIncidents
	directory *fakeDirectory
	gateway   *fakeGateway
	renderer  *fakeRenderer
	sink      *memorySink
	events    *Publisher
	slept     *[]time.Duration
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, ruleSet []*rules.Rule) *testHarness {
	t.Helper()

	h := &testHarness{
		incidents: &fakeIncidents{incidents: map[string]*models.IncidentSnapshot{}},
		directory: &fakeDirectory{},
		gateway:   &fakeGateway{},
		renderer:  &fakeRenderer{},
		sink:      &memorySink{},
		events:    NewPublisher(64),
	}

	recorder := NewRecorder(h.sink)
	executor := NewExecutor(h.gateway, h.directory, h.renderer, recorder, h.events)
	h.orch = NewOrchestrator(rules.NewProvider(ruleSet), h.incidents, h.directory,
		h.gateway, h.renderer, executor, recorder, h.events)

	h.orch.now = func() time.Time { return testNow }

	var slept []time.Duration
	h.slept = &slept
	h.orch.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		slept = append(slept, d)
		return nil
	}

	return h
}

// drainEvents collects all buffered events.
func drainEvents(p *Publisher) []*models.Event {
	var out []*models.Event
	for {
		select {
		case ev := <-p.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func openIncident(id string, severity models.Severity, age time.Duration) *models.IncidentSnapshot {
	return &models.IncidentSnapshot{
		ID:        id,
		Title:     "incident " + id,
		Severity:  severity,
		Status:    models.StatusOpen,
		CreatedAt: testNow.Add(-age),
	}
}

func notifyUserRule(id string, priority int, target string) *rules.Rule {
	return &rules.Rule{
		ID:       id,
		Name:     "rule " + id,
		Priority: priority,
		Trigger:  rules.Trigger{Severities: []string{"critical"}},
		Actions: []rules.Action{
			{Type: "notify_user", Target: target, Channels: []string{"email"}},
		},
	}
}

var errGatewayDown = fmt.Errorf("gateway unavailable")
