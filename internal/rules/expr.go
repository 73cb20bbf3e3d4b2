package rules

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/safetrack-hq/escalator/internal/models"
)

// ExprMatcher compiles and evaluates expr-lang predicates against
// incident snapshots.
type ExprMatcher struct {
	expression string
	program    *vm.Program
}

// NewExprMatcher creates an ExprMatcher for the given expression.
func NewExprMatcher(expression string) (*ExprMatcher, error) {
	m := &ExprMatcher{expression: expression}
	if err := m.compile(); err != nil {
		return nil, err
	}
	return m, nil
}

// compile compiles the expression with the expected environment.
func (m *ExprMatcher) compile() error {
	// Sample environment for type checking. expr-lang has built-in
	// operators: contains, startsWith, endsWith.
	program, err := expr.Compile(m.expression,
		expr.Env(buildSampleEnv()),
		expr.AsBool(),
	)
	if err != nil {
		return fmt.Errorf("compile expression: %w", err)
	}

	m.program = program
	return nil
}

// Match evaluates the expression against an incident at the given time.
func (m *ExprMatcher) Match(inc *models.IncidentSnapshot, now time.Time) (bool, error) {
	env := buildEnvFromIncident(inc, now)

	result, err := expr.Run(m.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate expression: %w", err)
	}

	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expression did not return bool: got %T", result)
	}

	return matched, nil
}

// Expression returns the original expression string.
func (m *ExprMatcher) Expression() string {
	return m.expression
}

// buildSampleEnv creates a sample environment for expression compilation.
func buildSampleEnv() map[string]any {
	return map[string]any{
		"id":           "",
		"title":        "",
		"severity":     "",
		"status":       "",
		"department":   "",
		"location":     "",
		"age_minutes":  float64(0),
		"idle_minutes": float64(0),
	}
}

// buildEnvFromIncident creates the evaluation environment for an incident.
func buildEnvFromIncident(inc *models.IncidentSnapshot, now time.Time) map[string]any {
	return map[string]any{
		"id":           inc.ID,
		"title":        inc.Title,
		"severity":     string(inc.Severity),
		"status":       string(inc.Status),
		"department":   inc.Department,
		"location":     inc.Location,
		"age_minutes":  now.Sub(inc.CreatedAt).Minutes(),
		"idle_minutes": now.Sub(inc.LastActivity()).Minutes(),
	}
}
