// Package policy evaluates operator rules that decide how a capture treats an
// existing authorization. Rules are govaluate expressions over CaptureFacts.
package policy

import (
	"fmt"
	"sort"
	"time"

	"github.com/Knetic/govaluate"
)

// DefaultReauthorizeExpression re-authorizes authorizations older than three days.
const DefaultReauthorizeExpression = "authorization_age_hours > 72"

// CaptureDecision represents the outcome of a policy evaluation.
type CaptureDecision struct {
	Reauthorize bool   // re-authorize before capturing
	RuleID      string // rule that produced the decision, empty for the default
}

// PolicyRule pairs an expression with the decision applied when it matches.
// Lower Priority values are evaluated first.
type PolicyRule struct {
	ID         string
	Expression string
	Priority   int
	Decision   CaptureDecision
}

// CaptureFacts are the variables exposed to rule expressions.
type CaptureFacts struct {
	AuthorizationAge time.Duration // time since the checkout order was created
	AmountCents      int64
}

func (f CaptureFacts) parameters() map[string]interface{} {
	return map[string]interface{}{
		"authorization_age_hours": f.AuthorizationAge.Hours(),
		"authorization_age_days":  f.AuthorizationAge.Hours() / 24,
		"amount_cents":            float64(f.AmountCents),
	}
}

type compiledRule struct {
	PolicyRule
	expr *govaluate.EvaluableExpression
}

// CapturePolicyEnforcer evaluates compiled rules in priority order.
type CapturePolicyEnforcer struct {
	rules []compiledRule
}

// DefaultRules returns the stock three-day re-authorization rule.
func DefaultRules() []PolicyRule {
	return []PolicyRule{ReauthorizeRule(DefaultReauthorizeExpression)}
}

// ReauthorizeRule builds the rule that triggers re-authorization when expression holds.
func ReauthorizeRule(expression string) PolicyRule {
	return PolicyRule{
		ID:         "reauthorize_stale_authorization",
		Expression: expression,
		Decision:   CaptureDecision{Reauthorize: true},
	}
}

// NewCapturePolicyEnforcer compiles rules. A nil or empty slice yields an
// enforcer that never re-authorizes.
func NewCapturePolicyEnforcer(rules []PolicyRule) (*CapturePolicyEnforcer, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Expression == "" {
			return nil, fmt.Errorf("policy rule ID '%s' has an empty expression", r.ID)
		}
		expr, err := govaluate.NewEvaluableExpression(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule ID '%s': %w", r.ID, err)
		}
		compiled = append(compiled, compiledRule{PolicyRule: r, expr: expr})
	}
	sort.SliceStable(compiled, func(i, j int) bool { return compiled[i].Priority < compiled[j].Priority })
	return &CapturePolicyEnforcer{rules: compiled}, nil
}

// Evaluate returns the decision of the first matching rule.
func (e *CapturePolicyEnforcer) Evaluate(facts CaptureFacts) (CaptureDecision, error) {
	params := facts.parameters()
	for _, r := range e.rules {
		out, err := r.expr.Evaluate(params)
		if err != nil {
			return CaptureDecision{}, fmt.Errorf("policy: evaluate rule ID '%s': %w", r.ID, err)
		}
		matched, ok := out.(bool)
		if !ok {
			return CaptureDecision{}, fmt.Errorf("policy: rule ID '%s' returned %T, expected bool", r.ID, out)
		}
		if matched {
			d := r.Decision
			d.RuleID = r.ID
			return d, nil
		}
	}
	return CaptureDecision{}, nil
}
