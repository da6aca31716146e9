package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
	"github.com/oshokin/alert-hub/internal/provider"
)

// Rule describes one automatic response.
type Rule struct {
	// Name identifies the rule in logs.
	Name string `yaml:"name"`
	// TypePrefix matches alert types; empty matches everything.
	TypePrefix string `yaml:"type_prefix"`
	// MinLevel is the least severe level the rule reacts to.
	MinLevel alert.Level `yaml:"min_level"`
	// Action is applied to matching alerts.
	Action Action `yaml:"action"`
	// Content is attached to the transition.
	Content string `yaml:"content"`
}

var (
	// ErrRuleName is returned for a rule without a name.
	ErrRuleName = errors.New("responder rule: name is required")
	// ErrRuleAction is returned for a rule without a known action.
	ErrRuleAction = errors.New("action is required")
)

// Validate checks that the rule can be applied.
func (r Rule) Validate() error {
	if r.Name == "" {
		return ErrRuleName
	}

	if _, ok := actionNames[r.Action]; !ok {
		return fmt.Errorf("responder rule %q: %w", r.Name, ErrRuleAction)
	}

	return nil
}

// Matches reports whether the rule applies to a in its current state.
func (r Rule) Matches(a alert.Alert) bool {
	if !strings.HasPrefix(a.Type(), r.TypePrefix) || a.Level() < r.MinLevel {
		return false
	}

	state := alert.CurrentState(a)

	return state != alert.StateCleared && state != r.Action.Target()
}

// RuleResponder applies the first matching rule to each alert it sees.
type RuleResponder struct {
	rules []Rule
}

// NewRuleResponder creates a responder over rules, evaluated in order.
func NewRuleResponder(rules ...Rule) *RuleResponder {
	return &RuleResponder{
		rules: append([]Rule(nil), rules...),
	}
}

// OnAlertChange implements provider.Responder.
func (r *RuleResponder) OnAlertChange(ctx context.Context, a alert.Alert, response provider.Response) error {
	for _, rule := range r.rules {
		if !rule.Matches(a) {
			continue
		}

		logger.InfoKV(ctx, "Responder rule matched",
			"rule", rule.Name,
			"alert_id", a.ID().String(),
			"action", rule.Action.String())

		var content any
		if rule.Content != "" {
			content = rule.Content
		}

		if err := rule.Action.Apply(ctx, response, content); err != nil {
			return fmt.Errorf("rule %q: %w", rule.Name, err)
		}

		return nil
	}

	return nil
}
