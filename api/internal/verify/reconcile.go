package verify

import (
	"fmt"
	"strings"
)

// Policy — чей вердикт побеждает, когда оба определены и расходятся.
type Policy int

const (
	ExternalFirst Policy = iota
	RuleFirst
)

func (p Policy) String() string {
	if p == RuleFirst {
		return "rule_first"
	}
	return "external_first"
}

// ParsePolicy accepts "external_first" (also empty) and "rule_first".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "external_first", "external":
		return ExternalFirst, nil
	case "rule_first", "rule":
		return RuleFirst, nil
	default:
		return ExternalFirst, fmt.Errorf("unknown reconcile policy %q", s)
	}
}

// Источник итогового вердикта.
const (
	SourceExternal   = "external"
	SourceRule       = "rule"
	SourceFailClosed = "fail_closed"
)

// ReconciliationRecord объясняет, как получен итоговый вердикт шага.
type ReconciliationRecord struct {
	StepIndex    int     `json:"step_index"`
	Rule         Verdict `json:"rule_verdict"`
	External     *bool   `json:"external_verdict,omitempty"`
	Final        bool    `json:"final_verdict"`
	Agreed       bool    `json:"agreed"`
	Disagreement bool    `json:"disagreement"`
	Source       string  `json:"source"`
	Policy       string  `json:"policy"`
}

// Reconcile — политика по умолчанию (external_first).
func Reconcile(rule Verdict, external *bool) bool {
	return ReconcileStep(0, rule, external, ExternalFirst).Final
}

// ReconcileStep сводит вердикт правил и внешний вердикт в один.
// Внешний вердикт есть → он побеждает при external_first; правила определены и
// внешнего нет → вердикт правил; иначе шаг считается неверным.
func ReconcileStep(index int, rule Verdict, external *bool, policy Policy) ReconciliationRecord {
	rec := ReconciliationRecord{
		StepIndex: index,
		Rule:      rule,
		Policy:    policy.String(),
	}
	if external != nil {
		ext := *external
		rec.External = &ext
	}

	switch {
	case external != nil && rule.Determinate():
		rec.Agreed = rule.Bool() == *external
		rec.Disagreement = !rec.Agreed
		if policy == RuleFirst {
			rec.Final, rec.Source = rule.Bool(), SourceRule
		} else {
			rec.Final, rec.Source = *external, SourceExternal
		}
	case external != nil:
		rec.Final, rec.Source = *external, SourceExternal
	case rule.Determinate():
		rec.Final, rec.Source = rule.Bool(), SourceRule
	default:
		rec.Final, rec.Source = false, SourceFailClosed
	}
	return rec
}
