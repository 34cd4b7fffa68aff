package verify

import (
	"fmt"
	"strings"
)

// Classification — категория ошибки шага и то, на чём основан вывод.
type Classification struct {
	Category ErrorCategory `json:"category"`
	Evidence string        `json:"evidence"`
}

type stepContext struct {
	from, to       string
	fromVal, toVal Number
	fromOK, toOK   bool
}

func (c *stepContext) bothEvaluated() bool { return c.fromOK && c.toOK }

type detector struct {
	category ErrorCategory
	match    func(c *stepContext) (string, bool)
}

// Порядок важен: побеждает первое совпадение.
var detectors = []detector{
	{SignError, detectSignError},
	{FractionError, detectFractionError},
	{PowerError, detectPowerError},
	{OrderOfOperationsError, detectOrderError},
	{CalculationError, detectCalculationError},
}

// Classify returns the error category of an incorrect step.
func Classify(from, to string) ErrorCategory {
	return ClassifyDetail(from, to).Category
}

func ClassifyDetail(from, to string) Classification {
	c := newStepContext(from, to)
	if c.bothEvaluated() && c.fromVal.Equal(c.toVal) {
		return Classification{Category: Unknown, Evidence: "both sides have the same value"}
	}
	for _, d := range detectors {
		if ev, ok := d.match(c); ok {
			return Classification{Category: d.category, Evidence: ev}
		}
	}
	return Classification{Category: Unknown, Evidence: "neither side could be evaluated"}
}

func newStepContext(from, to string) *stepContext {
	c := &stepContext{from: Normalize(from), to: Normalize(to)}
	c.fromVal, c.fromOK = evaluateLenient(from)
	c.toVal, c.toOK = evaluateLenient(to)
	return c
}

func evaluateLenient(expr string) (Number, bool) {
	if v, err := Evaluate(expr); err == nil {
		return v, true
	}
	return evaluateFractionChain(expr)
}

func detectSignError(c *stepContext) (string, bool) {
	if c.bothEvaluated() {
		if !c.toVal.IsZero() && c.fromVal.Neg().Equal(c.toVal) {
			return fmt.Sprintf("%q is the negation of the expected %s", c.to, c.fromVal), true
		}
		for _, variant := range signVariants(c.from) {
			v, err := Evaluate(variant)
			if err == nil && v.Equal(c.toVal) {
				return fmt.Sprintf("flipping one sign gives %q = %s, which matches %q", variant, v, c.to), true
			}
		}
	}
	if hasLeadingNegative(c.from) && !hasLeadingNegative(c.to) {
		return fmt.Sprintf("negative sign in %q was lost in %q", c.from, c.to), true
	}
	return "", false
}

func hasLeadingNegative(s string) bool {
	return strings.HasPrefix(s, "-") || strings.Contains(strings.ReplaceAll(s, " ", ""), "(-")
}

const maxSignVariants = 64

// signVariants строит варианты выражения, в каждом из которых ровно один знак
// изменён: унарный минус убран, бинарный +/- перевёрнут или перед операндом
// без знака вставлен минус.
func signVariants(expr string) []string {
	toks, err := tokenize(expr)
	if err != nil {
		return nil
	}
	var out []string
	add := func(v string) {
		if len(out) < maxSignVariants {
			out = append(out, v)
		}
	}
	for i, t := range toks {
		switch {
		case t.kind == tokMinus && unaryAt(toks, i):
			add(expr[:t.pos] + expr[t.end:])
		case t.kind == tokMinus:
			add(expr[:t.pos] + "+" + expr[t.end:])
		case t.kind == tokPlus:
			add(expr[:t.pos] + "-" + expr[t.end:])
		case t.isOperand() && (i == 0 || (toks[i-1].kind != tokMinus && toks[i-1].kind != tokPlus)):
			add(expr[:t.pos] + "-" + expr[t.pos:])
		}
	}
	return out
}

func unaryAt(toks []token, i int) bool {
	if i == 0 {
		return true
	}
	switch toks[i-1].kind {
	case tokPlus, tokMinus, tokStar, tokSlash, tokCaret, tokLParen:
		return true
	}
	return false
}

func detectFractionError(c *stepContext) (string, bool) {
	for _, s := range []string{c.from, c.to} {
		if strings.Contains(s, "/") {
			return fmt.Sprintf("fraction or division in %q", s), true
		}
	}
	return "", false
}

func detectPowerError(c *stepContext) (string, bool) {
	for _, s := range []string{c.from, c.to} {
		if strings.Contains(s, "^") {
			return fmt.Sprintf("exponent in %q", s), true
		}
	}
	return "", false
}

func detectOrderError(c *stepContext) (string, bool) {
	if strings.Contains(c.from, "(") && strings.Contains(c.from, ")") {
		return fmt.Sprintf("parentheses in %q control the order of operations", c.from), true
	}
	return "", false
}

func detectCalculationError(c *stepContext) (string, bool) {
	if c.bothEvaluated() && !c.fromVal.Equal(c.toVal) {
		return fmt.Sprintf("%q equals %s, not %s", c.from, c.fromVal, c.toVal), true
	}
	return "", false
}
