package verify

// Способ, которым получен вердикт правил.
const (
	MethodExact    = "exact"
	MethodDecimal  = "decimal"
	MethodFraction = "fraction_fallback"
	MethodNone     = "none"
)

// StepCheck — подробности проверки одного шага правилами.
type StepCheck struct {
	Verdict   Verdict `json:"verdict"`
	Method    string  `json:"method"`
	FromValue *Number `json:"from_value,omitempty"`
	ToValue   *Number `json:"to_value,omitempty"`
	FromError string  `json:"from_error,omitempty"`
	ToError   string  `json:"to_error,omitempty"`
	Recovered bool    `json:"recovered,omitempty"`
}

// VerifyStep сравнивает значения from и to. Ошибка разбора даёт Indeterminate,
// а не Incorrect.
func VerifyStep(from, to string) Verdict {
	return CheckStep(from, to).Verdict
}

func CheckStep(from, to string) StepCheck {
	fv, ferr := Evaluate(from)
	tv, terr := Evaluate(to)

	if ferr == nil && terr == nil {
		method := MethodExact
		if !fv.IsExact() || !tv.IsExact() {
			method = MethodDecimal
		}
		return StepCheck{
			Verdict:   verdictOf(fv.Equal(tv)),
			Method:    method,
			FromValue: &fv,
			ToValue:   &tv,
		}
	}

	sc := StepCheck{Verdict: Indeterminate, Method: MethodNone}
	if ferr != nil {
		sc.FromError = ferr.Error()
		if v, ok := evaluateFractionChain(from); ok {
			fv, ferr = v, nil
		}
	}
	if terr != nil {
		sc.ToError = terr.Error()
		if v, ok := evaluateFractionChain(to); ok {
			tv, terr = v, nil
		}
	}
	if ferr != nil || terr != nil {
		return sc
	}
	sc.Verdict = verdictOf(fv.Equal(tv))
	sc.Method = MethodFraction
	sc.FromValue = &fv
	sc.ToValue = &tv
	return sc
}

func verdictOf(ok bool) Verdict {
	if ok {
		return Correct
	}
	return Incorrect
}
