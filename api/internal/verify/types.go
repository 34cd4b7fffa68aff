package verify

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Verdict — результат проверки шага правилами. Нулевое значение — indeterminate,
// чтобы непроверенный шаг никогда не выглядел верным.
type Verdict int

const (
	Indeterminate Verdict = iota
	Correct
	Incorrect
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "indeterminate"
	}
}

// Determinate reports whether the rule engine reached a yes/no answer.
func (v Verdict) Determinate() bool { return v == Correct || v == Incorrect }

// Bool is only meaningful for determinate verdicts.
func (v Verdict) Bool() bool { return v == Correct }

func (v Verdict) MarshalJSON() ([]byte, error) { return json.Marshal(v.String()) }

func (v *Verdict) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "correct":
		*v = Correct
	case "incorrect":
		*v = Incorrect
	case "indeterminate", "":
		*v = Indeterminate
	default:
		return fmt.Errorf("unknown verdict %q", s)
	}
	return nil
}

// ErrorCategory — закрытая таксономия ошибок шага.
type ErrorCategory string

const (
	SignError              ErrorCategory = "sign_error"
	FractionError          ErrorCategory = "fraction_error"
	PowerError             ErrorCategory = "power_error"
	OrderOfOperationsError ErrorCategory = "order_of_operations_error"
	CalculationError       ErrorCategory = "calculation_error"
	Unknown                ErrorCategory = "unknown"
)

// Categories lists the taxonomy in classifier priority order.
var Categories = []ErrorCategory{
	SignError, FractionError, PowerError, OrderOfOperationsError, CalculationError, Unknown,
}

var (
	ErrNilStep           = errors.New("verify: nil solution step")
	ErrStepNotReconciled = errors.New("verify: step has no reconciliation record")
	ErrUnknownLocale     = errors.New("taxonomy: unknown locale")
)

// SolutionStep — одно преобразование from → to в решении ученика.
// Verifier пишет Rule, классификатор — Category (только при Rule == Incorrect),
// reconciliation — Final и Record.
type SolutionStep struct {
	From     string `json:"from"`
	To       string `json:"to"`
	External *bool  `json:"external_verdict,omitempty"`

	Rule     Verdict               `json:"rule_verdict"`
	Check    *StepCheck            `json:"check,omitempty"`
	Category *ErrorCategory        `json:"error_category,omitempty"`
	Evidence string                `json:"evidence,omitempty"`
	Final    bool                  `json:"final_verdict"`
	Record   *ReconciliationRecord `json:"reconciliation,omitempty"`
}

// Problem — задача вместе с упорядоченными шагами решения.
type Problem struct {
	ID    string          `json:"problem_id,omitempty"`
	Text  string          `json:"problem_text,omitempty"`
	Steps []*SolutionStep `json:"steps"`
}

// StepFeedback — подробности по неверному шагу для рендеринга отчёта.
type StepFeedback struct {
	StepNumber  int           `json:"step_number"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	Category    ErrorCategory `json:"error_category"`
	Label       string        `json:"label"`
	Explanation string        `json:"explanation"`
	Suggestions []string      `json:"suggestions"`
	Source      string        `json:"source"`             // rule | external | inconclusive
	Expected    string        `json:"expected,omitempty"` // exact value of From, when known
}

// VerificationSummary counts how steps were judged.
type VerificationSummary struct {
	TotalSteps         int     `json:"total_steps"`
	CorrectSteps       int     `json:"correct_steps"`
	RuleVerifiedSteps  int     `json:"rule_verified_steps"`
	ExternalSteps      int     `json:"external_steps"`
	Agreements         int     `json:"agreements"`
	AgreementRate      float64 `json:"agreement_rate"`
	DisagreementSteps  []int   `json:"disagreement_steps,omitempty"`
	InconclusiveSteps  []int   `json:"inconclusive_steps,omitempty"`
	RecoveredStepFails int     `json:"recovered_step_failures,omitempty"`
}

// ValidationResult — итог по задаче. Создаётся один раз агрегатором.
type ValidationResult struct {
	IsCorrect        bool                `json:"is_correct"`
	Confidence       float64             `json:"confidence"`
	ErrorType        string              `json:"error_type,omitempty"`
	ErrorDescription string              `json:"error_description"`
	Suggestions      []string            `json:"suggestions"`
	Praise           string              `json:"praise,omitempty"`
	ErrorSummary     string              `json:"error_summary,omitempty"`
	CategorySummary  string              `json:"category_summary,omitempty"`
	Steps            []StepFeedback      `json:"step_feedback,omitempty"`
	Summary          VerificationSummary `json:"verification_summary"`
}
