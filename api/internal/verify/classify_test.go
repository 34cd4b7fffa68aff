package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		from, to string
		want     ErrorCategory
	}{
		{"subtracting a negative", "15 - (-4)", "11", SignError},
		{"dropped unary minus", "-3 + 5", "8", SignError},
		{"negated result", "2 * 3", "-6", SignError},
		{"lost negative in text", "-a", "b", SignError},
		{"fraction", "1/2 + 1/3", "2/5", FractionError},
		{"chain fraction", "16/16 + 4/9", "67/144", FractionError},
		{"power", "2^3", "6", PowerError},
		{"parentheses", "(2+3)*4", "14", OrderOfOperationsError},
		{"plain slip", "7*8", "54", CalculationError},
		{"unparseable", "@@@", "###", Unknown},
		{"actually equal", "2+2", "4", Unknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.from, tc.to))
		})
	}
}

func TestClassifyDetail_Evidence(t *testing.T) {
	c := ClassifyDetail("15 - (-4)", "11")
	assert.Equal(t, SignError, c.Category)
	assert.Contains(t, c.Evidence, "15 + (-4)")
}

// Каждый детектор проверяется отдельно от остальных.
func TestDetectors_InIsolation(t *testing.T) {
	type sample struct {
		from, to string
		want     bool
	}
	cases := []struct {
		name   string
		detect func(*stepContext) (string, bool)
		samples []sample
	}{
		{"sign", detectSignError, []sample{
			{"15 - (-4)", "11", true},
			{"2 + 3", "7", false},
			{"(-5) + 2", "3", true},
			{"1/2 + 1/3", "2/5", false},
		}},
		{"fraction", detectFractionError, []sample{
			{"1/2 + 1/3", "2/5", true},
			{"3 + 4", "1/2", true},
			{"3 + 4", "8", false},
		}},
		{"power", detectPowerError, []sample{
			{"2^3", "6", true},
			{"3²", "6", true},
			{"3 * 2", "5", false},
		}},
		{"order", detectOrderError, []sample{
			{"(2+3)*4", "14", true},
			{"2+3*4", "(20)", false},
		}},
		{"calculation", detectCalculationError, []sample{
			{"7*8", "54", true},
			{"7*8", "56", false},
			{"@@@", "54", false},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, p := range tc.samples {
				_, ok := tc.detect(newStepContext(p.from, p.to))
				assert.Equal(t, p.want, ok, "%s: %q -> %q", tc.name, p.from, p.to)
			}
		})
	}
}

func TestDetectors_Priority(t *testing.T) {
	want := []ErrorCategory{SignError, FractionError, PowerError, OrderOfOperationsError, CalculationError}
	got := make([]ErrorCategory, 0, len(detectors))
	for _, d := range detectors {
		got = append(got, d.category)
	}
	assert.Equal(t, want, got)
}

func TestSignVariants(t *testing.T) {
	vs := signVariants("15 - (-4)")
	assert.Contains(t, vs, "15 + (-4)")
	assert.Contains(t, vs, "15 - (4)")
	assert.Contains(t, vs, "-15 - (-4)")
	assert.Nil(t, signVariants("@@@"))
}
