package verify

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		expr string
		want Number
	}{
		{"1/2 + 1/3", FracNumber(5, 6)},
		{"(-2)^3", IntNumber(-8)},
		{"2*3+4", IntNumber(10)},
		{"-2^2", IntNumber(-4)},
		{"2^-1", FracNumber(1, 2)},
		{"2^3^2", IntNumber(512)},
		{"2**3", IntNumber(8)},
		{"3²", IntNumber(9)},
		{"10 - 4 - 3", IntNumber(3)},
		{"8/4/2", IntNumber(1)},
		{"0.1 + 0.2", FracNumber(3, 10)},
		{"7 ÷ 2", FracNumber(7, 2)},
		{"½ + ½", IntNumber(1)},
		{"15 - (-4)", IntNumber(19)},
		{"11/16 + 4/9 + 5/16", FracNumber(13, 9)},
		{"--3", IntNumber(3)},
		{"(2+3)*(4-1)", IntNumber(15)},
		{"(2^4096)^2 / 4^4096", IntNumber(1)},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Evaluate(tc.expr)
			require.NoError(t, err)
			assert.True(t, got.IsExact(), "expected exact result")
			assert.True(t, got.Equal(tc.want), "got %s, want %s", got, tc.want)
		})
	}
}

func TestEvaluate_ExactRationalString(t *testing.T) {
	got, err := Evaluate("1/2 + 1/3")
	require.NoError(t, err)
	assert.Equal(t, "5/6", got.String())
	assert.Equal(t, "5/6", got.Rat().RatString())
}

func TestEvaluate_FloatFallback(t *testing.T) {
	got, err := Evaluate("4^0.5")
	require.NoError(t, err)
	assert.False(t, got.IsExact())
	assert.InDelta(t, 2.0, got.Float64(), Tolerance)
	assert.True(t, got.Equal(IntNumber(2)))
}

func TestEvaluate_Errors(t *testing.T) {
	deep := strings.Repeat("(", 300) + "1" + strings.Repeat(")", 300)
	cases := []struct {
		expr string
		kind error
	}{
		{"1/0", ErrDivisionByZero},
		{"1/(2-2)", ErrDivisionByZero},
		{"0^-1", ErrDivisionByZero},
		{"", ErrSyntax},
		{"@@@", ErrSyntax},
		{"2+", ErrSyntax},
		{"(1+2", ErrSyntax},
		{"1 2", ErrSyntax},
		{"3 = 3", ErrSyntax},
		{"x + 1", ErrSyntax},
		{"(-8)^(1/3)", ErrUnsupported},
		{"2^5000", ErrUnsupported},
		{"(9^4096)^4096", ErrUnsupported},
		{"((9^4096)^4096)^4096", ErrUnsupported},
		{"(3^4096)^20", ErrUnsupported},
		{deep, ErrUnsupported},
	}
	for _, tc := range cases {
		name := tc.expr
		if len(name) > 20 {
			name = name[:20]
		}
		t.Run(name, func(t *testing.T) {
			_, err := Evaluate(tc.expr)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.GreaterOrEqual(t, pe.Pos, 0)
		})
	}
}

func TestEvaluate_ErrorPosition(t *testing.T) {
	_, err := Evaluate("1 + @")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 4, pe.Pos)
	assert.Contains(t, pe.Error(), "syntax error")
}
