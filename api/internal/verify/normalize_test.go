package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"3 × 4", "3 * 4"},
		{"8 ÷ 2", "[8/2]"},
		{"（1+2）×3", "(1+2)*3"},
		{"2**3", "2^3"},
		{"1/2 + 1/3", "[1/2] + [1/3]"},
		{"1 / 2", "[1/2]"},
		{"2^1/2", "2^1/2"},
		{"1/2/3", "1/2/3"},
		{"3.5/7", "3.5/7"},
		{"(1/2)", "([1/2])"},
		{"2 1/3", "2 [1/3]"},
		{"x²", "x^2"},
		{"½ + ¼", "[1/2] + [1/4]"},
		{"１２＋３", "12+3"},
		{"－3 − 2", "-3 - 2"},
		{"a1/2", "a1/2"},
		{"   5   ", "5"},
		{"@@@", "@@@"},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"11/16 + 4/9 + 5/16", "16/16 + 4/9", "15 - (-4)", "(-2)³", "2 ** 3 ** 2",
		"½ ÷ ¼", "[1/2]", "[1/", "1 / 2 / 3", "3.5/7", "2 1/3 + 1/3 =",
		"（－3）×（＋4）", "x²+y²", "****", "**/", "　7　", "a1/2", "１/２",
		"@@@", "", " / ", "1/2^3", "((1/2))", "7 ÷ 0",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}
