package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairs(steps []*SolutionStep) [][2]string {
	out := make([][2]string, len(steps))
	for i, s := range steps {
		out[i] = [2]string{s.From, s.To}
	}
	return out
}

func TestParseChain(t *testing.T) {
	steps := ParseChain("11/16 + 4/9 + 5/16 = 16/16 + 4/9 = 13/9", "")
	assert.Equal(t, [][2]string{
		{"11/16 + 4/9 + 5/16", "16/16 + 4/9"},
		{"16/16 + 4/9", "13/9"},
	}, pairs(steps))

	steps = ParseChain("= 13/9", "16/16 + 4/9")
	assert.Equal(t, [][2]string{{"16/16 + 4/9", "13/9"}}, pairs(steps))

	assert.Empty(t, ParseChain("= 13/9", ""))
	assert.Empty(t, ParseChain("no equals here", "x"))
	assert.Empty(t, ParseChain("3 + 4 =", ""))
}

func TestParseSolution(t *testing.T) {
	text := "1. 11/16 + 4/9 + 5/16\n" +
		"= 16/16 + 4/9\n" +
		"= 13/9\n" +
		"\n" +
		"2. 15 - (-4) = 11\n" +
		"2.5 + 1 = 3.5\n"

	problems := ParseSolution(text)
	require.Len(t, problems, 2)

	assert.Equal(t, "problem_1", problems[0].ID)
	assert.Equal(t, "11/16 + 4/9 + 5/16", problems[0].Text)
	assert.Equal(t, [][2]string{
		{"11/16 + 4/9 + 5/16", "16/16 + 4/9"},
		{"16/16 + 4/9", "13/9"},
	}, pairs(problems[0].Steps))

	assert.Equal(t, "problem_2", problems[1].ID)
	assert.Equal(t, "15 - (-4)", problems[1].Text)
	assert.Equal(t, [][2]string{
		{"15 - (-4)", "11"},
		{"2.5 + 1", "3.5"},
	}, pairs(problems[1].Steps))
}

func TestParseSolution_NoHeaders(t *testing.T) {
	problems := ParseSolution("3 + 4 = 7\n= 7")
	require.Len(t, problems, 1)
	assert.Equal(t, "problem_1", problems[0].ID)
	assert.Equal(t, [][2]string{{"3 + 4", "7"}, {"7", "7"}}, pairs(problems[0].Steps))

	assert.Empty(t, ParseSolution(""))
}
