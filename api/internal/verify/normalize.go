package verify

import (
	"strings"
	"unicode"
)

var glyphs = strings.NewReplacer(
	"×", "*", "·", "*", "⋅", "*", "∗", "*", "＊", "*",
	"÷", "/", "／", "/", "∕", "/",
	"（", "(", "）", ")", "［", "(", "］", ")", "｛", "(", "｝", ")",
	"＋", "+", "－", "-", "−", "-", "–", "-", "—", "-",
	"＝", "=", "．", ".", "，", ",", "：", ":", "＾", "^",
	"²", "^2", "³", "^3",
	"½", "[1/2]", "⅓", "[1/3]", "⅔", "[2/3]", "¼", "[1/4]", "¾", "[3/4]",
	"　", " ",
)

// Normalize приводит выражение к канонической ASCII-форме: заменяет
// визуально похожие символы операций, переводит "**" в "^" и оборачивает
// голую пару целых a/b в рациональный литерал [a/b]. Идемпотентна.
func Normalize(text string) string {
	s := strings.Map(func(r rune) rune {
		if r >= '０' && r <= '９' {
			return '0' + (r - '０')
		}
		return r
	}, text)
	s = glyphs.Replace(s)
	s = strings.ReplaceAll(s, "**", "^")
	s = markRationals(s)
	return strings.TrimSpace(s)
}

// markRationals оборачивает "a/b" (целые, допускаются пробелы вокруг "/")
// в [a/b] только там, где это не меняет приоритет: слева не "^", "/", "." или "[",
// справа не "^", "/", "." или "]".
func markRationals(s string) string {
	if !strings.Contains(s, "/") {
		return s
	}
	b := []byte(s)
	var out strings.Builder
	out.Grow(len(b) + 8)

	i := 0
	for i < len(b) {
		if !isDigit(b[i]) {
			out.WriteByte(b[i])
			i++
			continue
		}
		start := i
		for i < len(b) && isDigit(b[i]) {
			i++
		}
		numEnd := i

		j := skipSpaces(b, i)
		if j >= len(b) || b[j] != '/' {
			out.Write(b[start:numEnd])
			continue
		}
		k := skipSpaces(b, j+1)
		if k >= len(b) || !isDigit(b[k]) {
			out.Write(b[start:numEnd])
			continue
		}
		denStart := k
		for k < len(b) && isDigit(b[k]) {
			k++
		}
		denEnd := k

		if !freeBefore(b, start) || !freeAfter(b, denEnd) {
			// знаменатель ещё может начать следующую пару
			out.Write(b[start:numEnd])
			continue
		}
		out.WriteByte('[')
		out.Write(b[start:numEnd])
		out.WriteByte('/')
		out.Write(b[denStart:denEnd])
		out.WriteByte(']')
		i = denEnd
	}
	return out.String()
}

func freeBefore(b []byte, at int) bool {
	p := at - 1
	for p >= 0 && b[p] == ' ' {
		p--
	}
	if p < 0 {
		return true
	}
	switch b[p] {
	case '^', '/', '.', '[', ',':
		return false
	}
	// "x2/3" или "a1/2" — часть идентификатора, не трогаем
	return !isLetter(b[p])
}

func freeAfter(b []byte, at int) bool {
	p := skipSpaces(b, at)
	if p >= len(b) {
		return true
	}
	switch b[p] {
	case '^', '/', '.', ']', ',':
		return false
	}
	return !isLetter(b[p])
}

func skipSpaces(b []byte, i int) int {
	for i < len(b) && b[i] == ' ' {
		i++
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool { return c < 0x80 && unicode.IsLetter(rune(c)) || c == '_' }
