package verify

import (
	"math/big"
	"strings"
)

// evaluateFractionChain — запасной разбор цепочки "a/b ± c/d ± ..." по слагаемым.
// В отличие от Evaluate понимает смешанные числа ("2 1/3") и хвостовой "=".
func evaluateFractionChain(expr string) (Number, bool) {
	s := Normalize(expr)
	s = strings.NewReplacer("[", "", "]", "").Replace(s)
	s = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "="))
	if s == "" {
		return Number{}, false
	}

	sum := new(big.Rat)
	sign := 1
	var term strings.Builder
	terms := 0

	flush := func() bool {
		t := strings.TrimSpace(term.String())
		term.Reset()
		if t == "" {
			return false
		}
		v, ok := parseChainTerm(t)
		if !ok {
			return false
		}
		if sign < 0 {
			v.Neg(v)
		}
		sum.Add(sum, v)
		terms++
		sign = 1
		return true
	}

	pending := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '+' && c != '-' {
			term.WriteByte(c)
			if c != ' ' {
				pending = true
			}
			continue
		}
		if pending {
			if !flush() {
				return Number{}, false
			}
			pending = false
		} else if strings.TrimSpace(term.String()) != "" {
			return Number{}, false
		}
		if c == '-' {
			sign = -sign
		}
	}
	if !pending || !flush() {
		return Number{}, false
	}
	if terms == 0 {
		return Number{}, false
	}
	return RatNumber(sum), true
}

// parseChainTerm: "7", "0.25", "3/4", "2 1/3".
func parseChainTerm(t string) (*big.Rat, bool) {
	fields := strings.Fields(t)
	switch len(fields) {
	case 1:
		return parseSimpleFraction(fields[0])
	case 2:
		whole, ok := new(big.Rat).SetString(fields[0])
		if !ok || !allDigits(fields[0]) || !strings.Contains(fields[1], "/") {
			return nil, false
		}
		frac, ok := parseSimpleFraction(fields[1])
		if !ok {
			return nil, false
		}
		return whole.Add(whole, frac), true
	default:
		return nil, false
	}
}

func parseSimpleFraction(f string) (*big.Rat, bool) {
	num, den, isFrac := strings.Cut(f, "/")
	if !isFrac {
		if !isDecimal(f) {
			return nil, false
		}
		return new(big.Rat).SetString(f)
	}
	if !allDigits(num) || !allDigits(den) {
		return nil, false
	}
	n, _ := new(big.Int).SetString(num, 10)
	d, _ := new(big.Int).SetString(den, 10)
	if d.Sign() == 0 {
		return nil, false
	}
	return new(big.Rat).SetFrac(n, d), true
}

func isDecimal(s string) bool {
	whole, frac, hasDot := strings.Cut(s, ".")
	if !hasDot {
		return allDigits(whole)
	}
	return (whole == "" || allDigits(whole)) && allDigits(frac)
}
