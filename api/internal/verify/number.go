package verify

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Tolerance is used only when a float fallback took part in the comparison.
const Tolerance = 1e-9

// maxExponent bounds |n| in a^n so that a hostile input cannot make big.Int
// allocate without limit.
const maxExponent = 4096

// maxPowBits bounds the size of an exact power result: (bits of the base) * |n|.
const maxPowBits = 1 << 16

// Number — точное рациональное число, либо float64, если точное представление невозможно.
type Number struct {
	rat *big.Rat
	f   float64
}

func RatNumber(r *big.Rat) Number { return Number{rat: new(big.Rat).Set(r)} }

func IntNumber(n int64) Number { return Number{rat: new(big.Rat).SetInt64(n)} }

func FracNumber(num, den int64) Number { return Number{rat: big.NewRat(num, den)} }

func FloatNumber(f float64) Number { return Number{f: f} }

func (n Number) IsExact() bool { return n.rat != nil }

// Rat returns a copy of the exact value, or nil for float values.
func (n Number) Rat() *big.Rat {
	if n.rat == nil {
		return nil
	}
	return new(big.Rat).Set(n.rat)
}

func (n Number) Float64() float64 {
	if n.rat == nil {
		return n.f
	}
	f, _ := n.rat.Float64()
	return f
}

func (n Number) IsZero() bool {
	if n.rat != nil {
		return n.rat.Sign() == 0
	}
	return n.f == 0
}

func (n Number) IsInteger() bool {
	if n.rat != nil {
		return n.rat.IsInt()
	}
	return n.f == math.Trunc(n.f)
}

// String prints exact values as "a/b" or "a", float values in shortest form.
func (n Number) String() string {
	if n.rat == nil {
		return strconv.FormatFloat(n.f, 'g', -1, 64)
	}
	return n.rat.RatString()
}

func (n Number) MarshalJSON() ([]byte, error) { return json.Marshal(n.String()) }

// UnmarshalJSON читает то, что пишет MarshalJSON: "a" или "a/b" — точное
// значение, остальное ("0.1", "1e+30", "NaN") — float. Голое JSON-число тоже
// принимается.
func (n *Number) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var f json.Number
		if err2 := json.Unmarshal(b, &f); err2 != nil {
			return fmt.Errorf("number: %w", err)
		}
		s = f.String()
	}
	s = strings.TrimSpace(s)
	if s != "" && strings.Trim(s, "-0123456789/") == "" {
		if r, ok := new(big.Rat).SetString(s); ok {
			*n = Number{rat: r}
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("number: bad value %q", s)
	}
	*n = Number{f: f}
	return nil
}

// Equal — точное сравнение для рациональных, иначе |a-b| < Tolerance.
func (n Number) Equal(m Number) bool {
	if n.rat != nil && m.rat != nil {
		return n.rat.Cmp(m.rat) == 0
	}
	return math.Abs(n.Float64()-m.Float64()) < Tolerance
}

func (n Number) Neg() Number {
	if n.rat != nil {
		return Number{rat: new(big.Rat).Neg(n.rat)}
	}
	return Number{f: -n.f}
}

func (n Number) Add(m Number) Number {
	if n.rat != nil && m.rat != nil {
		return Number{rat: new(big.Rat).Add(n.rat, m.rat)}
	}
	return Number{f: n.Float64() + m.Float64()}
}

func (n Number) Sub(m Number) Number { return n.Add(m.Neg()) }

func (n Number) Mul(m Number) Number {
	if n.rat != nil && m.rat != nil {
		return Number{rat: new(big.Rat).Mul(n.rat, m.rat)}
	}
	return Number{f: n.Float64() * m.Float64()}
}

func (n Number) Quo(m Number) (Number, error) {
	if m.IsZero() {
		return Number{}, ErrDivisionByZero
	}
	if n.rat != nil && m.rat != nil {
		return Number{rat: new(big.Rat).Quo(n.rat, m.rat)}, nil
	}
	return Number{f: n.Float64() / m.Float64()}, nil
}

// Pow: целый показатель считается точно; дробный показатель положительного
// основания уходит во float64; всё остальное — ErrUnsupported.
func (n Number) Pow(e Number) (Number, error) {
	if e.rat != nil && e.rat.IsInt() {
		k := e.rat.Num()
		if !k.IsInt64() || k.Int64() > maxExponent || k.Int64() < -maxExponent {
			return Number{}, ErrUnsupported
		}
		exp := k.Int64()
		if n.rat == nil {
			if n.f == 0 && exp < 0 {
				return Number{}, ErrDivisionByZero
			}
			return Number{f: math.Pow(n.f, float64(exp))}, nil
		}
		if n.rat.Sign() == 0 {
			if exp < 0 {
				return Number{}, ErrDivisionByZero
			}
			if exp == 0 {
				return IntNumber(1), nil
			}
			return IntNumber(0), nil
		}
		abs := exp
		if abs < 0 {
			abs = -abs
		}
		bits := max(n.rat.Num().BitLen(), n.rat.Denom().BitLen())
		if int64(bits)*abs > maxPowBits {
			return Number{}, ErrUnsupported
		}
		bigExp := big.NewInt(abs)
		num := new(big.Int).Exp(n.rat.Num(), bigExp, nil)
		den := new(big.Int).Exp(n.rat.Denom(), bigExp, nil)
		if exp < 0 {
			num, den = den, num
		}
		return Number{rat: new(big.Rat).SetFrac(num, den)}, nil
	}

	base, ex := n.Float64(), e.Float64()
	if base < 0 {
		return Number{}, ErrUnsupported
	}
	if base == 0 && ex < 0 {
		return Number{}, ErrDivisionByZero
	}
	r := math.Pow(base, ex)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Number{}, ErrUnsupported
	}
	return Number{f: r}, nil
}
