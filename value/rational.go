package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rational is a 64-bit numerator/denominator pair, always stored reduced
// with a positive denominator. An Add that would overflow int64 reports it
// via its ok return; it does not compute the BigRational result itself.
type Rational struct {
	num, den int64
}

// ValueOf builds a reduced Rational. Passing den == 0 is a configuration
// error, not a panic, since malformed input can originate from parsed
// external data.
func ValueOf(num, den int64) (Rational, error) {
	if den == 0 {
		return Rational{}, fmt.Errorf("value: rational denominator must not be zero")
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcdInt64(absInt64(num), den)
	if g > 1 {
		num /= g
		den /= g
	}
	return Rational{num: num, den: den}, nil
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func gcdInt64(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// Num and Den return the reduced numerator and denominator.
func (r Rational) Num() int64 { return r.num }
func (r Rational) Den() int64 { return r.den }

// Negate returns -r. Negating the numerator at math.MinInt64 would overflow,
// so that case is a reported error rather than silently wrapping.
func (r Rational) Negate() (Rational, error) {
	if r.num == math.MinInt64 {
		return Rational{}, fmt.Errorf("value: cannot negate rational with numerator MinInt64")
	}
	return Rational{num: -r.num, den: r.den}, nil
}

// Add returns r+o with ok true. When the direct int64 computation would
// overflow it returns the zero Rational with ok false and no error; the
// sum is then not computed, in big.Int or any other arithmetic.
func (r Rational) Add(o Rational) (Rational, bool, error) {
	num1, overflow1 := mulOverflows(r.num, o.den)
	num2, overflow2 := mulOverflows(o.num, r.den)
	den, overflowDen := mulOverflows(r.den, o.den)
	if overflow1 || overflow2 || overflowDen {
		return Rational{}, false, nil // signal caller to use BigRational
	}
	sum, overflowSum := addOverflows(num1, num2)
	if overflowSum {
		return Rational{}, false, nil
	}
	result, err := ValueOf(sum, den)
	return result, true, err
}

func mulOverflows(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	r := a * b
	if r/b != a {
		return 0, true
	}
	return r, false
}

func addOverflows(a, b int64) (int64, bool) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, true
	}
	return r, false
}

// String renders "n/d", or "n" when the denominator is 1.
func (r Rational) String() string {
	if r.den == 1 {
		return strconv.FormatInt(r.num, 10)
	}
	return fmt.Sprintf("%d/%d", r.num, r.den)
}

// ParseRational accepts either "n" or "n/d".
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, "/", 2)
	num, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("value: invalid rational numerator %q: %w", parts[0], err)
	}
	if len(parts) == 1 {
		return ValueOf(num, 1)
	}
	den, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("value: invalid rational denominator %q: %w", parts[1], err)
	}
	return ValueOf(num, den)
}
