package value

import (
	"fmt"
	"math/big"
	"strings"
)

// BigRational is an arbitrary-precision rational, always stored reduced
// with a positive denominator, used as the overflow fallback for Rational
// arithmetic and for values that exceed 64-bit range.
type BigRational struct {
	num, den *big.Int
}

// BigValueOf builds a reduced BigRational.
func BigValueOf(num, den *big.Int) (BigRational, error) {
	if den.Sign() == 0 {
		return BigRational{}, fmt.Errorf("value: big rational denominator must not be zero")
	}
	n := new(big.Int).Set(num)
	d := new(big.Int).Set(den)
	if d.Sign() < 0 {
		n.Neg(n)
		d.Neg(d)
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(n), d)
	if g.Sign() != 0 && g.Cmp(big.NewInt(1)) != 0 {
		n.Div(n, g)
		d.Div(d, g)
	}
	return BigRational{num: n, den: d}, nil
}

// Num and Den return the reduced numerator and denominator. Callers must not
// mutate the returned *big.Int.
func (r BigRational) Num() *big.Int { return r.num }
func (r BigRational) Den() *big.Int { return r.den }

// Add returns r+o, reduced.
func (r BigRational) Add(o BigRational) (BigRational, error) {
	num := new(big.Int).Add(
		new(big.Int).Mul(r.num, o.den),
		new(big.Int).Mul(o.num, r.den),
	)
	den := new(big.Int).Mul(r.den, o.den)
	return BigValueOf(num, den)
}

// Negate returns -r.
func (r BigRational) Negate() BigRational {
	return BigRational{num: new(big.Int).Neg(r.num), den: new(big.Int).Set(r.den)}
}

// String renders "n/d", or "n" when the denominator is 1.
func (r BigRational) String() string {
	if r.den.Cmp(big.NewInt(1)) == 0 {
		return r.num.String()
	}
	return r.num.String() + "/" + r.den.String()
}

// ParseBigRational accepts either "n" or "n/d".
func ParseBigRational(s string) (BigRational, error) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, "/", 2)
	num, ok := new(big.Int).SetString(strings.TrimSpace(parts[0]), 10)
	if !ok {
		return BigRational{}, fmt.Errorf("value: invalid big rational numerator %q", parts[0])
	}
	if len(parts) == 1 {
		return BigValueOf(num, big.NewInt(1))
	}
	den, ok := new(big.Int).SetString(strings.TrimSpace(parts[1]), 10)
	if !ok {
		return BigRational{}, fmt.Errorf("value: invalid big rational denominator %q", parts[1])
	}
	return BigValueOf(num, den)
}
