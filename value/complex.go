package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Complex holds either a cartesian or polar representation; the two are
// interconvertible and arithmetic always normalizes the result of an
// operation to cartesian form internally, exposing ToPolar()/ToCartesian()
// to switch views without mutating the receiver.
type Complex struct {
	polar      bool
	re, im     float64 // valid when !polar
	mag, angle float64 // valid when polar
}

// NewCartesian builds a cartesian Complex.
func NewCartesian(re, im float64) Complex { return Complex{re: re, im: im} }

// NewPolar builds a polar Complex, normalizing a negative magnitude by
// flipping its sign and rotating the angle by π, then folding the angle into
// (-π, π].
func NewPolar(mag, angle float64) Complex {
	if mag < 0 {
		mag = -mag
		angle += math.Pi
	}
	return Complex{polar: true, mag: mag, angle: foldAngle(angle)}
}

func foldAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// IsCartesian reports whether the receiver holds a cartesian representation.
func (c Complex) IsCartesian() bool { return !c.polar }

// ToCartesian returns the cartesian equivalent.
func (c Complex) ToCartesian() Complex {
	if !c.polar {
		return c
	}
	return Complex{re: c.mag * math.Cos(c.angle), im: c.mag * math.Sin(c.angle)}
}

// ToPolar returns the polar equivalent.
func (c Complex) ToPolar() Complex {
	if c.polar {
		return c
	}
	return NewPolar(math.Hypot(c.re, c.im), math.Atan2(c.im, c.re))
}

// Real and Imag return the cartesian components, converting if necessary.
func (c Complex) Real() float64 { return c.ToCartesian().re }
func (c Complex) Imag() float64 { return c.ToCartesian().im }

// Magnitude and Angle return the polar components, converting if necessary.
func (c Complex) Magnitude() float64 { return c.ToPolar().mag }
func (c Complex) Angle() float64     { return c.ToPolar().angle }

// Add, Sub, Mul, Div implement the obvious lifted cartesian arithmetic.
func (c Complex) Add(o Complex) Complex {
	a, b := c.ToCartesian(), o.ToCartesian()
	return NewCartesian(a.re+b.re, a.im+b.im)
}

func (c Complex) Sub(o Complex) Complex {
	a, b := c.ToCartesian(), o.ToCartesian()
	return NewCartesian(a.re-b.re, a.im-b.im)
}

func (c Complex) Mul(o Complex) Complex {
	a, b := c.ToCartesian(), o.ToCartesian()
	return NewCartesian(a.re*b.re-a.im*b.im, a.re*b.im+a.im*b.re)
}

func (c Complex) Div(o Complex) Complex {
	a, b := c.ToCartesian(), o.ToCartesian()
	denom := b.re*b.re + b.im*b.im
	return NewCartesian(
		(a.re*b.re+a.im*b.im)/denom,
		(a.im*b.re-a.re*b.im)/denom,
	)
}

// Sqrt uses the magnitude-preserving (Stewart-Kahan style) form to avoid
// cancellation: scale by the larger magnitude component before combining
// rather than computing re*re+im*im directly, which can overflow or lose
// precision for large inputs.
func (c Complex) Sqrt() Complex {
	a := c.ToCartesian()
	if a.re == 0 && a.im == 0 {
		return NewCartesian(0, 0)
	}
	w := math.Sqrt((math.Abs(a.re) + math.Hypot(a.re, a.im)) / 2)
	if a.re >= 0 {
		return NewCartesian(w, a.im/(2*w))
	}
	im := math.Copysign(w, a.im)
	return NewCartesian(a.im/(2*im), im)
}

// logOf returns the principal complex logarithm, used to derive the inverse
// trigonometric functions below.
func (c Complex) logOf() Complex {
	p := c.ToPolar()
	return NewCartesian(math.Log(p.mag), p.angle)
}

var i1 = NewCartesian(0, 1)

// Asin derives from the logarithmic identity asin(z) = -i*ln(iz + sqrt(1-z^2)).
func (c Complex) Asin() Complex {
	one := NewCartesian(1, 0)
	inner := one.Sub(c.Mul(c)).Sqrt()
	return i1.Mul(NewCartesian(-1, 0)).Mul(i1.Mul(c).Add(inner).logOf())
}

// Acos derives from acos(z) = -i*ln(z + i*sqrt(1-z^2)).
func (c Complex) Acos() Complex {
	one := NewCartesian(1, 0)
	inner := one.Sub(c.Mul(c)).Sqrt()
	return i1.Mul(NewCartesian(-1, 0)).Mul(c.Add(i1.Mul(inner)).logOf())
}

// Atan derives from atan(z) = (i/2)*ln((1-iz)/(1+iz)).
func (c Complex) Atan() Complex {
	one := NewCartesian(1, 0)
	num := one.Sub(i1.Mul(c))
	den := one.Add(i1.Mul(c))
	half := NewCartesian(0, 0.5)
	return half.Mul(num.Div(den).logOf())
}

// String renders the cartesian "a+bj" form (or "a-bj" for a negative
// imaginary part), matching the parseable format.
func (c Complex) String() string {
	a := c.ToCartesian()
	sign := "+"
	im := a.im
	if im < 0 {
		sign = "-"
		im = -im
	}
	return fmt.Sprintf("%g%s%gj", a.re, sign, im)
}

// ParseComplex recognizes cartesian "a+bj"/"a-bj"/"a+bi" or polar "r cis t".
func ParseComplex(s string) (Complex, error) {
	s = strings.TrimSpace(s)
	if idx := strings.Index(strings.ToLower(s), "cis"); idx >= 0 {
		magStr := strings.TrimSpace(s[:idx])
		angleStr := strings.TrimSpace(s[idx+3:])
		mag, err := strconv.ParseFloat(magStr, 64)
		if err != nil {
			return Complex{}, fmt.Errorf("value: invalid polar magnitude %q: %w", magStr, err)
		}
		angle, err := strconv.ParseFloat(angleStr, 64)
		if err != nil {
			return Complex{}, fmt.Errorf("value: invalid polar angle %q: %w", angleStr, err)
		}
		return NewPolar(mag, angle), nil
	}

	lower := strings.ToLower(s)
	suffix := ""
	if strings.HasSuffix(lower, "j") {
		suffix = "j"
	} else if strings.HasSuffix(lower, "i") {
		suffix = "i"
	}
	if suffix == "" {
		re, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Complex{}, fmt.Errorf("value: invalid complex literal %q: %w", s, err)
		}
		return NewCartesian(re, 0), nil
	}

	body := s[:len(s)-1]
	// Find the split between real and imaginary parts: the last +/- not at
	// index 0 and not immediately following an exponent marker.
	splitAt := -1
	for i := len(body) - 1; i > 0; i-- {
		if (body[i] == '+' || body[i] == '-') && body[i-1] != 'e' && body[i-1] != 'E' {
			splitAt = i
			break
		}
	}
	if splitAt < 0 {
		im, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return Complex{}, fmt.Errorf("value: invalid complex literal %q: %w", s, err)
		}
		return NewCartesian(0, im), nil
	}
	re, err := strconv.ParseFloat(body[:splitAt], 64)
	if err != nil {
		return Complex{}, fmt.Errorf("value: invalid complex literal %q: %w", s, err)
	}
	imPart := body[splitAt:]
	if imPart == "+" {
		imPart = "1"
	} else if imPart == "-" {
		imPart = "-1"
	}
	im, err := strconv.ParseFloat(imPart, 64)
	if err != nil {
		return Complex{}, fmt.Errorf("value: invalid complex literal %q: %w", s, err)
	}
	return NewCartesian(re, im), nil
}
