package filter

import "math"

// Deadband suppresses a candidate when it falls within gap/ratio of the
// previous emitted value; both negative disables suppression entirely.
type Deadband struct {
	Gap   float64 // absolute gap; negative means "use ratio instead"
	Ratio float64 // relative gap as a fraction of |prev|; negative means disabled
}

// NewDeadbandFilter builds a Base wired with deadband suppression.
func NewDeadbandFilter(gap, ratio float64) *Base {
	return NewBase(&Deadband{Gap: gap, Ratio: ratio}, nil)
}

// DoFilter implements Decider: suppress when |v - prev| <= effective gap.
func (d *Deadband) DoFilter(v, prev float64, hasPrev bool) bool {
	if !hasPrev {
		return false
	}
	effective := d.effectiveGap(prev)
	if effective < 0 {
		return false
	}
	return math.Abs(v-prev) <= effective
}

func (d *Deadband) effectiveGap(prev float64) float64 {
	if d.Gap >= 0 {
		return d.Gap
	}
	if d.Ratio >= 0 {
		return math.Abs(prev) * d.Ratio
	}
	return -1
}
