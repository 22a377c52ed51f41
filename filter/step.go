package filter

import "math"

// Step extends Deadband with a "snap to step" adjustment: a candidate
// within ceilingGap below the next step boundary, or floorGap above the
// previous one, is forced to that boundary before the deadband decision
// runs.
type Step struct {
	Deadband
	StepSize   float64
	CeilingGap float64 // negative means derive from StepSize * ratio
	FloorGap   float64 // negative means derive from StepSize * ratio
	GapRatio   float64
}

// NewStepFilter builds a Base wired with step-snap plus deadband
// suppression.
func NewStepFilter(gap, ratio, stepSize, ceilingGap, floorGap, gapRatio float64) *Base {
	s := &Step{
		Deadband:   Deadband{Gap: gap, Ratio: ratio},
		StepSize:   stepSize,
		CeilingGap: ceilingGap,
		FloorGap:   floorGap,
		GapRatio:   gapRatio,
	}
	return NewBase(s, s)
}

// Snap implements Snapper: force v to the nearest step boundary when it
// falls within the configured gap of that boundary.
func (s *Step) Snap(v, prev float64, hasPrev bool) float64 {
	if s.StepSize <= 0 {
		return v
	}
	ceiling := s.effectiveStepGap(s.CeilingGap)
	floor := s.effectiveStepGap(s.FloorGap)

	nextStep := math.Ceil(v/s.StepSize) * s.StepSize
	prevStep := math.Floor(v/s.StepSize) * s.StepSize

	if ceiling >= 0 && nextStep-v <= ceiling {
		return nextStep
	}
	if floor >= 0 && v-prevStep <= floor {
		return prevStep
	}
	return v
}

func (s *Step) effectiveStepGap(configured float64) float64 {
	if configured >= 0 {
		return configured
	}
	if s.GapRatio >= 0 {
		return s.StepSize * s.GapRatio
	}
	return -1
}
