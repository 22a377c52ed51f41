package batch

import "github.com/evalgo/rvpf/value"

// ResultSet de-duplicates ResultValues by (point, stamp) identity so that
// multiple triggering behaviors converge on a single ResultValue instead
// of scheduling duplicate work.
type ResultSet struct {
	byKey map[string]value.PointValue
	order []string
}

// NewResultSet returns an empty ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{byKey: map[string]value.PointValue{}}
}

func resultKey(v value.PointValue) string {
	return v.Point().Key() + "@" + v.Stamp().String()
}

// SetUpResultValue returns the existing ResultValue for (point, stamp) if
// one is already registered, else registers preMade as given and returns
// it.
func (s *ResultSet) SetUpResultValue(preMade value.PointValue) value.PointValue {
	k := resultKey(preMade)
	if existing, ok := s.byKey[k]; ok {
		return existing
	}
	s.byKey[k] = preMade
	s.order = append(s.order, k)
	return preMade
}

// ReplaceResultValue substitutes the registered entry for newValue's
// identity — used when a behavior escalates the variant (e.g. from
// NormalizedValue to SynthesizedValue) after the fact.
func (s *ResultSet) ReplaceResultValue(newValue value.PointValue) {
	k := resultKey(newValue)
	if _, existed := s.byKey[k]; !existed {
		s.order = append(s.order, k)
	}
	s.byKey[k] = newValue
}

// Get returns the registered ResultValue for (point, stamp).
func (s *ResultSet) Get(v value.PointValue) (value.PointValue, bool) {
	r, ok := s.byKey[resultKey(v)]
	return r, ok
}

// All returns every registered ResultValue in registration order.
func (s *ResultSet) All() []value.PointValue {
	out := make([]value.PointValue, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}
