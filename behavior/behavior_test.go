package behavior

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/rvpf/metadata"
	"github.com/evalgo/rvpf/value"
)

func resultKey(v value.PointValue) string {
	return v.Point().Key() + "@" + v.Stamp().String()
}

type fakeContext struct {
	values    map[string]value.PointValue
	scheduled []value.PointValue
	results   map[string]value.PointValue
	signals   map[string]any
}

func newFakeContext() *fakeContext {
	return &fakeContext{values: map[string]value.PointValue{}, results: map[string]value.PointValue{}, signals: map[string]any{}}
}

func (f *fakeContext) GetPointValue(point value.PointHandle, stamp time.Time, interval time.Duration, notNull, interpolated, extrapolated bool) (value.PointValue, bool) {
	v, ok := f.values[point.PointName()]
	return v, ok
}

func (f *fakeContext) ScheduleUpdate(v value.PointValue) { f.scheduled = append(f.scheduled, v) }
func (f *fakeContext) SetUpResultValue(preMade value.PointValue) value.PointValue {
	k := resultKey(preMade)
	if existing, ok := f.results[k]; ok {
		return existing
	}
	f.results[k] = preMade
	return preMade
}
func (f *fakeContext) ReplaceResultValue(newValue value.PointValue) { f.results[resultKey(newValue)] = newValue }
func (f *fakeContext) LookupPass() int                              { return 0 }
func (f *fakeContext) CutoffTime() (time.Time, bool)                { return time.Time{}, false }
func (f *fakeContext) Signal(name string, info any)                 { f.signals[name] = info }

func newSourcePoint(name string) *metadata.Point {
	return metadata.NewPoint(uuid.New(), name)
}

func TestRequired_TriggerOnlyRegistersResult(t *testing.T) {
	r := NewRequired()
	ctx := newFakeContext()
	notice := value.New(value.RefByName("source"), time.Now(), 42)

	r.Trigger(notice, ctx)

	require.Len(t, ctx.results, 1)
	for _, result := range ctx.results {
		assert.Empty(t, result.Inputs(), "Trigger only registers the result; Select is what appends inputs")
	}
}

func TestRequired_SelectRequiresNonNullInput(t *testing.T) {
	source := newSourcePoint("flow.source")
	r := NewRequired()
	r.SetRelation(&metadata.PointInput{Source: source})
	ctx := newFakeContext()

	result := value.NewResult(value.RefByName("flow.derived"), time.Now())

	ok := r.Select(result, ctx)
	assert.False(t, ok, "no value registered in context yet: select must fail")

	ctx.values["flow.source"] = value.New(value.RefByName("flow.source"), time.Now(), 10.0)
	assert.True(t, r.Select(result, ctx))

	ctx.values["flow.source"] = value.NewNull(value.RefByName("flow.source"), time.Now())
	assert.False(t, r.Select(result, ctx), "a null input must not satisfy a Required select")
}

func TestRequired_SelectAppendsFetchedInput(t *testing.T) {
	source := newSourcePoint("flow.source")
	r := NewRequired()
	r.SetRelation(&metadata.PointInput{Source: source})
	ctx := newFakeContext()

	result := value.NewResult(value.RefByName("flow.derived"), time.Now())
	ctx.values["flow.source"] = value.New(value.RefByName("flow.source"), time.Now(), 10.0)

	require.True(t, r.Select(result, ctx))

	updated, ok := ctx.results[resultKey(result)]
	require.True(t, ok)
	require.Len(t, updated.Inputs(), 1)
	assert.Equal(t, 10.0, updated.Inputs()[0].Value())
}

func TestRequired_SelectWithoutRelationFails(t *testing.T) {
	r := NewRequired()
	ctx := newFakeContext()
	result := value.NewResult(value.RefByName("flow.derived"), time.Now())
	assert.False(t, r.Select(result, ctx))
}

func TestRequired_IsInputRequired(t *testing.T) {
	assert.True(t, NewRequired().IsInputRequired())
}

func TestOptional_SelectAlwaysSucceeds(t *testing.T) {
	o := NewOptional()
	ctx := newFakeContext()
	result := value.NewResult(value.RefByName("flow.derived"), time.Now())
	assert.True(t, o.Select(result, ctx))
	assert.False(t, o.IsInputRequired())
}

func TestOptional_SelectAppendsInputWhenPresentButNeverFails(t *testing.T) {
	source := newSourcePoint("flow.source")
	o := NewOptional()
	o.SetRelation(&metadata.PointInput{Source: source})
	ctx := newFakeContext()

	result := value.NewResult(value.RefByName("flow.derived"), time.Now())

	assert.True(t, o.Select(result, ctx), "no value yet: optional select still succeeds")
	_, ok := ctx.results[resultKey(result)]
	assert.False(t, ok, "nothing appended when the source has no value")

	ctx.values["flow.source"] = value.New(value.RefByName("flow.source"), time.Now(), 7.0)
	assert.True(t, o.Select(result, ctx))
	updated, ok := ctx.results[resultKey(result)]
	require.True(t, ok)
	require.Len(t, updated.Inputs(), 1)
	assert.Equal(t, 7.0, updated.Inputs()[0].Value())
}

func TestOptional_TriggerRegistersResult(t *testing.T) {
	o := NewOptional()
	ctx := newFakeContext()
	notice := value.New(value.RefByName("source"), time.Now(), "x")
	o.Trigger(notice, ctx)
	require.Len(t, ctx.results, 1)
}

func TestBase_IsInputValidRejectsNull(t *testing.T) {
	r := NewRequired()
	null := value.NewNull(value.RefByName("p"), time.Now())
	nonNull := value.New(value.RefByName("p"), time.Now(), 1)
	assert.False(t, r.IsInputValid(null, value.PointValue{}))
	assert.True(t, r.IsInputValid(nonNull, value.PointValue{}))
}

func TestBase_NewResultValueUsesRelationOwner(t *testing.T) {
	source := newSourcePoint("flow.source")
	owner := newSourcePoint("flow.derived")
	r := NewRequired()
	r.SetRelation(&metadata.PointInput{Owner: owner, Source: source})

	stamp := time.Now()
	result := r.NewResultValue(stamp)
	assert.True(t, result.IsResult())
	handle, ok := result.Point().Handle()
	require.True(t, ok)
	assert.Equal(t, "flow.derived", handle.PointName(), "a ResultValue belongs to the point being computed, not its input source")
}

func TestChain_SetNextAndNextRoundTrip(t *testing.T) {
	a := NewRequired()
	b := NewOptional()
	a.SetNext(b)
	assert.Same(t, Behavior(b), a.Next())
}
