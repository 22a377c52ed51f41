package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/rvpf/behavior"
	"github.com/evalgo/rvpf/metadata"
	"github.com/evalgo/rvpf/value"
)

const fixture = `
points:
  - name: flow.source
    volatile: true
  - name: flow.derived
    transform: passthrough
    inputs:
      - source_name: flow.source
        arg: input
        behaviors: [required]
`

func buildArena(t *testing.T) *metadata.Arena {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	reg := metadata.NewTransformRegistry()
	metadata.RegisterBuiltins(reg)
	arena, err := metadata.LoadFile(path, reg)
	require.NoError(t, err)
	return arena
}

func TestDriver_ProcessComputesPassthroughUpdate(t *testing.T) {
	arena := buildArena(t)

	behaviorReg := behavior.NewRegistry()
	behavior.RegisterBuiltins(behaviorReg)

	d, err := New(Config{Arena: arena, MaxSplitDepth: 4}, behaviorReg)
	require.NoError(t, err)

	source, ok := arena.ByName("flow.source")
	require.True(t, ok)
	derived, ok := arena.ByName("flow.derived")
	require.True(t, ok)

	notice := value.NewSynthesized(value.RefResolved(source), time.Now(), 42.0)

	updates, ok, err := d.Process(context.Background(), []value.PointValue{notice})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, updates, 1)

	handle, ok := updates[0].Point().Handle()
	require.True(t, ok)
	assert.Equal(t, derived.PointName(), handle.PointName())
	assert.Equal(t, 42.0, updates[0].Value())
}

func TestDriver_ProcessIgnoresUnrelatedNotice(t *testing.T) {
	arena := buildArena(t)

	behaviorReg := behavior.NewRegistry()
	behavior.RegisterBuiltins(behaviorReg)

	d, err := New(Config{Arena: arena, MaxSplitDepth: 4}, behaviorReg)
	require.NoError(t, err)

	unrelated := value.NewSynthesized(value.RefByName("flow.nothing"), time.Now(), 1.0)

	updates, ok, err := d.Process(context.Background(), []value.PointValue{unrelated})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, updates)
}

// sumTransform adds every selected input's float64 value — used to
// exercise a result with more than one required input, where only one
// relation's value arrives as a triggering notice and the other must be
// fetched from the store during the select phase.
type sumTransform struct{}

func (sumTransform) Name() string         { return "sum" }
func (sumTransform) Args() []metadata.Arg { return nil }
func (sumTransform) Compute(result value.PointValue) (value.PointValue, error) {
	var total float64
	for _, in := range result.Inputs() {
		total += in.Value().(float64)
	}
	return value.NewSynthesized(result.Point(), result.Stamp(), total), nil
}

const multiInputFixture = `
points:
  - name: flow.a
    volatile: true
  - name: flow.b
    volatile: true
  - name: flow.sum
    transform: sum
    inputs:
      - source_name: flow.a
        arg: a
        behaviors: [required]
      - source_name: flow.b
        arg: b
        behaviors: [required]
`

// storeFetcher answers FetchPointValue from a fixed map, modeling the
// store that backs a required input not present among the batch's
// notices.
type storeFetcher struct {
	values map[string]value.PointValue
}

func (f storeFetcher) FetchPointValue(point value.PointHandle, stamp time.Time) (value.PointValue, bool, error) {
	v, ok := f.values[point.PointName()]
	return v, ok, nil
}

func buildMultiInputArena(t *testing.T) *metadata.Arena {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.yaml")
	require.NoError(t, os.WriteFile(path, []byte(multiInputFixture), 0o644))

	reg := metadata.NewTransformRegistry()
	metadata.RegisterBuiltins(reg)
	reg.MustRegister("sum", func(map[string]any) (metadata.Transform, error) {
		return sumTransform{}, nil
	})
	arena, err := metadata.LoadFile(path, reg)
	require.NoError(t, err)
	return arena
}

func TestDriver_ProcessFillsRequiredInputFetchedFromStore(t *testing.T) {
	arena := buildMultiInputArena(t)

	behaviorReg := behavior.NewRegistry()
	behavior.RegisterBuiltins(behaviorReg)

	a, ok := arena.ByName("flow.a")
	require.True(t, ok)
	b, ok := arena.ByName("flow.b")
	require.True(t, ok)
	sum, ok := arena.ByName("flow.sum")
	require.True(t, ok)

	stamp := time.Now()
	fetcher := storeFetcher{values: map[string]value.PointValue{
		"flow.b": value.NewSynthesized(value.RefResolved(b), stamp, 30.0),
	}}

	d, err := New(Config{Arena: arena, Fetcher: fetcher, MaxSplitDepth: 4}, behaviorReg)
	require.NoError(t, err)

	notice := value.NewSynthesized(value.RefResolved(a), stamp, 12.0)
	updates, ok, err := d.Process(context.Background(), []value.PointValue{notice})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, updates, 1)

	handle, ok := updates[0].Point().Handle()
	require.True(t, ok)
	assert.Equal(t, sum.PointName(), handle.PointName())
	assert.Equal(t, 42.0, updates[0].Value(), "must sum both the triggering notice and the store-fetched input")
}

func TestDriver_ProcessSkipsResultWhenRequiredInputMissing(t *testing.T) {
	arena := buildMultiInputArena(t)

	behaviorReg := behavior.NewRegistry()
	behavior.RegisterBuiltins(behaviorReg)

	a, ok := arena.ByName("flow.a")
	require.True(t, ok)

	d, err := New(Config{Arena: arena, MaxSplitDepth: 4}, behaviorReg)
	require.NoError(t, err)

	notice := value.NewSynthesized(value.RefResolved(a), time.Now(), 12.0)
	updates, ok, err := d.Process(context.Background(), []value.PointValue{notice})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, updates, "flow.b is required and unavailable: no update should be computed")
}

func TestDriver_ProcessEmptyNoticesIsNoop(t *testing.T) {
	arena := buildArena(t)
	behaviorReg := behavior.NewRegistry()
	behavior.RegisterBuiltins(behaviorReg)

	d, err := New(Config{Arena: arena, MaxSplitDepth: 4}, behaviorReg)
	require.NoError(t, err)

	updates, ok, err := d.Process(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, updates)
}
