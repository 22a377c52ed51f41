// Package processor implements the entry point that drives notices through
// the trigger/select/compute/replicate/flush phases, grounded on the
// teacher's worker-pool dequeue-process-retry shape (worker/pool.go)
// generalized from a single job to a memory-bounded point-value batch.
package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/evalgo/rvpf/batch"
	"github.com/evalgo/rvpf/behavior"
	"github.com/evalgo/rvpf/metadata"
	"github.com/evalgo/rvpf/value"
)

// Driver is the processor entry point: Process(ctx, notices) drives one
// batch through all phases and returns the resulting updates.
type Driver struct {
	arena         *metadata.Arena
	behaviors     map[string]behavior.Behavior // keyed by relationKey(resultUUID, sourceUUID)
	resultBehaviors map[string][]behavior.Behavior // keyed by result point UUID, every relation's chain
	fetcher       batch.ValueFetcher
	maxMemory     int
	maxSplitDepth int
	log           *logrus.Entry
}

// relationKey identifies one specific input relation's behavior chain —
// the spec activates a chain per PointInput, not one per point, since a
// result point may have several differently-behaved inputs.
func relationKey(resultUUID, sourceUUID string) string {
	return resultUUID + "|" + sourceUUID
}

// Config bundles Driver construction parameters.
type Config struct {
	Arena         *metadata.Arena
	Fetcher       batch.ValueFetcher
	MaxMemory     int
	MaxSplitDepth int
	Log           *logrus.Entry
}

// New builds a Driver, activating a primary behavior chain for every
// point's every input relation via behavior.Activate.
func New(cfg Config, behaviorReg *behavior.Registry) (*Driver, error) {
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	d := &Driver{
		arena:           cfg.Arena,
		behaviors:       map[string]behavior.Behavior{},
		resultBehaviors: map[string][]behavior.Behavior{},
		fetcher:         cfg.Fetcher,
		maxMemory:       cfg.MaxMemory,
		maxSplitDepth:   cfg.MaxSplitDepth,
		log:             log,
	}
	for _, p := range cfg.Arena.All() {
		if p.Dropped || len(p.Inputs) == 0 {
			continue
		}
		for i := range p.Inputs {
			rel := &p.Inputs[i]
			if rel.Source == nil {
				continue
			}
			var inherited []string
			if p.Transform != nil {
				for _, arg := range p.Transform.Args() {
					if arg.Name == rel.ArgName {
						inherited = arg.DefaultBehaviors
					}
				}
			}
			chain, err := behavior.Activate(rel.BehaviorNames, inherited, rel.Params, cfg.Arena, behaviorReg, rel)
			if err != nil {
				return nil, fmt.Errorf("processor: activate behaviors for point %s: %w", p.String(), err)
			}
			if chain == nil {
				continue
			}
			k := relationKey(p.PointUUID().String(), rel.Source.PointUUID().String())
			d.behaviors[k] = chain
			resultKey := p.PointUUID().String()
			d.resultBehaviors[resultKey] = append(d.resultBehaviors[resultKey], chain)
		}
	}
	return d, nil
}

// ErrMemoryLimit is returned (wrapped) when the driver exhausts its split
// budget while still hitting MemoryLimitError.
var ErrMemoryLimit = errors.New("processor: memory limit exceeded at maximum split depth")

// Process drives notices through trigger/select/compute/replicate/flush.
// ok == false means "memory pressure, retry smaller" bubbled up after the
// driver's own internal split-and-retry budget was exhausted. Context
// cancellation returns immediately via ctx.Err().
func (d *Driver) Process(ctx context.Context, notices []value.PointValue) ([]value.PointValue, bool, error) {
	return d.process(ctx, notices, 0)
}

func (d *Driver) process(ctx context.Context, notices []value.PointValue, depth int) ([]value.PointValue, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if len(notices) == 0 {
		return nil, true, nil
	}

	b := batch.New(d.fetcher, d.maxMemory)
	if err := b.AcceptNotices(notices); err != nil {
		var memErr *batch.MemoryLimitError
		if errors.As(err, &memErr) {
			if depth >= d.maxSplitDepth {
				d.log.WithFields(logrus.Fields{"depth": depth, "notices": len(notices)}).
					Warn("processor: memory limit exceeded at maximum split depth")
				return nil, false, nil
			}
			mid := len(notices) / 2
			d.log.WithFields(logrus.Fields{"depth": depth, "notices": len(notices)}).
				Info("processor: splitting batch after memory limit")
			left, okLeft, errLeft := d.process(ctx, notices[:mid], depth+1)
			if errLeft != nil {
				return nil, false, errLeft
			}
			right, okRight, errRight := d.process(ctx, notices[mid:], depth+1)
			if errRight != nil {
				return nil, false, errRight
			}
			return append(left, right...), okLeft && okRight, nil
		}
		return nil, false, err
	}

	if err := d.triggerPhase(notices, b); err != nil {
		return nil, false, err
	}
	failedSelect, err := d.selectPhase(b)
	if err != nil {
		return nil, false, err
	}
	updates, err := d.computePhase(b, failedSelect)
	if err != nil {
		return nil, false, err
	}
	updates = d.replicatePhase(updates)
	for _, u := range updates {
		b.ScheduleUpdate(u)
	}
	return b.Flush(), true, nil
}

// triggerPhase finds, for each notice, every result point reachable via an
// input relation and loops PrepareTrigger until stable, then Trigger.
func (d *Driver) triggerPhase(notices []value.PointValue, b *batch.Batch) error {
	for _, n := range notices {
		h, ok := n.Point().Handle()
		if !ok {
			continue
		}
		src, ok := h.(*metadata.Point)
		if !ok {
			continue
		}
		for _, result := range src.Results {
			chain, ok := d.behaviors[relationKey(result.PointUUID().String(), src.PointUUID().String())]
			if !ok {
				continue
			}
			for pass := 0; pass < maxConvergencePasses && !chain.PrepareTrigger(n, b); pass++ {
				b.AdvancePass()
			}
			chain.Trigger(n, b)
		}
	}
	return nil
}

const maxConvergencePasses = 8

// maxLookupPasses bounds the select→flush→re-select loop: a select that
// misses the cache queues a store fetch, and the fetched value is only
// visible to Select on a subsequent pass, so a multi-hop dependency chain
// needs more than one round to fully resolve (spec §4.5/§4.6 step 3).
const maxLookupPasses = 8

// selectPhase walks registered ResultValues in (level, UUID) order,
// looping PrepareSelect until stable then calling Select, and repeats the
// whole select→flush cycle until a pass queues no new store fetches or the
// look-up pass budget is exhausted. Returns the identities of results
// whose required input never selected successfully — computePhase uses
// this to skip (or null) them instead of computing on missing input.
func (d *Driver) selectPhase(b *batch.Batch) (map[string]bool, error) {
	failed := map[string]bool{}
	for pass := 0; pass < maxLookupPasses; pass++ {
		failed = map[string]bool{}
		d.runSelectPass(b, failed)
		queued := b.PendingQueryCount()
		if err := b.FlushQueries(); err != nil {
			return nil, err
		}
		if queued == 0 {
			break
		}
		b.AdvancePass()
	}
	return failed, nil
}

// runSelectPass invokes every result's behavior chains once, recording in
// failed the identity of any result whose required relation's Select call
// did not succeed this pass. A chain whose relation already contributed
// an input in an earlier pass treats re-selection as a no-op success (see
// behavior.Required/Optional.Select), so re-running every chain on every
// pass is safe and never duplicates an already-appended input.
func (d *Driver) runSelectPass(b *batch.Batch, failed map[string]bool) {
	results := b.Results()
	orderResultsByLevel(results)
	for _, r := range results {
		h, ok := r.Point().Handle()
		if !ok {
			continue
		}
		p, ok := h.(*metadata.Point)
		if !ok || len(p.Inputs) == 0 {
			continue
		}
		chains, ok := d.resultBehaviors[p.PointUUID().String()]
		if !ok {
			continue
		}
		cur := r
		key := resultIdentity(cur)
		for _, chain := range chains {
			for pass := 0; pass < maxConvergencePasses && !chain.PrepareSelect(cur, b); pass++ {
				b.AdvancePass()
			}
			selected := chain.Select(cur, b)
			if updated, found := b.Result(cur); found {
				cur = updated
			}
			if !selected && chain.IsInputRequired() {
				failed[key] = true
			}
		}
	}
}

// resultIdentity is the (point, stamp) key used to track per-result select
// outcomes across look-up passes.
func resultIdentity(v value.PointValue) string {
	return v.Point().Key() + "@" + v.Stamp().String()
}

func orderResultsByLevel(results []value.PointValue) {
	level := func(v value.PointValue) int {
		h, ok := v.Point().Handle()
		if !ok {
			return 0
		}
		p, ok := h.(*metadata.Point)
		if !ok {
			return 0
		}
		return p.Level()
	}
	for i := 1; i < len(results); i++ {
		for j := i; j > 0; j-- {
			a, bb := results[j-1], results[j]
			if level(a) < level(bb) || (level(a) == level(bb) && a.Point().Key() <= bb.Point().Key()) {
				break
			}
			results[j-1], results[j] = results[j], results[j-1]
		}
	}
}

// computePhase invokes each result point's Transform for every
// fully-selected ResultValue. A result whose required input failed to
// select is skipped (or, if the point has NullRemoves set, emitted as a
// Deleted update) rather than computed against missing input.
func (d *Driver) computePhase(b *batch.Batch, failedSelect map[string]bool) ([]value.PointValue, error) {
	var updates []value.PointValue
	for _, r := range b.Results() {
		h, ok := r.Point().Handle()
		if !ok {
			continue
		}
		p, ok := h.(*metadata.Point)
		if !ok || p.Transform == nil {
			continue
		}
		if failedSelect[resultIdentity(r)] {
			if p.NullRemoves {
				updates = append(updates, value.NewDeleted(r.Point(), r.Stamp(), nextVersion()))
			}
			continue
		}
		out, err := p.Transform.Compute(r)
		if err != nil {
			d.log.WithFields(logrus.Fields{"point": p.String(), "stamp": r.Stamp()}).
				WithError(err).Warn("processor: transform failed for result")
			if p.NullRemoves {
				updates = append(updates, value.NewDeleted(r.Point(), r.Stamp(), nextVersion()))
			}
			continue
		}
		updates = append(updates, out)
	}
	return updates, nil
}

// replicatePhase emits one additional update per configured Replicate for
// every computed update.
func (d *Driver) replicatePhase(updates []value.PointValue) []value.PointValue {
	out := make([]value.PointValue, 0, len(updates))
	for _, u := range updates {
		out = append(out, u)
		h, ok := u.Point().Handle()
		if !ok {
			continue
		}
		p, ok := h.(*metadata.Point)
		if !ok {
			continue
		}
		for _, rep := range p.Replicates {
			if rep.Target == nil {
				continue
			}
			repVal := u.Morph(ptrTo(value.RefResolved(rep.Target)), nil)
			if rep.Convert != nil {
				converted, err := rep.Convert.Compute(repVal)
				if err != nil {
					d.log.WithFields(logrus.Fields{"point": rep.Target.String()}).
						WithError(err).Warn("processor: replicate convert failed")
					continue
				}
				repVal = converted
			}
			out = append(out, repVal)
		}
	}
	return out
}

func ptrTo[T any](v T) *T { return &v }
