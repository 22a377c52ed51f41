package metadata

import "fmt"

// CycleError reports a topological cycle detected during level assignment,
// naming the point at which re-entry into a busy node was detected —
// mirroring the teacher's checkCycleRecursive message shape.
type CycleError struct {
	Point string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("metadata: circular dependency detected at point %s", e.Point)
}

const (
	levelUnvisited = -1
	levelBusy      = -2
)

// AdjustLevel assigns every point's level such that for each direct or
// transitive result, result.level >= source.level + 1. It runs a DFS with
// a busy mark per point; re-entry on a busy node signals a cycle — the
// same DFS-plus-busy-mark shape as the teacher's checkCycleRecursive,
// generalized from action dependencies to point dependencies. Replicates
// are also walked: a point replicating (directly or transitively) to
// itself is rejected the same way a dependency cycle is.
func AdjustLevel(arena *Arena) error {
	for _, p := range arena.All() {
		p.level = levelUnvisited
	}
	for _, p := range arena.All() {
		if p.level == levelUnvisited {
			if err := adjustLevelOf(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func adjustLevelOf(p *Point) error {
	p.level = levelBusy
	best := 0
	for _, in := range p.Inputs {
		src := in.Source
		if src == nil {
			continue
		}
		if src.level == levelBusy {
			return &CycleError{Point: p.String()}
		}
		if src.level == levelUnvisited {
			if err := adjustLevelOf(src); err != nil {
				return err
			}
		}
		if src.level+1 > best {
			best = src.level + 1
		}
	}
	for _, r := range p.Replicates {
		if r.Target == p {
			return &CycleError{Point: p.String()}
		}
		if r.Target == nil {
			continue
		}
		if r.Target.level == levelBusy {
			return &CycleError{Point: p.String()}
		}
		if r.Target.level == levelUnvisited {
			if err := adjustLevelOf(r.Target); err != nil {
				return err
			}
		}
	}
	p.level = best
	return nil
}

// ExecutionOrder returns points grouped by level (ascending), the order
// the processor driver's select phase walks. It is derived with the same
// in-degree (Kahn's algorithm) approach as the teacher's GetExecutionOrder,
// counting input-relation edges instead of workflow Requires edges.
func ExecutionOrder(arena *Arena) ([][]*Point, error) {
	points := arena.All()
	inDegree := make(map[*Point]int, len(points))
	dependents := make(map[*Point][]*Point, len(points))

	for _, p := range points {
		inDegree[p] = 0
	}
	for _, p := range points {
		for _, in := range p.Inputs {
			if in.Source == nil {
				continue
			}
			dependents[in.Source] = append(dependents[in.Source], p)
			inDegree[p]++
		}
	}

	var queue []*Point
	for _, p := range points {
		if inDegree[p] == 0 {
			queue = append(queue, p)
		}
	}

	var levels [][]*Point
	processed := 0
	for len(queue) > 0 {
		levels = append(levels, queue)
		var next []*Point
		for _, p := range queue {
			processed++
			for _, dep := range dependents[p] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		queue = next
	}

	if processed != len(points) {
		return nil, fmt.Errorf("metadata: circular dependency detected in point graph")
	}
	return levels, nil
}
