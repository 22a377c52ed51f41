package value

// Tuple is an ordered, freezable sequence of serializable items.
type Tuple struct {
	frozenFlag
	items []any
}

// NewTuple builds a Tuple from the given items, copying the slice so callers
// retain ownership of what they passed in.
func NewTuple(items ...any) *Tuple {
	t := &Tuple{items: append([]any(nil), items...)}
	return t
}

// Len returns the number of items.
func (t *Tuple) Len() int { return len(t.items) }

// At returns the item at index i.
func (t *Tuple) At(i int) any { return t.items[i] }

// Items returns the underlying slice. Callers must not mutate it; once frozen
// the Tuple cannot detect a caller mutating the returned slice directly, so
// treat it as read-only regardless of frozen state.
func (t *Tuple) Items() []any { return t.items }

// Append adds an item. Panics if frozen.
func (t *Tuple) Append(item any) {
	t.checkMutable("Tuple")
	t.items = append(t.items, item)
}

// Freeze marks the Tuple immutable. Contained Containers are also frozen per
// the freeze-deep rule PointValue relies on.
func (t *Tuple) Freeze() {
	t.freeze()
	for _, item := range t.items {
		if c, ok := item.(Container); ok {
			c.Freeze()
		}
	}
}

// FreezeDeep is identical to Freeze for Tuple: every item is already walked.
func (t *Tuple) FreezeDeep() { t.Freeze() }

// Copy returns a shallow, unfrozen clone.
func (t *Tuple) Copy() *Tuple {
	return &Tuple{items: append([]any(nil), t.items...)}
}

// Equal compares items with Go equality; nested Containers compare by value
// via their own Equal methods when available.
func (t *Tuple) Equal(o *Tuple) bool {
	if o == nil || len(t.items) != len(o.items) {
		return false
	}
	for i := range t.items {
		if !equalAny(t.items[i], o.items[i]) {
			return false
		}
	}
	return true
}

func equalAny(a, b any) bool {
	switch av := a.(type) {
	case *Tuple:
		bv, ok := b.(*Tuple)
		return ok && av.Equal(bv)
	case *Dict:
		bv, ok := b.(*Dict)
		return ok && av.Equal(bv)
	case State:
		bv, ok := b.(State)
		return ok && av.Equal(bv)
	default:
		return a == b
	}
}
