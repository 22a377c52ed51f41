package value

// Dict is an insertion-ordered map from string to serializable value,
// freezable like Tuple. Insertion order is preserved via a parallel
// key slice so iteration and externalization are deterministic.
type Dict struct {
	frozenFlag
	keys   []string
	values map[string]any
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{values: make(map[string]any)}
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order. Callers must not mutate it.
func (d *Dict) Keys() []string { return d.keys }

// Get returns the value for key and whether it was present.
func (d *Dict) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Set inserts or overwrites key. Panics if frozen. A new key is appended to
// the end of the order; an existing key keeps its original position.
func (d *Dict) Set(key string, value any) {
	d.checkMutable("Dict")
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Freeze marks the Dict immutable and freezes any contained Containers.
func (d *Dict) Freeze() {
	d.freeze()
	for _, k := range d.keys {
		if c, ok := d.values[k].(Container); ok {
			c.Freeze()
		}
	}
}

// FreezeDeep is identical to Freeze: every value is already walked.
func (d *Dict) FreezeDeep() { d.Freeze() }

// Copy returns a shallow, unfrozen clone preserving key order.
func (d *Dict) Copy() *Dict {
	c := &Dict{
		keys:   append([]string(nil), d.keys...),
		values: make(map[string]any, len(d.values)),
	}
	for k, v := range d.values {
		c.values[k] = v
	}
	return c
}

// Equal compares entries irrespective of insertion order (Dict equality is
// a map equality, order only affects externalization/iteration).
func (d *Dict) Equal(o *Dict) bool {
	if o == nil || len(d.values) != len(o.values) {
		return false
	}
	for k, v := range d.values {
		ov, ok := o.values[k]
		if !ok || !equalAny(v, ov) {
			return false
		}
	}
	return true
}
