package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDict_SetAndGetPreservesInsertionOrder(t *testing.T) {
	d := NewDict()
	d.Set("b", 1)
	d.Set("a", 2)
	d.Set("b", 3) // overwrite keeps original position

	assert.Equal(t, []string{"b", "a"}, d.Keys())
	v, ok := d.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestDict_GetMissingKey(t *testing.T) {
	d := NewDict()
	_, ok := d.Get("missing")
	assert.False(t, ok)
}

func TestDict_FreezePanicsOnMutation(t *testing.T) {
	d := NewDict()
	d.Set("a", 1)
	d.Freeze()
	assert.True(t, d.IsFrozen())
	assert.Panics(t, func() { d.Set("b", 2) })
}

func TestDict_FreezeIsDeep(t *testing.T) {
	inner := NewDict()
	inner.Set("x", 1)
	outer := NewDict()
	outer.Set("inner", inner)
	outer.Freeze()

	assert.True(t, inner.IsFrozen())
	assert.Panics(t, func() { inner.Set("y", 2) })
}

func TestDict_CopyIsUnfrozenAndIndependent(t *testing.T) {
	d := NewDict()
	d.Set("a", 1)
	d.Freeze()

	cp := d.Copy()
	assert.False(t, cp.IsFrozen())
	cp.Set("b", 2)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, 2, cp.Len())
}

func TestDict_EqualIgnoresOrder(t *testing.T) {
	a := NewDict()
	a.Set("x", 1)
	a.Set("y", 2)

	b := NewDict()
	b.Set("y", 2)
	b.Set("x", 1)

	assert.True(t, a.Equal(b))

	b.Set("z", 3)
	assert.False(t, a.Equal(b))
}
