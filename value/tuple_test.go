package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTuple_AppendAndAt(t *testing.T) {
	tup := NewTuple(1, "two")
	tup.Append(3.0)

	assert.Equal(t, 3, tup.Len())
	assert.Equal(t, 1, tup.At(0))
	assert.Equal(t, "two", tup.At(1))
	assert.Equal(t, 3.0, tup.At(2))
}

func TestTuple_FreezePanicsOnMutation(t *testing.T) {
	tup := NewTuple(1)
	tup.Freeze()
	assert.True(t, tup.IsFrozen())
	assert.Panics(t, func() { tup.Append(2) })
}

func TestTuple_FreezeIsDeep(t *testing.T) {
	inner := NewTuple("x")
	outer := NewTuple(inner)
	outer.Freeze()

	assert.True(t, inner.IsFrozen())
	assert.Panics(t, func() { inner.Append("y") })
}

func TestTuple_CopyIsUnfrozenAndIndependent(t *testing.T) {
	tup := NewTuple(1, 2)
	tup.Freeze()

	cp := tup.Copy()
	assert.False(t, cp.IsFrozen())
	cp.Append(3)
	assert.Equal(t, 2, tup.Len())
	assert.Equal(t, 3, cp.Len())
}

func TestTuple_Equal(t *testing.T) {
	a := NewTuple(1, "two", NewStateCode(3))
	b := NewTuple(1, "two", NewStateCode(3))
	c := NewTuple(1, "two", NewStateCode(4))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestTuple_EqualNested(t *testing.T) {
	a := NewTuple(NewTuple(1, 2))
	b := NewTuple(NewTuple(1, 2))
	c := NewTuple(NewTuple(1, 3))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
