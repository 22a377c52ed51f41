package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/rvpf/value"
)

func TestUpdateQueue_FlushesInPointThenStampOrder(t *testing.T) {
	q := NewUpdateQueue()
	now := time.Now()

	q.Schedule(value.New(value.RefByName("b"), now, 1))
	q.Schedule(value.New(value.RefByName("a"), now.Add(time.Second), 2))
	q.Schedule(value.New(value.RefByName("a"), now, 3))

	out := q.Flush()
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].Point().Key())
	assert.Equal(t, 3, out[0].Value())
	assert.Equal(t, "a", out[1].Point().Key())
	assert.Equal(t, 2, out[1].Value())
	assert.Equal(t, "b", out[2].Point().Key())
}

func TestUpdateQueue_FlushDropsDisabledSentinel(t *testing.T) {
	q := NewUpdateQueue()
	q.Schedule(value.New(value.RefByName("a"), time.Now(), 1))
	q.Schedule(Disabled())

	out := q.Flush()
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].Value())
}

func TestUpdateQueue_LenAndFlushEmptiesQueue(t *testing.T) {
	q := NewUpdateQueue()
	q.Schedule(value.New(value.RefByName("a"), time.Now(), 1))
	assert.Equal(t, 1, q.Len())
	q.Flush()
	assert.Equal(t, 0, q.Len())
}
