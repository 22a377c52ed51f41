package value

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointRef_KeyByUUIDOrName(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id.String(), RefByUUID(id).Key())
	assert.Equal(t, "my-point", RefByName("my-point").Key())
}

func TestPointRef_RestoreBindsResolvedHandle(t *testing.T) {
	id := uuid.New()
	ref := RefByUUID(id)

	resolved, err := ref.Restore(func(PointRef) (PointHandle, bool) {
		return fakeHandle{id: id}, true
	})
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved())
	h, ok := resolved.Handle()
	require.True(t, ok)
	assert.Equal(t, id, h.PointUUID())
}

func TestPointRef_RestoreFailsWhenNotFound(t *testing.T) {
	ref := RefByName("missing")
	_, err := ref.Restore(func(PointRef) (PointHandle, bool) { return nil, false })
	assert.Error(t, err)
}

func TestPointRef_RestoreIsNoOpWhenAlreadyResolved(t *testing.T) {
	h := fakeHandle{id: uuid.New()}
	ref := RefResolved(h)

	resolved, err := ref.Restore(func(PointRef) (PointHandle, bool) {
		t.Fatal("resolver must not be called for an already-resolved ref")
		return nil, false
	})
	require.NoError(t, err)
	assert.Equal(t, ref, resolved)
}
