package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pointsFixture = `
points:
  - name: flow.source
    volatile: true
  - name: flow.derived
    transform: passthrough
    inputs:
      - source_name: flow.source
        arg: input
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "points.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_BuildsArenaWithRelations(t *testing.T) {
	path := writeFixture(t, pointsFixture)
	reg := NewTransformRegistry()
	RegisterBuiltins(reg)

	arena, err := LoadFile(path, reg)
	require.NoError(t, err)
	assert.Equal(t, 2, arena.Len())

	derived, ok := arena.ByName("flow.derived")
	require.True(t, ok)
	require.NotNil(t, derived.Transform)
	assert.Equal(t, "passthrough", derived.Transform.Name())

	source, ok := arena.ByName("flow.source")
	require.True(t, ok)
	assert.True(t, source.Volatile)
	assert.Less(t, source.Level(), derived.Level(), "a point's level must be below points that depend on it")
}

func TestLoadFile_UnknownTransformErrors(t *testing.T) {
	path := writeFixture(t, `
points:
  - name: flow.bad
    transform: does-not-exist
`)
	reg := NewTransformRegistry()
	RegisterBuiltins(reg)

	_, err := LoadFile(path, reg)
	assert.Error(t, err)
}

func TestLoadFile_DanglingInputErrors(t *testing.T) {
	path := writeFixture(t, `
points:
  - name: flow.derived
    transform: passthrough
    inputs:
      - source_name: flow.missing
        arg: input
`)
	reg := NewTransformRegistry()
	RegisterBuiltins(reg)

	_, err := LoadFile(path, reg)
	assert.Error(t, err)
}

func TestLoadFile_InvalidUUIDErrors(t *testing.T) {
	path := writeFixture(t, `
points:
  - name: flow.bad
    uuid: not-a-uuid
`)
	reg := NewTransformRegistry()
	_, err := LoadFile(path, reg)
	assert.Error(t, err)
}
