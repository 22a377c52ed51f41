package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePointsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestValidateMetadataCmd_AcceptsWellFormedFile(t *testing.T) {
	path := writePointsFile(t, `
points:
  - name: flow.source
    volatile: true
  - name: flow.derived
    transform: passthrough
    inputs:
      - source_name: flow.source
        arg: input
        behaviors: [required]
`)

	err := validateMetadataCmd.RunE(validateMetadataCmd, []string{path})
	assert.NoError(t, err)
}

func TestValidateMetadataCmd_RejectsUnknownTransform(t *testing.T) {
	path := writePointsFile(t, `
points:
  - name: flow.source
    volatile: true
  - name: flow.derived
    transform: not-a-real-transform
    inputs:
      - source_name: flow.source
        arg: input
`)

	err := validateMetadataCmd.RunE(validateMetadataCmd, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validatemetadata")
}

func TestValidateMetadataCmd_RejectsMissingFile(t *testing.T) {
	err := validateMetadataCmd.RunE(validateMetadataCmd, []string{filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validatemetadata")
}
