package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEndToEnd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	out, err := runCommand(t,
		"generate", "testdata/flat_valid.json",
		"--db", dbPath,
		"--count", "3",
		"--seed", "42",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Generated 3 record(s)")

	// The job is visible afterwards and reports completion.
	out, err = runCommand(t, "jobs", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "count=3")
}

func TestGenerateRejectsInvalidSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	out, err := runCommand(t,
		"generate", "testdata/dynamic_cycle.json",
		"--db", dbPath,
		"--count", "1",
	)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "circular dependency")
}

func TestGenerateRulesOnFlatSchemaOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, err := runCommand(t,
		"generate", "testdata/flat_valid.json",
		"--db", dbPath,
		"--rules", "testdata/nope.json",
	)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRecordsListing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, err := runCommand(t,
		"generate", "testdata/flat_valid.json",
		"--db", dbPath,
		"--count", "2",
		"--seed", "7",
	)
	require.NoError(t, err)

	out, err := runCommand(t, "jobs", "--db", dbPath, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
}

func TestJobNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	out, err := runCommand(t, "job", "missing-id", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "not found")
}
