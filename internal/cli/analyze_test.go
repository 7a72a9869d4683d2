package cli

import (
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syndata/syndata/internal/store"
)

func TestAnalyzeJob(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	out, err := runCommand(t,
		"generate", "testdata/flat_valid.json",
		"--db", dbPath,
		"--count", "5",
		"--seed", "11",
	)
	require.NoError(t, err)

	jobID := extractJobID(t, out)

	out, err = runCommand(t, "analyze", jobID, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "records: 5")
	assert.Contains(t, out, "email: string")
}

func TestAnalyzeUnknownJob(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, err := runCommand(t, "analyze", "missing", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func extractJobID(t *testing.T, generateOutput string) string {
	t.Helper()
	m := regexp.MustCompile(`job: (\S+)`).FindStringSubmatch(generateOutput)
	require.Len(t, m, 2, "generate output names the job")
	return m[1]
}

func TestBuildAnalysisFlattensDynamicRecords(t *testing.T) {
	records := []store.Record{
		{Data: map[string]any{"user": map[string]any{"age": 30.0, "name": "Ada"}}},
		{Data: map[string]any{"user": map[string]any{"age": 40.0, "name": "Grace"}}},
	}

	report := buildAnalysis("j-1", records)

	require.Len(t, report.Fields, 2)
	assert.Equal(t, "user.age", report.Fields[0].Field)
	require.NotNil(t, report.Fields[0].Numeric)
	assert.Equal(t, 35.0, report.Fields[0].Numeric.Mean)

	assert.Equal(t, "user.name", report.Fields[1].Field)
	require.NotNil(t, report.Fields[1].Strings)
	assert.Equal(t, 3, report.Fields[1].Strings.MinLength)

	// Both fields always co-occur.
	require.NotEmpty(t, report.Relationships)
	for _, rel := range report.Relationships {
		assert.True(t, strings.HasPrefix(rel.From, "user."))
		assert.Equal(t, 100.0, rel.Correlation)
	}
}
