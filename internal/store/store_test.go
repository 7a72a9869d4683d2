package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syndata/syndata/internal/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSchema() *schema.Definition {
	return &schema.Definition{Fields: []schema.Field{
		{Name: "id", Type: schema.TypeNumber},
		{Name: "email", Type: schema.TypeEmail},
	}}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	// Reopening applies the schema again without error.
	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestDatasetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	d := Dataset{
		ID:        "ds-1",
		ProjectID: "p-1",
		Name:      "users",
		Schema:    testSchema(),
		CreatedAt: created,
	}
	require.NoError(t, s.CreateDataset(ctx, d))

	got, err := s.GetDataset(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, "users", got.Name)
	assert.Equal(t, "p-1", got.ProjectID)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NotNil(t, got.Schema)
	require.Len(t, got.Schema.Fields, 2)
	assert.Equal(t, schema.TypeEmail, got.Schema.Fields[1].Type)
}

func TestGetDatasetNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetDataset(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestJobLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDataset(ctx, Dataset{
		ID: "ds-1", ProjectID: "p-1", Name: "d", Schema: testSchema(), CreatedAt: time.Now(),
	}))

	j := Job{
		ID:        "job-1",
		ProjectID: "p-1",
		DatasetID: "ds-1",
		Status:    JobRunning,
		Count:     5,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateJob(ctx, j))

	got, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobRunning, got.Status)
	assert.Nil(t, got.CompletedAt)
	assert.False(t, got.Status.Terminal())

	// First terminal transition succeeds.
	done := time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC)
	transitioned, err := s.CompleteJob(ctx, "job-1", done)
	require.NoError(t, err)
	assert.True(t, transitioned)

	got, err = s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, got.Status)
	assert.True(t, got.Status.Terminal())
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(done))

	// A second transition is refused: terminal states are one-way.
	transitioned, err = s.FailJob(ctx, "job-1", time.Now())
	require.NoError(t, err)
	assert.False(t, transitioned)

	got, err = s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, got.Status, "completed job must not flip to failed")
}

func TestFailJobTransition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDataset(ctx, Dataset{
		ID: "ds-1", ProjectID: "p-1", Name: "d", Schema: testSchema(), CreatedAt: time.Now(),
	}))
	require.NoError(t, s.CreateJob(ctx, Job{
		ID: "job-1", ProjectID: "p-1", DatasetID: "ds-1", Status: JobRunning, Count: 1, CreatedAt: time.Now(),
	}))

	transitioned, err := s.FailJob(ctx, "job-1", time.Now())
	require.NoError(t, err)
	assert.True(t, transitioned)

	transitioned, err = s.CompleteJob(ctx, "job-1", time.Now())
	require.NoError(t, err)
	assert.False(t, transitioned)
}

func TestListJobsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDataset(ctx, Dataset{
		ID: "ds-1", ProjectID: "p-1", Name: "d", Schema: testSchema(), CreatedAt: time.Now(),
	}))

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"job-a", "job-b", "job-c"} {
		require.NoError(t, s.CreateJob(ctx, Job{
			ID: id, ProjectID: "p-1", DatasetID: "ds-1", Status: JobRunning, Count: 1,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	jobs, err := s.ListJobs(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "job-c", jobs[0].ID)
	assert.Equal(t, "job-a", jobs[2].ID)

	// Other projects see nothing.
	jobs, err = s.ListJobs(ctx, "p-2")
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func seedJob(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateDataset(ctx, Dataset{
		ID: "ds-1", ProjectID: "p-1", Name: "d", Schema: testSchema(), CreatedAt: time.Now(),
	}))
	require.NoError(t, s.CreateJob(ctx, Job{
		ID: "job-1", ProjectID: "p-1", DatasetID: "ds-1", Status: JobRunning, Count: 3, CreatedAt: time.Now(),
	}))
}

func TestWriteRecordAtomicRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedJob(t, s)

	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	rec := Record{
		ID:              "rec-1",
		ProjectID:       "p-1",
		GenerationJobID: "job-1",
		Data:            map[string]any{"id": float64(1), "email": "a@example.com"},
		IsComposite:     false,
		CreatedAt:       now,
	}
	fvs := []FieldValue{
		{ID: "fv-1", RecordID: "rec-1", FieldName: "email", Value: "a@example.com", DataType: "email"},
		{ID: "fv-2", RecordID: "rec-1", FieldName: "id", Value: float64(1), DataType: "number"},
	}
	anns := []Annotation{
		{ID: "an-1", TargetType: "field", TargetID: "fv-1", AnnotationType: "source", Value: "type_based", CreatedAt: now},
		{ID: "an-2", TargetType: "field", TargetID: "fv-1", AnnotationType: "confidence", Value: "0.8", CreatedAt: now},
	}

	require.NoError(t, s.WriteRecordAtomic(ctx, rec, fvs, anns))

	got, err := s.GetRecord(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Data["email"])
	assert.False(t, got.IsComposite)

	// Field values come back sorted by name.
	require.Len(t, got.FieldValues, 2)
	assert.Equal(t, "email", got.FieldValues[0].FieldName)
	assert.Equal(t, "id", got.FieldValues[1].FieldName)
	assert.Equal(t, float64(1), got.FieldValues[1].Value)

	gotAnns, err := s.ListAnnotations(ctx, "field", "fv-1")
	require.NoError(t, err)
	require.Len(t, gotAnns, 2)
	assert.Equal(t, "source", gotAnns[0].AnnotationType)
	assert.Equal(t, "type_based", gotAnns[0].Value)

	n, err := s.CountRecords(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriteRecordAtomicRollsBackOnBadFieldValue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedJob(t, s)

	rec := Record{
		ID: "rec-1", ProjectID: "p-1", GenerationJobID: "job-1",
		Data: map[string]any{"x": 1}, CreatedAt: time.Now(),
	}
	// The FK on record_id fails inside the transaction, so the record row
	// must not survive either.
	fvs := []FieldValue{
		{ID: "fv-1", RecordID: "other-record", FieldName: "x", Value: 1, DataType: "number"},
	}

	err := s.WriteRecordAtomic(ctx, rec, fvs, nil)
	require.Error(t, err)

	_, err = s.GetRecord(ctx, "rec-1")
	require.ErrorIs(t, err, ErrNotFound)

	n, err := s.CountRecords(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestListRecordsPagination(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedJob(t, s)

	base := time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"rec-a", "rec-b", "rec-c"} {
		require.NoError(t, s.WriteRecordAtomic(ctx, Record{
			ID: id, ProjectID: "p-1", GenerationJobID: "job-1",
			Data:      map[string]any{"n": float64(i)},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}, nil, nil))
	}

	page, err := s.ListRecords(ctx, "job-1", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "rec-a", page[0].ID, "insertion order")
	assert.Equal(t, "rec-b", page[1].ID)

	page, err = s.ListRecords(ctx, "job-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "rec-c", page[0].ID)
}
