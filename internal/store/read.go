package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/syndata/syndata/internal/schema"
)

// GetDataset returns a dataset with its schema document decoded.
// Returns ErrNotFound when no such dataset exists.
func (s *Store) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, schema_json, created_at
		FROM datasets
		WHERE id = ?
	`, id)

	var d Dataset
	var schemaJSON, createdAt string
	err := row.Scan(&d.ID, &d.ProjectID, &d.Name, &schemaJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset %s: %w", id, err)
	}

	var def schema.Definition
	if err := json.Unmarshal([]byte(schemaJSON), &def); err != nil {
		return nil, fmt.Errorf("get dataset %s: decode schema: %w", id, err)
	}
	d.Schema = &def

	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("get dataset %s: %w", id, err)
	}
	return &d, nil
}

// GetJob returns a job by ID. Returns ErrNotFound when it does not exist.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, dataset_id, status, count, config, created_at, completed_at
		FROM generation_jobs
		WHERE id = ?
	`, id)

	j, err := scanJob(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

// ListJobs returns every job for a project, newest first.
func (s *Store) ListJobs(ctx context.Context, projectID string) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, dataset_id, status, count, config, created_at, completed_at
		FROM generation_jobs
		WHERE project_id = ?
		ORDER BY created_at DESC, id ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(scan func(...any) error) (*Job, error) {
	var j Job
	var status, config, createdAt string
	var completedAt sql.NullString

	if err := scan(&j.ID, &j.ProjectID, &j.DatasetID, &status, &j.Count, &config, &createdAt, &completedAt); err != nil {
		return nil, err
	}

	j.Status = JobStatus(status)
	j.Config = json.RawMessage(config)

	var err error
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		j.CompletedAt = &t
	}
	return &j, nil
}

// CountRecords returns the number of records persisted for a job.
func (s *Store) CountRecords(ctx context.Context, jobID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM records WHERE generation_job_id = ?
	`, jobID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records for job %s: %w", jobID, err)
	}
	return n, nil
}

// ListRecords returns a page of a job's records with field values attached,
// in insertion order.
func (s *Store) ListRecords(ctx context.Context, jobID string, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, generation_job_id, data, is_composite, created_at
		FROM records
		WHERE generation_job_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
	`, jobID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	for i := range records {
		fvs, err := s.fieldValuesFor(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].FieldValues = fvs
	}
	return records, nil
}

// GetRecord returns one record with its field values.
// Returns ErrNotFound when it does not exist.
func (s *Store) GetRecord(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, generation_job_id, data, is_composite, created_at
		FROM records
		WHERE id = ?
	`, id)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}

	if rec.FieldValues, err = s.fieldValuesFor(ctx, rec.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

func scanRecord(scan func(...any) error) (*Record, error) {
	var rec Record
	var dataJSON, createdAt string
	var isComposite int

	if err := scan(&rec.ID, &rec.ProjectID, &rec.GenerationJobID, &dataJSON, &isComposite, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(dataJSON), &rec.Data); err != nil {
		return nil, fmt.Errorf("decode record data: %w", err)
	}
	rec.IsComposite = isComposite != 0

	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) fieldValuesFor(ctx context.Context, recordID string) ([]FieldValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_id, field_name, value, data_type
		FROM field_values
		WHERE record_id = ?
		ORDER BY field_name ASC
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("field values for record %s: %w", recordID, err)
	}
	defer rows.Close()

	values := []FieldValue{}
	for rows.Next() {
		var fv FieldValue
		var valueJSON sql.NullString
		if err := rows.Scan(&fv.ID, &fv.RecordID, &fv.FieldName, &valueJSON, &fv.DataType); err != nil {
			return nil, fmt.Errorf("field values for record %s: %w", recordID, err)
		}
		if valueJSON.Valid {
			if err := json.Unmarshal([]byte(valueJSON.String), &fv.Value); err != nil {
				return nil, fmt.Errorf("field values for record %s: decode: %w", recordID, err)
			}
		}
		values = append(values, fv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("field values for record %s: %w", recordID, err)
	}
	return values, nil
}

// ListAnnotations returns the annotations attached to a record or field
// value, oldest first.
func (s *Store) ListAnnotations(ctx context.Context, targetType, targetID string) ([]Annotation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target_type, target_id, annotation_type, value, created_at
		FROM annotations
		WHERE target_type = ? AND target_id = ?
		ORDER BY created_at ASC, id ASC
	`, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	anns := []Annotation{}
	for rows.Next() {
		var ann Annotation
		var createdAt string
		if err := rows.Scan(&ann.ID, &ann.TargetType, &ann.TargetID, &ann.AnnotationType, &ann.Value, &createdAt); err != nil {
			return nil, fmt.Errorf("list annotations: %w", err)
		}
		if ann.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("list annotations: %w", err)
		}
		anns = append(anns, ann)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	return anns, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
