package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// timeFormat is the canonical timestamp encoding for all tables.
const timeFormat = time.RFC3339Nano

// CreateDataset inserts a dataset with its schema document serialized as
// JSON.
func (s *Store) CreateDataset(ctx context.Context, d Dataset) error {
	schemaJSON, err := json.Marshal(d.Schema)
	if err != nil {
		return fmt.Errorf("create dataset: marshal schema: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO datasets (id, project_id, name, schema_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		d.ID, d.ProjectID, d.Name, string(schemaJSON), d.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	return nil
}

// CreateJob inserts a generation job row.
func (s *Store) CreateJob(ctx context.Context, j Job) error {
	config := j.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_jobs (id, project_id, dataset_id, status, count, config, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		j.ID, j.ProjectID, j.DatasetID, string(j.Status), j.Count, string(config),
		j.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// CompleteJob moves a running job to completed.
//
// The WHERE status='running' guard makes terminal transitions one-way and
// at-most-once: a job already failed (or completed) is left untouched and
// transitioned=false is returned.
func (s *Store) CompleteJob(ctx context.Context, jobID string, at time.Time) (bool, error) {
	return s.finishJob(ctx, jobID, JobCompleted, at)
}

// FailJob moves a running job to failed. Same at-most-once guarantee as
// CompleteJob.
func (s *Store) FailJob(ctx context.Context, jobID string, at time.Time) (bool, error) {
	return s.finishJob(ctx, jobID, JobFailed, at)
}

func (s *Store) finishJob(ctx context.Context, jobID string, status JobStatus, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE generation_jobs
		SET status = ?, completed_at = ?
		WHERE id = ? AND status = 'running'
	`,
		string(status), at.UTC().Format(timeFormat), jobID,
	)
	if err != nil {
		return false, fmt.Errorf("finish job %s: %w", jobID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finish job %s: rows affected: %w", jobID, err)
	}
	return n == 1, nil
}

// WriteRecordAtomic persists a record together with its field values and
// annotations in a single transaction.
//
// Either the record lands fully grouped with its side-rows or nothing is
// written; a crash mid-record cannot leave a record visible without its
// provenance.
func (s *Store) WriteRecordAtomic(ctx context.Context, rec Record, fieldValues []FieldValue, annotations []Annotation) error {
	dataJSON, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("write record: marshal data: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write record: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (id, project_id, generation_job_id, data, is_composite, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.ProjectID, rec.GenerationJobID, string(dataJSON),
		boolToInt(rec.IsComposite), rec.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("write record %s: %w", rec.ID, err)
	}

	for _, fv := range fieldValues {
		valueJSON, err := json.Marshal(fv.Value)
		if err != nil {
			return fmt.Errorf("write field value %s.%s: marshal: %w", rec.ID, fv.FieldName, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO field_values (id, record_id, field_name, value, data_type)
			VALUES (?, ?, ?, ?, ?)
		`,
			fv.ID, fv.RecordID, fv.FieldName, string(valueJSON), fv.DataType,
		)
		if err != nil {
			return fmt.Errorf("write field value %s.%s: %w", rec.ID, fv.FieldName, err)
		}
	}

	for _, ann := range annotations {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO annotations (id, target_type, target_id, annotation_type, value, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			ann.ID, ann.TargetType, ann.TargetID, ann.AnnotationType, ann.Value,
			ann.CreatedAt.UTC().Format(timeFormat),
		)
		if err != nil {
			return fmt.Errorf("write annotation %s: %w", ann.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write record %s: commit: %w", rec.ID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
