package store

import (
	"encoding/json"
	"time"

	"github.com/syndata/syndata/internal/schema"
)

// JobStatus is a generation job's lifecycle state.
//
// Transitions are one-way: running jobs move to exactly one of completed
// or failed and never reopen. The transition is enforced in SQL (see
// CompleteJob / FailJob), so a racing writer cannot flip a terminal state.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Dataset couples a project-owned name with a schema document.
type Dataset struct {
	ID        string             `json:"id"`
	ProjectID string             `json:"projectId"`
	Name      string             `json:"name"`
	Schema    *schema.Definition `json:"schema"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Job is one generation run over a dataset.
type Job struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"projectId"`
	DatasetID   string          `json:"datasetId"`
	Status      JobStatus       `json:"status"`
	Count       int             `json:"count"`
	Config      json.RawMessage `json:"config"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// Record is one generated record.
type Record struct {
	ID              string         `json:"id"`
	ProjectID       string         `json:"projectId"`
	GenerationJobID string         `json:"generationJobId"`
	Data            map[string]any `json:"data"`
	IsComposite     bool           `json:"isComposite"`
	CreatedAt       time.Time      `json:"createdAt"`
	FieldValues     []FieldValue   `json:"fieldValues,omitempty"`
}

// FieldValue is a per-field row of a record, kept alongside the record's
// JSON blob for field-level querying and annotation targets.
type FieldValue struct {
	ID        string `json:"id"`
	RecordID  string `json:"recordId"`
	FieldName string `json:"fieldName"`
	Value     any    `json:"value"`
	DataType  string `json:"dataType"`
}

// Annotation is an append-only provenance side-record attached to a record
// or a field value.
type Annotation struct {
	ID             string    `json:"id"`
	TargetType     string    `json:"targetType"` // "record" | "field"
	TargetID       string    `json:"targetId"`
	AnnotationType string    `json:"annotationType"` // e.g. "source", "confidence"
	Value          string    `json:"value"`
	CreatedAt      time.Time `json:"createdAt"`
}
