// Package job coordinates generation runs: it validates the dataset's
// schema, creates the job row, and drives record generation to a terminal
// status.
//
// The generation loop is detached from the request that triggered it: Start
// returns the job in running state immediately and the caller polls. Each
// job owns a cancellation token checked between record iterations.
package job

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/syndata/syndata/internal/engine"
	"github.com/syndata/syndata/internal/schema"
	"github.com/syndata/syndata/internal/store"
)

// Persistence is the slice of the store the coordinator needs. *store.Store
// satisfies it; tests substitute failing implementations to exercise the
// job failure path.
type Persistence interface {
	GetDataset(ctx context.Context, id string) (*store.Dataset, error)
	CreateJob(ctx context.Context, j store.Job) error
	WriteRecordAtomic(ctx context.Context, rec store.Record, fieldValues []store.FieldValue, annotations []store.Annotation) error
	CompleteJob(ctx context.Context, jobID string, at time.Time) (bool, error)
	FailJob(ctx context.Context, jobID string, at time.Time) (bool, error)
}

// Request describes one generation run.
//
// The three confidence thresholds are optional; nil means the engine
// default (0.6 / 0.5 / 0.4).
type Request struct {
	DatasetID string           `json:"datasetId"`
	Count     int              `json:"count"`
	Rules     schema.FlatRules `json:"rules,omitempty"`

	MinComponentConfidence *float64 `json:"minComponentConfidence,omitempty"`
	MinRuleConfidence      *float64 `json:"minRuleConfidence,omitempty"`
	MinFieldConfidence     *float64 `json:"minFieldConfidence,omitempty"`
}

// Config is what gets serialized into the job row's config column.
type Config struct {
	Rules   schema.FlatRules `json:"rules,omitempty"`
	Filters engine.Filters   `json:"filters"`
}

// ValidationError carries the full validation result for a rejected
// schema or rule set. Surfaced synchronously, before any job row exists.
type ValidationError struct {
	Result schema.ValidationResult
}

func (e *ValidationError) Error() string {
	return "schema validation failed: " + strings.Join(e.Result.Errors, "; ")
}

// Coordinator owns generation jobs for their whole lifecycle.
type Coordinator struct {
	db     Persistence
	gen    *engine.Generator
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock substitutes the wall clock. Tests pin timestamps with it.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithIDGenerator substitutes the ID source. Production uses UUIDv7 so IDs
// sort by creation time.
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) { c.newID = newID }
}

// NewCoordinator creates a coordinator writing through db and generating
// with gen.
func NewCoordinator(db Persistence, gen *engine.Generator, opts ...Option) *Coordinator {
	c := &Coordinator{
		db:      db,
		gen:     gen,
		logger:  slog.Default().With("component", "coordinator"),
		now:     time.Now,
		newID:   newUUIDv7,
		cancels: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the entropy source does; fall back to v4.
		return uuid.NewString()
	}
	return id.String()
}

// Start validates the request and launches a generation job.
//
// Validation failures abort before a job row is created; the caller gets a
// *ValidationError and no job exists. On success the returned job is in
// running state and the loop continues in the background; poll GetJob for
// the terminal status.
func (c *Coordinator) Start(ctx context.Context, projectID string, req Request) (*store.Job, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", req.Count)
	}

	dataset, err := c.db.GetDataset(ctx, req.DatasetID)
	if err != nil {
		return nil, err
	}

	if result := schema.Validate(dataset.Schema); !result.Valid {
		return nil, &ValidationError{Result: result}
	}
	if !dataset.Schema.IsDynamic() && req.Rules != nil {
		if result := schema.ValidateFlatRules(req.Rules, dataset.Schema); !result.Valid {
			return nil, &ValidationError{Result: result}
		}
	}

	filters := c.filtersFor(req)
	config, err := json.Marshal(Config{Rules: req.Rules, Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("marshal job config: %w", err)
	}

	j := store.Job{
		ID:        c.newID(),
		ProjectID: projectID,
		DatasetID: req.DatasetID,
		Status:    store.JobRunning,
		Count:     req.Count,
		Config:    config,
		CreatedAt: c.now(),
	}
	if err := c.db.CreateJob(ctx, j); err != nil {
		return nil, err
	}

	// Detach the loop from the request context; it outlives the trigger.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Lock()
	c.cancels[j.ID] = cancel
	c.mu.Unlock()

	c.logger.Info("job started",
		"job_id", j.ID,
		"project_id", projectID,
		"dataset_id", req.DatasetID,
		"count", req.Count,
	)

	c.wg.Add(1)
	go c.run(runCtx, j, dataset, req, filters)

	return &j, nil
}

// run drives the per-record loop to a terminal job status.
//
// Failure is per-job, not per-record: the first error marks the job failed
// and stops the loop. Records already written stay written.
func (c *Coordinator) run(ctx context.Context, j store.Job, dataset *store.Dataset, req Request, filters engine.Filters) {
	defer c.wg.Done()
	defer c.release(j.ID)

	// Status writes must land even when the job context was cancelled.
	finishCtx := context.WithoutCancel(ctx)

	for i := 0; i < j.Count; i++ {
		if err := ctx.Err(); err != nil {
			c.logger.Info("job cancelled", "job_id", j.ID, "records_done", i)
			c.markFailed(finishCtx, j.ID)
			return
		}

		if err := c.generateOne(ctx, j, dataset, req, filters); err != nil {
			c.logger.Error("record generation failed, job aborted",
				"job_id", j.ID,
				"record_index", i,
				"error", err,
			)
			c.markFailed(finishCtx, j.ID)
			return
		}
	}

	transitioned, err := c.db.CompleteJob(finishCtx, j.ID, c.now())
	if err != nil {
		c.logger.Error("mark job completed failed", "job_id", j.ID, "error", err)
		return
	}
	if transitioned {
		c.logger.Info("job completed", "job_id", j.ID, "count", j.Count)
	}
}

// markFailed flips the job to failed at most once; the SQL guard ignores
// the write when the job already reached a terminal state.
func (c *Coordinator) markFailed(ctx context.Context, jobID string) {
	if _, err := c.db.FailJob(ctx, jobID, c.now()); err != nil {
		c.logger.Error("mark job failed errored", "job_id", jobID, "error", err)
	}
}

// generateOne produces and persists a single record with its field values
// and provenance annotations grouped in one transaction.
func (c *Coordinator) generateOne(ctx context.Context, j store.Job, dataset *store.Dataset, req Request, filters engine.Filters) error {
	var result *engine.Result
	var err error

	if dataset.Schema.IsDynamic() {
		result, err = c.gen.GenerateDynamic(ctx, dataset.Schema.RootStructure, filters)
		if err != nil {
			return err
		}
	} else {
		result = c.gen.GenerateFlat(dataset.Schema, req.Rules)
	}

	now := c.now()
	rec := store.Record{
		ID:              c.newID(),
		ProjectID:       j.ProjectID,
		GenerationJobID: j.ID,
		Data:            result.Data,
		IsComposite:     result.IsComposite,
		CreatedAt:       now,
	}

	fieldValues, annotations := c.sideRows(rec, dataset.Schema, result, now)
	return c.db.WriteRecordAtomic(ctx, rec, fieldValues, annotations)
}

// sideRows flattens a result into field_value rows plus source/confidence
// annotations. Dynamic-mode field names are "componentType.field".
func (c *Coordinator) sideRows(rec store.Record, def *schema.Definition, result *engine.Result, now time.Time) ([]store.FieldValue, []store.Annotation) {
	names := make([]string, 0, len(result.Sources))
	for name := range result.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var fieldValues []store.FieldValue
	var annotations []store.Annotation

	for _, name := range names {
		prov := result.Sources[name]
		value, ok := lookupValue(result.Data, name, def.IsDynamic())
		if !ok {
			continue
		}

		fv := store.FieldValue{
			ID:        c.newID(),
			RecordID:  rec.ID,
			FieldName: name,
			Value:     value,
			DataType:  string(fieldType(def, name)),
		}
		fieldValues = append(fieldValues, fv)

		annotations = append(annotations,
			store.Annotation{
				ID:             c.newID(),
				TargetType:     "field",
				TargetID:       fv.ID,
				AnnotationType: "source",
				Value:          prov.Source,
				CreatedAt:      now,
			},
			store.Annotation{
				ID:             c.newID(),
				TargetType:     "field",
				TargetID:       fv.ID,
				AnnotationType: "confidence",
				Value:          fmt.Sprintf("%g", prov.Confidence),
				CreatedAt:      now,
			},
		)
	}

	return fieldValues, annotations
}

// lookupValue resolves a provenance key against the record data: plain
// field name for flat records, "componentType.field" for dynamic ones.
func lookupValue(data map[string]any, name string, dynamic bool) (any, bool) {
	if !dynamic {
		v, ok := data[name]
		return v, ok
	}
	compType, field, found := strings.Cut(name, ".")
	if !found {
		return nil, false
	}
	comp, ok := data[compType].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := comp[field]
	return v, ok
}

// fieldType finds the declared type for a provenance key; "string" when
// the schema does not declare one.
func fieldType(def *schema.Definition, name string) schema.FieldType {
	if !def.IsDynamic() {
		for _, f := range def.Fields {
			if f.Name == name {
				return f.Type
			}
		}
		return schema.TypeString
	}

	compType, field, found := strings.Cut(name, ".")
	if !found {
		return schema.TypeString
	}
	for i := range def.RootStructure.Components {
		comp := &def.RootStructure.Components[i]
		if comp.ComponentType != compType {
			continue
		}
		if sf, ok := comp.Fields[field]; ok {
			return sf.Type
		}
	}
	return schema.TypeString
}

func (c *Coordinator) filtersFor(req Request) engine.Filters {
	filters := engine.DefaultFilters()
	if req.MinComponentConfidence != nil {
		filters.MinComponentConfidence = *req.MinComponentConfidence
	}
	if req.MinRuleConfidence != nil {
		filters.MinRuleConfidence = *req.MinRuleConfidence
	}
	if req.MinFieldConfidence != nil {
		filters.MinFieldConfidence = *req.MinFieldConfidence
	}
	return filters
}

// Cancel requests cancellation of a running job. The loop notices between
// record iterations and marks the job failed. Reports whether the job was
// known to the coordinator.
func (c *Coordinator) Cancel(jobID string) bool {
	c.mu.Lock()
	cancel, ok := c.cancels[jobID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (c *Coordinator) release(jobID string) {
	c.mu.Lock()
	if cancel, ok := c.cancels[jobID]; ok {
		cancel()
		delete(c.cancels, jobID)
	}
	c.mu.Unlock()
}

// Wait blocks until every launched job loop has reached a terminal state.
// Used on shutdown and in tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
