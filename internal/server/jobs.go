// Package server exposes the geocoding pipeline over HTTP: upload a CSV,
// poll progress, download the GeoJSON and failure-CSV artifacts. Jobs live in
// memory only; restarting the server forgets them.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mappoint/geocsv/internal/mapping"
	"github.com/mappoint/geocsv/internal/pipeline"
	"github.com/mappoint/geocsv/internal/table"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Job is one geocoding batch started via the API.
type Job struct {
	ID       string
	Filename string
	Mapping  mapping.ColumnMapping
	Started  time.Time

	mu       sync.Mutex
	status   Status
	progress pipeline.Progress
	results  []pipeline.ProcessedRow
	cancel   context.CancelFunc
}

// Snapshot returns the job's current status and progress.
func (j *Job) Snapshot() (Status, pipeline.Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status, j.progress
}

// Results returns the collected outcome records, or nil while the job is
// still running.
func (j *Job) Results() []pipeline.ProcessedRow {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusRunning {
		return nil
	}
	return j.results
}

// Cancel requests cooperative cancellation; the batch stops at the next row
// boundary.
func (j *Job) Cancel() {
	j.mu.Lock()
	cancel := j.cancel
	j.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (j *Job) setProgress(p pipeline.Progress) {
	j.mu.Lock()
	j.progress = p
	j.mu.Unlock()
}

func (j *Job) finish(results []pipeline.ProcessedRow, cancelled bool) {
	j.mu.Lock()
	j.results = results
	if cancelled {
		j.status = StatusCancelled
	} else {
		j.status = StatusDone
	}
	j.mu.Unlock()
}

// Manager owns the job table and runs batches in the background.
type Manager struct {
	runner *pipeline.Runner

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewManager creates a Manager that drives batches with the given runner.
func NewManager(runner *pipeline.Runner) *Manager {
	return &Manager{
		runner: runner,
		jobs:   make(map[string]*Job),
	}
}

// Get returns a job by ID.
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	return job, ok
}

// Start launches a batch for the given table and mapping and returns its job.
// The caller must have validated the mapping already.
func (m *Manager) Start(tbl *table.Table, cm mapping.ColumnMapping, filename string) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:       uuid.New().String(),
		Filename: filename,
		Mapping:  cm,
		Started:  time.Now().UTC(),
		status:   StatusRunning,
		progress: pipeline.Progress{Total: len(tbl.Rows)},
		cancel:   cancel,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go func() {
		defer cancel()

		results := m.runner.RunAll(ctx, tbl.Rows, cm, func(p pipeline.Progress, _ []pipeline.ProcessedRow) {
			job.setProgress(p)
		})
		job.finish(results, ctx.Err() != nil)

		status, progress := job.Snapshot()
		zap.L().Info("job finished",
			zap.String("job_id", job.ID),
			zap.String("status", string(status)),
			zap.Int("processed", progress.Processed),
			zap.Int("successful", progress.Successful),
			zap.Int("failed", progress.Failed),
		)
	}()

	return job
}
