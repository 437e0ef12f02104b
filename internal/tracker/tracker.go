// Package tracker is the process-wide registry of in-flight conversion
// jobs. Progress counters are the only cross-worker mutable state in the
// pipeline, so every update goes through the registry's lock.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// PageError records one page whose recognition permanently failed.
type PageError struct {
	Page  int    `json:"page"`
	Error string `json:"error"`
}

// Snapshot is the externally visible state of a job, as returned to
// polling clients.
type Snapshot struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Status         Status      `json:"status"`
	PagesTotal     int         `json:"pages_total"`
	PagesCompleted int         `json:"pages_completed"`
	OutputPath     string      `json:"output_path,omitempty"`
	Error          string      `json:"error,omitempty"`
	PageErrors     []PageError `json:"page_errors,omitempty"`
	Elapsed        float64     `json:"elapsed_seconds"`
}

type job struct {
	id         string
	name       string
	status     Status
	total      int
	completed  int
	output     string
	err        string
	pageErrors []PageError
	createdAt  time.Time
	finishedAt time.Time
	retrieved  time.Time
	pausedAt   time.Time
	pausedFor  time.Duration
	resume     chan struct{}
	cancel     context.CancelFunc
}

// Registry is a keyed, mutex-guarded job store. Terminal entries are
// evicted by Sweep once a client has retrieved them and the retention
// window has passed.
type Registry struct {
	mu        sync.RWMutex
	jobs      map[string]*job
	retention time.Duration
	logger    *logrus.Logger
}

// NewRegistry builds an empty registry. retention <= 0 keeps terminal
// jobs for 10 minutes after retrieval.
func NewRegistry(retention time.Duration, logger *logrus.Logger) *Registry {
	if retention <= 0 {
		retention = 10 * time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		jobs:      make(map[string]*job),
		retention: retention,
		logger:    logger,
	}
}

// Create registers a new pending job and returns its id. cancel is
// invoked when the job is cancelled through the registry.
func (r *Registry) Create(name string, total int, cancel context.CancelFunc) string {
	id := uuid.New().String()
	r.mu.Lock()
	r.jobs[id] = &job{
		id:        id,
		name:      name,
		status:    StatusPending,
		total:     total,
		createdAt: time.Now(),
		cancel:    cancel,
	}
	r.mu.Unlock()
	r.logger.WithFields(logrus.Fields{"job": id, "name": name, "pages": total}).Info("job created")
	return id
}

// Start marks the job running and fixes the page total once rendering
// has produced the real page count.
func (r *Registry) Start(id string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	j.status = StatusRunning
	j.total = total
	j.completed = 0
}

// UpdateProgress increments the completed-page counter. Safe to call from
// any number of worker goroutines.
func (r *Registry) UpdateProgress(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.completed++
	}
}

// AddPageError records a permanent per-page recognition failure. The job
// itself keeps running under the partial-failure policy.
func (r *Registry) AddPageError(id string, page int, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.pageErrors = append(j.pageErrors, PageError{Page: page, Error: msg})
	}
}

// Complete marks the job terminal with its output artifact location.
func (r *Registry) Complete(id, outputPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	j.status = StatusCompleted
	j.output = outputPath
	j.finishedAt = time.Now()
}

// Fail marks the job terminal with a human-readable cause.
func (r *Registry) Fail(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	j.status = StatusFailed
	if err != nil {
		j.err = err.Error()
	}
	j.finishedAt = time.Now()
}

// Pause holds the job between page dispatches. In-flight pages finish;
// no new page is dispatched until Resume.
func (r *Registry) Pause(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || terminal(j.status) || j.status == StatusPaused {
		return false
	}
	j.status = StatusPaused
	j.pausedAt = time.Now()
	j.resume = make(chan struct{})
	return true
}

// Resume releases a paused job. Time spent paused is excluded from the
// reported elapsed time.
func (r *Registry) Resume(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.status != StatusPaused {
		return false
	}
	j.status = StatusRunning
	j.pausedFor += time.Since(j.pausedAt)
	j.pausedAt = time.Time{}
	close(j.resume)
	j.resume = nil
	return true
}

// WaitIfPaused blocks while the job is paused, returning early when ctx is
// done. The pipeline calls it before dispatching each page.
func (r *Registry) WaitIfPaused(ctx context.Context, id string) error {
	for {
		r.mu.RLock()
		var ch chan struct{}
		if j, ok := r.jobs[id]; ok && j.status == StatusPaused {
			ch = j.resume
		}
		r.mu.RUnlock()
		if ch == nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Cancel aborts a running job: no further pages are dispatched and
// in-flight results are discarded by the pipeline.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	j, ok := r.jobs[id]
	var cancel context.CancelFunc
	if ok && j.cancel != nil {
		cancel = j.cancel
	}
	r.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	r.Fail(id, context.Canceled)
	return true
}

// Get returns a point-in-time snapshot. Retrieving a terminal snapshot
// starts the retention clock for eviction.
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Snapshot{}, false
	}
	if terminal(j.status) && j.retrieved.IsZero() {
		j.retrieved = time.Now()
	}
	return snapshotOf(j), true
}

// Active returns snapshots of all non-terminal jobs, for progress
// display without knowing ids up front.
func (r *Registry) Active() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Snapshot
	for _, j := range r.jobs {
		if !terminal(j.status) {
			out = append(out, snapshotOf(j))
		}
	}
	return out
}

// Sweep evicts terminal jobs whose retention window has passed since
// retrieval. Returns the number of evicted entries.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, j := range r.jobs {
		if terminal(j.status) && !j.retrieved.IsZero() && now.Sub(j.retrieved) >= r.retention {
			delete(r.jobs, id)
			n++
		}
	}
	return n
}

// StartSweeper runs Sweep periodically until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				if n := r.Sweep(now); n > 0 {
					r.logger.WithField("evicted", n).Debug("tracker sweep")
				}
			}
		}
	}()
}

func terminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed
}

func snapshotOf(j *job) Snapshot {
	end := j.finishedAt
	if end.IsZero() {
		end = time.Now()
	}
	paused := j.pausedFor
	if !j.pausedAt.IsZero() {
		paused += end.Sub(j.pausedAt)
	}
	return Snapshot{
		ID:             j.id,
		Name:           j.name,
		Status:         j.status,
		PagesTotal:     j.total,
		PagesCompleted: j.completed,
		OutputPath:     j.output,
		Error:          j.err,
		PageErrors:     append([]PageError(nil), j.pageErrors...),
		Elapsed:        (end.Sub(j.createdAt) - paused).Seconds(),
	}
}
