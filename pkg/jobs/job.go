// Package jobs tracks asynchronous poster jobs for the web server.
//
// A [Job] moves through queued, running, and one of completed, failed or
// cancelled. Progress is a percentage driven by pipeline stages and never
// moves backwards. Elapsed time and an ETA are derived from it.
//
// Two [Registry] backends exist: [MemoryRegistry] for a single process and
// [RedisRegistry] for deployments with several server instances. Both
// serialize updates per job id.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/cityposter/pkg/errors"
	"github.com/matzehuels/cityposter/pkg/pipeline"
)

// Status is a job lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// DefaultTTL is how long finished jobs are retained.
const DefaultTTL = 24 * time.Hour

// File is one poster produced by a job.
type File struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Theme    string `json:"theme"`
	Format   string `json:"format"`
	Bytes    int    `json:"bytes"`
}

// Job is the state of one request.
type Job struct {
	ID      string           `json:"id"`
	Status  Status           `json:"status"`
	Stage   pipeline.Stage   `json:"stage,omitempty"`
	Percent int              `json:"percent"`
	Message string           `json:"message,omitempty"`
	Request pipeline.Options `json:"request"`

	// Themes lists the themes to render; more than one means batch mode.
	Themes []string `json:"themes,omitempty"`

	Files     []File   `json:"files,omitempty"`
	CacheHits []string `json:"cache_hits,omitempty"`
	Error     string   `json:"error,omitempty"`
	ErrorCode string   `json:"error_code,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// New creates a queued job with a fresh id.
func New(req pipeline.Options, themes []string, now time.Time) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Message:   "Waiting for a worker",
		Request:   req,
		Themes:    themes,
		CreatedAt: now,
	}
}

// Elapsed is the running time so far, or the total once finished.
func (j *Job) Elapsed(now time.Time) time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	end := now
	if !j.FinishedAt.IsZero() {
		end = j.FinishedAt
	}
	if d := end.Sub(j.StartedAt); d > 0 {
		return d
	}
	return 0
}

// ETA extrapolates the remaining time from elapsed time and percent. It
// reports false while no estimate is possible.
func (j *Job) ETA(now time.Time) (time.Duration, bool) {
	if j.Status != StatusRunning || j.Percent <= 0 {
		return 0, false
	}
	if j.Percent >= 100 {
		return 0, true
	}
	elapsed := j.Elapsed(now)
	remaining := time.Duration(float64(elapsed) * float64(100-j.Percent) / float64(j.Percent))
	return remaining.Round(time.Second), true
}

// Registry stores jobs.
type Registry interface {
	// Create stores a new job. It fails with CONFLICT if the id exists.
	Create(ctx context.Context, j *Job) error

	// Get returns a copy of the job, or a JOB_NOT_FOUND error.
	Get(ctx context.Context, id string) (*Job, error)

	// Update applies fn to the current job and stores the result. Updates
	// of one id never interleave. If fn returns an error nothing is stored.
	Update(ctx context.Context, id string, fn func(*Job) error) (*Job, error)

	Close() error
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeJobNotFound, "job %s not found", id)
}

// =============================================================================
// Transitions
// =============================================================================

// ErrSkip aborts an Update without error; the job is left unchanged.
var ErrSkip = errors.New(errors.ErrCodeConflict, "job already finished")

// Start moves a queued job to running. It returns ErrSkip if the job was
// cancelled while queued.
func Start(ctx context.Context, r Registry, id string, now time.Time) (*Job, error) {
	return r.Update(ctx, id, func(j *Job) error {
		if j.Status != StatusQueued {
			return ErrSkip
		}
		j.Status = StatusRunning
		j.StartedAt = now
		j.Message = "Starting"
		return nil
	})
}

// Progress records that stage started. Percent never decreases and
// finished jobs are left alone.
func Progress(ctx context.Context, r Registry, id string, stage pipeline.Stage) error {
	_, err := r.Update(ctx, id, func(j *Job) error {
		if j.Status != StatusRunning {
			return ErrSkip
		}
		if p := stage.Percent(); p > j.Percent {
			j.Percent = p
			j.Stage = stage
			j.Message = stage.Label()
		}
		return nil
	})
	if err == ErrSkip {
		return nil
	}
	return err
}

// Complete records a successful run. It returns ErrSkip if the job was
// cancelled meanwhile; the caller then owns cleaning up the files.
func Complete(ctx context.Context, r Registry, id string, files []File, cacheHits []string, now time.Time) (*Job, error) {
	return r.Update(ctx, id, func(j *Job) error {
		if j.Status != StatusRunning {
			return ErrSkip
		}
		j.Status = StatusCompleted
		j.Stage = pipeline.StageDone
		j.Percent = 100
		j.Message = "Poster ready"
		j.Files = files
		j.CacheHits = cacheHits
		j.FinishedAt = now
		return nil
	})
}

// Fail records a failed run.
func Fail(ctx context.Context, r Registry, id string, runErr error, now time.Time) (*Job, error) {
	return r.Update(ctx, id, func(j *Job) error {
		if j.Status.Terminal() {
			return ErrSkip
		}
		j.Status = StatusFailed
		j.Error = errors.UserMessage(runErr)
		j.ErrorCode = string(errors.GetCode(runErr))
		j.Message = "Failed"
		j.FinishedAt = now
		return nil
	})
}

// Cancel cancels a queued or running job. Cancelling a cancelled job is a
// no-op; cancelling a completed or failed job is a CONFLICT.
func Cancel(ctx context.Context, r Registry, id string, now time.Time) (*Job, error) {
	return r.Update(ctx, id, func(j *Job) error {
		switch j.Status {
		case StatusCancelled:
			return nil
		case StatusCompleted, StatusFailed:
			return errors.New(errors.ErrCodeConflict, "job %s already %s", id, j.Status)
		}
		j.Status = StatusCancelled
		j.Message = "Cancelled by user"
		j.FinishedAt = now
		return nil
	})
}
