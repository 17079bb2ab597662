package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/video-stream/subtrans/internal/logging"
)

// ErrNotFound is returned for unknown job IDs.
var ErrNotFound = errors.New("job not found")

// ErrNotRetryable is returned when retrying a job that has not failed or been cancelled.
var ErrNotRetryable = errors.New("job is not failed or cancelled")

const jobColumns = `id, type, status, label, params, progress, message, result, error, created_at, started_at, completed_at`

// JobQueue persists jobs in sqlite and runs them one at a time.
type JobQueue struct {
	db       *sql.DB
	mu       sync.RWMutex
	pending  chan string // job IDs to process
	cancels  map[string]context.CancelFunc
	handlers map[JobType]JobHandler
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  sync.Once
	logger   zerolog.Logger
}

// NewJobQueue creates the queue. Call Start once handlers are registered.
func NewJobQueue(db *sql.DB) *JobQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobQueue{
		db:       db,
		pending:  make(chan string, 100),
		cancels:  make(map[string]context.CancelFunc),
		handlers: make(map[JobType]JobHandler),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		logger:   logging.Component("job"),
	}
}

// Start re-queues jobs left over from a previous run and starts the worker.
func (q *JobQueue) Start() {
	q.started.Do(func() {
		q.resumeJobs()
		go q.worker()
	})
}

// RegisterHandler registers a handler for a job type
func (q *JobQueue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Enqueue creates a new job and adds it to the queue
func (q *JobQueue) Enqueue(jobType JobType, label string, params any) (*Job, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    StatusPending,
		Label:     label,
		Params:    paramsJSON,
		CreatedAt: time.Now().UTC(),
	}

	_, err = q.db.Exec(`
		INSERT INTO jobs (id, type, status, label, params, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Type, job.Status, job.Label, string(job.Params), job.Progress, job.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	select {
	case q.pending <- job.ID:
	default:
		q.logger.Warn().Str("job_id", job.ID).Msg("queue full, job will be picked up on restart")
	}

	return job, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*Job, error) {
	job := &Job{}
	var params, message, result, errMsg sql.NullString
	var startedAt, completedAt sql.NullTime

	if err := row.Scan(&job.ID, &job.Type, &job.Status, &job.Label, &params, &job.Progress,
		&message, &result, &errMsg, &job.CreatedAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	if params.Valid {
		job.Params = json.RawMessage(params.String)
	}
	if result.Valid {
		job.Result = json.RawMessage(result.String)
	}
	job.Message = message.String
	job.Error = errMsg.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

// GetJob retrieves a job by ID
func (q *JobQueue) GetJob(id string) (*Job, error) {
	job, err := scanJob(q.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// ListJobs returns jobs newest first, optionally only those in status.
func (q *JobQueue) ListJobs(status JobStatus) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	rows, err := q.db.Query(query+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CancelJob cancels a pending or running job
func (q *JobQueue) CancelJob(id string) error {
	q.mu.Lock()
	if cancelFn, ok := q.cancels[id]; ok {
		cancelFn()
		delete(q.cancels, id)
	}
	q.mu.Unlock()

	res, err := q.db.Exec(`
		UPDATE jobs SET status = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		StatusCancelled, time.Now().UTC(), id, StatusPending, StatusRunning,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := q.GetJob(id); err != nil {
			return err
		}
	}
	return nil
}

// RetryJob re-queues a failed or cancelled job
func (q *JobQueue) RetryJob(id string) error {
	res, err := q.db.Exec(`
		UPDATE jobs SET status = ?, progress = 0, message = NULL, result = NULL, error = NULL,
			started_at = NULL, completed_at = NULL
		WHERE id = ? AND status IN (?, ?)`,
		StatusPending, id, StatusFailed, StatusCancelled,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := q.GetJob(id); err != nil {
			return err
		}
		return ErrNotRetryable
	}

	select {
	case q.pending <- id:
	default:
		q.logger.Warn().Str("job_id", id).Msg("queue full, job will be picked up on restart")
	}
	return nil
}

// UpdateProgress updates the progress of a running job
func (q *JobQueue) UpdateProgress(id string, progress float64) {
	if _, err := q.db.Exec("UPDATE jobs SET progress = ? WHERE id = ?", progress, id); err != nil {
		q.logger.Warn().Err(err).Str("job_id", id).Msg("failed to update progress")
	}
}

// UpdateMessage stores the latest status line of a job
func (q *JobQueue) UpdateMessage(id, message string) {
	if _, err := q.db.Exec("UPDATE jobs SET message = ? WHERE id = ?", message, id); err != nil {
		q.logger.Warn().Err(err).Str("job_id", id).Msg("failed to update message")
	}
}

// Stop shuts down the queue and waits for the worker to exit.
func (q *JobQueue) Stop() {
	q.cancel()
	q.started.Do(func() { close(q.done) })
	<-q.done
}

// worker processes jobs from the pending channel one at a time
func (q *JobQueue) worker() {
	defer close(q.done)
	for {
		select {
		case <-q.ctx.Done():
			return
		case jobID := <-q.pending:
			q.processJob(jobID)
		}
	}
}

type reporter struct {
	q  *JobQueue
	id string
}

func (r reporter) Progress(p float64) { r.q.UpdateProgress(r.id, p) }
func (r reporter) Message(msg string) { r.q.UpdateMessage(r.id, msg) }

// claim moves a pending job to running. It reports false when the job was
// cancelled or picked up in the meantime.
func (q *JobQueue) claim(id string, now time.Time) (bool, error) {
	res, err := q.db.Exec("UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?",
		StatusRunning, now, id, StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// processJob runs a single job
func (q *JobQueue) processJob(jobID string) {
	// register the cancel func before claiming so a CancelJob racing the
	// claim either sees the pending row or finds the func
	ctx, cancelFn := context.WithCancel(q.ctx)
	q.mu.Lock()
	q.cancels[jobID] = cancelFn
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		delete(q.cancels, jobID)
		q.mu.Unlock()
		cancelFn()
	}()

	now := time.Now().UTC()
	claimed, err := q.claim(jobID, now)
	if err != nil {
		q.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to mark job running")
		return
	}
	if !claimed {
		q.logger.Debug().Str("job_id", jobID).Msg("job no longer pending, skipped")
		return
	}

	job, err := q.GetJob(jobID)
	if err != nil {
		q.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to load job")
		return
	}

	q.mu.RLock()
	handler, ok := q.handlers[job.Type]
	q.mu.RUnlock()
	if !ok {
		q.failJob(job, fmt.Sprintf("no handler for job type: %s", job.Type))
		return
	}

	q.logger.Info().Str("job_id", job.ID).Str("type", string(job.Type)).Str("label", job.Label).Msg("job started")
	err = handler(ctx, job, reporter{q: q, id: job.ID})

	switch {
	case ctx.Err() != nil:
		// the row was already marked cancelled by CancelJob, or the queue is stopping
		q.storeResult(job)
		q.logger.Info().Str("job_id", job.ID).Msg("job cancelled")
	case err != nil:
		q.failJob(job, err.Error())
	default:
		q.completeJob(job)
	}
}

func (q *JobQueue) storeResult(job *Job) {
	if job.Result == nil {
		return
	}
	if _, err := q.db.Exec("UPDATE jobs SET result = ? WHERE id = ?", string(job.Result), job.ID); err != nil {
		q.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to store result")
	}
}

func (q *JobQueue) completeJob(job *Job) {
	now := time.Now().UTC()
	q.storeResult(job)
	if _, err := q.db.Exec("UPDATE jobs SET status = ?, progress = 1.0, completed_at = ? WHERE id = ? AND status = ?",
		StatusCompleted, now, job.ID, StatusRunning); err != nil {
		q.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to complete job")
		return
	}
	q.logger.Info().Str("job_id", job.ID).Msg("job completed")
}

func (q *JobQueue) failJob(job *Job, errMsg string) {
	now := time.Now().UTC()
	q.storeResult(job)
	if _, err := q.db.Exec("UPDATE jobs SET status = ?, error = ?, completed_at = ? WHERE id = ? AND status = ?",
		StatusFailed, errMsg, now, job.ID, StatusRunning); err != nil {
		q.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to fail job")
		return
	}
	q.logger.Warn().Str("job_id", job.ID).Str("error", errMsg).Msg("job failed")
}

// resumeJobs re-queues any pending jobs found in DB on startup
func (q *JobQueue) resumeJobs() {
	// a job marked running belongs to a process that is gone
	if _, err := q.db.Exec("UPDATE jobs SET status = ? WHERE status = ?", StatusPending, StatusRunning); err != nil {
		q.logger.Error().Err(err).Msg("failed to reset running jobs")
	}

	rows, err := q.db.Query("SELECT id FROM jobs WHERE status = ? ORDER BY created_at ASC", StatusPending)
	if err != nil {
		q.logger.Error().Err(err).Msg("failed to resume jobs")
		return
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		select {
		case q.pending <- id:
			count++
		default:
		}
	}

	if count > 0 {
		q.logger.Info().Int("count", count).Msg("resumed pending jobs")
	}
}
