package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/subtrans/internal/job"
	"github.com/video-stream/subtrans/internal/subtitle"
)

type JobHandler struct {
	queue *job.JobQueue
}

func NewJobHandler(queue *job.JobQueue) *JobHandler {
	return &JobHandler{queue: queue}
}

var listableStatuses = map[job.JobStatus]bool{
	"":                  true,
	job.StatusPending:   true,
	job.StatusRunning:   true,
	job.StatusCompleted: true,
	job.StatusFailed:    true,
	job.StatusCancelled: true,
}

// CreateTranslation parses every uploaded file up front so a bad file is
// reported before the batch is queued.
func (h *JobHandler) CreateTranslation(w http.ResponseWriter, r *http.Request) {
	var params job.TranslateParams
	if !decodeJSON(w, r, &params) {
		return
	}

	var (
		good     []job.SourceFile
		rejected []job.SkippedFile
	)
	for _, f := range params.Files {
		if _, err := subtitle.ParseFile(f.Name, f.Content); err != nil {
			rejected = append(rejected, job.SkippedFile{Name: f.Name, Error: err.Error()})
			continue
		}
		good = append(good, f)
	}
	if len(good) == 0 {
		jsonResponse(w, createTranslationError{Error: subtitle.ErrNoUsableFiles.Error(), Rejected: rejected}, http.StatusUnprocessableEntity)
		return
	}
	params.Files = good

	names := make([]string, 0, len(good))
	for _, f := range good {
		names = append(names, f.Name)
	}
	j, err := h.queue.Enqueue(job.JobTranslate, strings.Join(names, ", "), params)
	if err != nil {
		jsonError(w, "failed to queue translation: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, createTranslationResponse{Job: j, Rejected: rejected}, http.StatusAccepted)
}

// createTranslationResponse is the queued job plus any files left out of it.
type createTranslationResponse struct {
	*job.Job
	Rejected []job.SkippedFile `json:"rejected,omitempty"`
}

type createTranslationError struct {
	Error    string            `json:"error"`
	Rejected []job.SkippedFile `json:"rejected"`
}

// ListJobs returns jobs newest first; ?status= narrows the list.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	status := job.JobStatus(r.URL.Query().Get("status"))
	if !listableStatuses[status] {
		jsonError(w, "unknown status "+string(status), http.StatusBadRequest)
		return
	}
	jobs, err := h.queue.ListJobs(status)
	if err != nil {
		jsonError(w, "failed to list jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, jobs, http.StatusOK)
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.queue.GetJob(chi.URLParam(r, "id"))
	if err != nil {
		jobError(w, err, "failed to load job")
		return
	}
	jsonResponse(w, j, http.StatusOK)
}

// CancelJob stops a running batch or drops a pending one.
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.CancelJob(chi.URLParam(r, "id")); err != nil {
		jobError(w, err, "failed to cancel job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetryJob re-queues a failed or cancelled batch from its first cue.
func (h *JobHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.RetryJob(chi.URLParam(r, "id")); err != nil {
		jobError(w, err, "failed to retry job")
		return
	}
	jsonResponse(w, map[string]string{"status": "retrying"}, http.StatusOK)
}

func jobError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, job.ErrNotFound):
		jsonError(w, "job not found", http.StatusNotFound)
	case errors.Is(err, job.ErrNotRetryable):
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		jsonError(w, msg+": "+err.Error(), http.StatusInternalServerError)
	}
}
