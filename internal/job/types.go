package job

import (
	"context"
	"encoding/json"
	"time"
)

// JobType represents the kind of job
type JobType string

const (
	JobTranslate JobType = "translate"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job represents a queued translation batch
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Label       string          `json:"label"`
	Params      json.RawMessage `json:"params"`
	Progress    float64         `json:"progress"`
	Message     string          `json:"message,omitempty"` // latest status line
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// SourceFile is one uploaded subtitle file
type SourceFile struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// Target names a provider and optional model
type Target struct {
	Provider string `json:"provider" validate:"required,oneof=gemini deepseek huggingface openrouter openai deepl"`
	Model    string `json:"model,omitempty"`
}

// TranslateParams are parameters for a translation job
type TranslateParams struct {
	Files    []SourceFile `json:"files" validate:"required,min=1,dive"`
	Language string       `json:"language" validate:"required"`
	Provider string       `json:"provider" validate:"required,oneof=gemini deepseek huggingface openrouter openai deepl"`
	Model    string       `json:"model,omitempty"`
	// Fallback nil means the default chain; an empty list disables fallback.
	Fallback []Target `json:"fallback" validate:"omitempty,dive"`
	Preset   string   `json:"preset,omitempty"` // built-in preset name or saved preset id
}

// TranslatedFile is one finished artifact
type TranslatedFile struct {
	Name       string `json:"name"`
	OutputPath string `json:"output_path"`
	Cues       int    `json:"cues"`
}

// SkippedFile is an input that could not be loaded and was left out of the batch.
type SkippedFile struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// TranslateResult is the output of a translation job. Files lists what
// completed even when the job failed part way.
type TranslateResult struct {
	Files    []TranslatedFile `json:"files"`
	Skipped  []SkippedFile    `json:"skipped,omitempty"`
	Duration float64          `json:"duration"` // seconds
}

// Reporter lets a handler publish progress (0..1) and a status line.
type Reporter interface {
	Progress(p float64)
	Message(msg string)
}

// JobHandler processes a job.
type JobHandler func(ctx context.Context, job *Job, report Reporter) error
