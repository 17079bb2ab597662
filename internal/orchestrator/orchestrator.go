package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/history"
	"github.com/video-stream/subtrans/internal/logging"
	"github.com/video-stream/subtrans/internal/retry"
	"github.com/video-stream/subtrans/internal/subtitle"
	"github.com/video-stream/subtrans/internal/subtitle/translate"
)

// ErrAborted is matched by every *AbortError.
var ErrAborted = errors.New("translation aborted")

// AbortError stops the whole batch: a cue failed on every provider, or the
// run was cancelled.
type AbortError struct {
	File string
	Cue  string
	Err  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("translation stopped at %s cue %s: %v", e.File, e.Cue, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

func (e *AbortError) Is(target error) bool { return target == ErrAborted }

// ProviderSource resolves provider names. *translate.Service satisfies it.
type ProviderSource interface {
	Provider(name string) (translate.Provider, error)
}

// Target is a provider plus the model to ask it for.
type Target struct {
	Provider string `json:"provider" validate:"required"`
	Model    string `json:"model,omitempty"`
}

// FileInput is one parsed subtitle file to translate.
type FileInput struct {
	Name   string
	Format subtitle.Format
	Cues   []subtitle.Cue
	Styles subtitle.StyleTable
}

// Request describes one batch run.
type Request struct {
	Files    []FileInput
	Language string
	Primary  Target
	// Fallback is tried in order once a provider is exhausted on a cue.
	// nil selects DefaultChain; an empty non-nil slice disables fallback.
	Fallback []Target
	Settings config.TranslationSettings
}

// FileJob is the per-file state of a run.
type FileJob struct {
	Name           string              `json:"name"`
	Format         subtitle.Format     `json:"format"`
	SourceCues     []subtitle.Cue      `json:"source_cues"`
	Styles         subtitle.StyleTable `json:"styles"`
	TranslatedCues []subtitle.Cue      `json:"translated_cues"`
	Progress       int                 `json:"progress"`
	Completed      bool                `json:"completed"`
	Output         string              `json:"output,omitempty"`
}

// Batch is the result of a run. Only the orchestrator writes to it while it runs.
type Batch struct {
	ID       string
	mu       sync.RWMutex
	files    []*FileJob
	status   string
	language string
}

// Status returns the last status line.
func (b *Batch) Status() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Snapshot copies the per-file state, including files still in progress.
func (b *Batch) Snapshot() []FileJob {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]FileJob, len(b.files))
	for i, f := range b.files {
		out[i] = *f
		out[i].SourceCues = append([]subtitle.Cue(nil), f.SourceCues...)
		out[i].TranslatedCues = append([]subtitle.Cue(nil), f.TranslatedCues...)
	}
	return out
}

// Completed returns the files that finished translating.
func (b *Batch) Completed() []FileJob {
	var done []FileJob
	for _, f := range b.Snapshot() {
		if f.Completed {
			done = append(done, f)
		}
	}
	return done
}

// DefaultChain is the fallback used when a request names none:
// translate.DefaultFallback without the primary provider.
func DefaultChain(primary string) []Target {
	var chain []Target
	for _, name := range translate.DefaultFallback {
		if name != primary {
			chain = append(chain, Target{Provider: name})
		}
	}
	return chain
}

// Service runs translation batches.
type Service struct {
	providers ProviderSource
	history   *history.Store
	cooldown  retry.Cooldown
	sleep     retry.Sleeper
	now       func() time.Time
	logger    zerolog.Logger
}

// Option customizes the service.
type Option func(*Service)

// WithCooldown shares a rate-limit tracker between runs (and processes, with Redis).
func WithCooldown(cd retry.Cooldown) Option {
	return func(s *Service) { s.cooldown = cd }
}

// WithSleeper overrides both backoff and pacing sleeps (useful for tests).
func WithSleeper(sl retry.Sleeper) Option {
	return func(s *Service) { s.sleep = sl }
}

// WithClock overrides the time source used for cooldowns and history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a service. hist may be nil when no history is kept.
func New(providers ProviderSource, hist *history.Store, opts ...Option) *Service {
	s := &Service{
		providers: providers,
		history:   hist,
		cooldown:  retry.NewMemoryCooldown(),
		sleep:     retry.SleepContext,
		now:       time.Now,
		logger:    logging.Component("translate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run translates every file of req in order. The returned batch is valid
// even when err is non-nil; a failed file's partial cues are not written to
// history.
func (s *Service) Run(ctx context.Context, req Request, observer retry.Observer) (*Batch, error) {
	batch := &Batch{ID: uuid.New().String(), language: req.Language}
	for _, f := range req.Files {
		batch.files = append(batch.files, &FileJob{
			Name:       f.Name,
			Format:     f.Format,
			SourceCues: append([]subtitle.Cue(nil), f.Cues...),
			Styles:     f.Styles,
		})
	}

	if err := req.Settings.Validate(); err != nil {
		return batch, err
	}
	if req.Primary.Provider == "" {
		return batch, errors.New("primary provider required")
	}

	emit := func(e retry.Event) {
		if observer != nil {
			observer(e)
		}
	}
	setStatus := func(status string) {
		batch.mu.Lock()
		batch.status = status
		batch.mu.Unlock()
		emit(StatusChanged{Status: status})
	}

	chain := req.Fallback
	if chain == nil {
		chain = DefaultChain(req.Primary.Provider)
	}
	chain = append([]Target(nil), chain...)

	controller := retry.New(retry.Settings{
		MaxAttempts: req.Settings.RetryAttempts,
		BaseDelay:   req.Settings.InitialDelay(),
		MaxDelay:    req.Settings.MaxDelay(),
	},
		retry.WithCooldown(s.cooldown),
		retry.WithSleeper(s.sleep),
		retry.WithClock(s.now),
		retry.WithObserver(observer),
	)

	logger := s.logger.With().Str("batch_id", batch.ID).Str("language", req.Language).Logger()
	logger.Info().Int("files", len(req.Files)).Str("provider", req.Primary.Provider).Msg("translation started")

	firstCue := true
	for fi, job := range batch.files {
		setStatus(statusTranslating(fi, len(batch.files), job.Name, 0))

		for _, cue := range job.SourceCues {
			if !firstCue {
				if err := s.sleep(ctx, req.Settings.Delay()); err != nil {
					return batch, s.abort(batch, job, cue, err, setStatus, emit)
				}
			}
			firstCue = false

			current := req.Primary
			for {
				text, err := s.translateCue(ctx, controller, current, cue, req)
				if err == nil {
					translated := cue
					translated.Text = text

					batch.mu.Lock()
					job.TranslatedCues = append(job.TranslatedCues, translated)
					job.Progress = Percent(len(job.TranslatedCues), len(job.SourceCues))
					done, progress := len(job.TranslatedCues), job.Progress
					batch.mu.Unlock()

					emit(CueTranslated{
						FileIndex:  fi,
						FileCount:  len(batch.files),
						File:       job.Name,
						Cue:        translated,
						Provider:   current.Provider,
						Translated: done,
						Total:      len(job.SourceCues),
						Percent:    progress,
					})
					setStatus(statusTranslating(fi, len(batch.files), job.Name, progress))
					break
				}

				if ctx.Err() != nil || len(chain) == 0 {
					return batch, s.abort(batch, job, cue, err, setStatus, emit)
				}

				next := chain[0]
				chain = chain[1:]
				logger.Warn().Err(err).
					Str("from", current.Provider).
					Str("to", next.Provider).
					Str("file", job.Name).
					Str("cue", cue.Index).
					Msg("provider exhausted, switching")
				emit(ProviderSwitched{From: current.Provider, To: next.Provider, File: job.Name, Cue: cue.Index})
				setStatus(statusSwitching(next.Provider))
				current = next
			}
		}

		if err := s.finishFile(ctx, batch, job); err != nil {
			logger.Error().Err(err).Str("file", job.Name).Msg("failed to record history")
		}
		emit(FileCompleted{FileIndex: fi, File: job.Name, Cues: len(job.TranslatedCues)})
	}

	setStatus(statusDone)
	logger.Info().Msg("translation finished")
	return batch, nil
}

func (s *Service) translateCue(ctx context.Context, c *retry.Controller, target Target, cue subtitle.Cue, req Request) (string, error) {
	p, err := s.providers.Provider(target.Provider)
	if err != nil {
		return "", err
	}
	model := target.Model
	if model == "" {
		model = translate.DefaultModel(target.Provider)
	}
	settings := req.Settings
	return c.Do(ctx, p, translate.Request{
		Model:      model,
		Prompt:     translate.BuildPrompt(settings.PromptTemplate, req.Language, settings.Tone, cue.Text, settings.Separator, settings.NoCensor),
		Text:       cue.Text,
		TargetLang: req.Language,
		Separator:  settings.Separator,
	})
}

func (s *Service) finishFile(ctx context.Context, batch *Batch, job *FileJob) error {
	batch.mu.Lock()
	job.Completed = true
	job.Progress = 100
	job.Output = subtitle.Render(job.TranslatedCues)
	entry := history.Entry{
		Timestamp:      s.now().UTC(),
		Language:       batch.language,
		SourceFileName: job.Name,
		FileType:       job.Format,
		SourceCues:     job.SourceCues,
		TranslatedCues: job.TranslatedCues,
		Styles:         job.Styles,
		RenderedOutput: job.Output,
	}
	batch.mu.Unlock()

	if s.history == nil {
		return nil
	}
	_, err := s.history.Append(ctx, entry)
	return err
}

func (s *Service) abort(batch *Batch, job *FileJob, cue subtitle.Cue, err error, setStatus func(string), emit func(retry.Event)) error {
	s.logger.Error().Err(err).Str("batch_id", batch.ID).Str("file", job.Name).Str("cue", cue.Index).Msg("translation stopped")
	setStatus(statusStopped(job.Name))
	emit(Aborted{File: job.Name, Cue: cue.Index, Reason: err.Error()})
	return &AbortError{File: job.Name, Cue: cue.Index, Err: err}
}
