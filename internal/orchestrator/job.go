package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/db/models"
	"github.com/video-stream/subtrans/internal/job"
	"github.com/video-stream/subtrans/internal/retry"
	"github.com/video-stream/subtrans/internal/storage"
	"github.com/video-stream/subtrans/internal/subtitle"
	"github.com/video-stream/subtrans/internal/subtitle/translate"
)

// SettingsSource supplies the current translation settings.
type SettingsSource interface {
	TranslationSettings(defaults config.TranslationSettings) (config.TranslationSettings, error)
}

// PresetSource looks up saved prompt presets.
type PresetSource interface {
	GetTranslationPreset(id int64) (*models.TranslationPreset, error)
}

// JobRunner executes queued translate jobs and writes their artifacts.
type JobRunner struct {
	svc        *Service
	settings   SettingsSource
	presets    PresetSource
	outputPath string
	observer   retry.Observer
}

// NewJobRunner wires a runner. observer receives every batch event, in
// addition to the job's own progress reporting, and may be nil.
func NewJobRunner(svc *Service, settings SettingsSource, presets PresetSource, outputPath string, observer retry.Observer) *JobRunner {
	return &JobRunner{svc: svc, settings: settings, presets: presets, outputPath: outputPath, observer: observer}
}

// ResolveTemplate picks the prompt template for preset: a built-in preset
// name, a saved preset id, or the settings template when preset is empty.
func ResolveTemplate(presets PresetSource, preset, fallback string) (string, error) {
	preset = strings.TrimSpace(preset)
	if preset == "" {
		return fallback, nil
	}
	if tmpl := translate.PresetTemplate(preset); tmpl != "" {
		return tmpl, nil
	}
	id, err := strconv.ParseInt(preset, 10, 64)
	if err != nil || presets == nil {
		return "", fmt.Errorf("unknown preset %q", preset)
	}
	p, err := presets.GetTranslationPreset(id)
	if err != nil {
		return "", fmt.Errorf("preset %d: %w", id, err)
	}
	return p.Prompt, nil
}

// BuildRequest turns job parameters into an orchestrator request. Files that
// fail to parse are left out and returned as skipped; it is an error only
// when no file parses.
func BuildRequest(params job.TranslateParams, settings config.TranslationSettings) (Request, []job.SkippedFile, error) {
	req := Request{
		Language: params.Language,
		Primary:  Target{Provider: params.Provider, Model: params.Model},
		Settings: settings,
	}
	if params.Fallback != nil {
		req.Fallback = make([]Target, 0, len(params.Fallback))
		for _, t := range params.Fallback {
			req.Fallback = append(req.Fallback, Target{Provider: t.Provider, Model: t.Model})
		}
	}

	var skipped []job.SkippedFile
	for _, f := range params.Files {
		doc, err := subtitle.ParseFile(f.Name, f.Content)
		if err != nil {
			skipped = append(skipped, job.SkippedFile{Name: f.Name, Error: err.Error()})
			continue
		}
		req.Files = append(req.Files, FileInput{Name: f.Name, Format: doc.Format, Cues: doc.Cues, Styles: doc.Styles})
	}
	if len(req.Files) == 0 {
		return req, skipped, fmt.Errorf("%w: %d file(s) rejected", subtitle.ErrNoUsableFiles, len(skipped))
	}
	return req, skipped, nil
}

// HandleJob processes a translation job
func (r *JobRunner) HandleJob(ctx context.Context, j *job.Job, report job.Reporter) error {
	started := time.Now()

	var params job.TranslateParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}
	if err := config.Struct(params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}

	defaults := config.DefaultTranslationSettings(translate.DefaultPromptTemplate)
	settings := defaults
	if r.settings != nil {
		s, err := r.settings.TranslationSettings(defaults)
		if err != nil {
			return err
		}
		settings = s
	}
	tmpl, err := ResolveTemplate(r.presets, params.Preset, settings.PromptTemplate)
	if err != nil {
		return err
	}
	settings.PromptTemplate = tmpl

	req, skipped, err := BuildRequest(params, settings)
	for _, sf := range skipped {
		r.svc.logger.Warn().Str("file", sf.Name).Str("error", sf.Error).Msg("skipping unparseable file")
		report.Message(fmt.Sprintf("skipped %s: %s", sf.Name, sf.Error))
	}
	if err != nil {
		j.Result, _ = json.Marshal(job.TranslateResult{Files: []job.TranslatedFile{}, Skipped: skipped})
		return err
	}

	observer := func(e retry.Event) {
		if r.observer != nil {
			r.observer(e)
		}
		switch ev := e.(type) {
		case StatusChanged:
			report.Message(ev.Status)
		case CueTranslated:
			if ev.FileCount > 0 && ev.Total > 0 {
				report.Progress((float64(ev.FileIndex) + float64(ev.Translated)/float64(ev.Total)) / float64(ev.FileCount))
			}
		}
	}

	batch, runErr := r.svc.Run(ctx, req, observer)

	result := job.TranslateResult{Files: []job.TranslatedFile{}, Skipped: skipped}
	if batch != nil {
		for _, f := range batch.Completed() {
			rel := path.Join(params.Language, storage.ArtifactName(f.Name))
			if _, err := storage.WriteArtifact(r.outputPath, rel, f.Output); err != nil {
				return fmt.Errorf("save %s: %w", rel, err)
			}
			result.Files = append(result.Files, job.TranslatedFile{Name: f.Name, OutputPath: rel, Cues: len(f.TranslatedCues)})
		}
	}
	result.Duration = time.Since(started).Seconds()
	j.Result, _ = json.Marshal(result)

	return runErr
}
