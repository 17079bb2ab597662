package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/db/models"
	"github.com/video-stream/subtrans/internal/job"
	"github.com/video-stream/subtrans/internal/subtitle"
	"github.com/video-stream/subtrans/internal/subtitle/translate"
)

const sampleSRT = "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld\n"

type recordReporter struct {
	mu       sync.Mutex
	progress []float64
	messages []string
}

func (r *recordReporter) Progress(p float64) {
	r.mu.Lock()
	r.progress = append(r.progress, p)
	r.mu.Unlock()
}

func (r *recordReporter) Message(msg string) {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
}

type staticSettings struct{ s config.TranslationSettings }

func (s staticSettings) TranslationSettings(config.TranslationSettings) (config.TranslationSettings, error) {
	return s.s, nil
}

type presetMap map[int64]string

func (m presetMap) GetTranslationPreset(id int64) (*models.TranslationPreset, error) {
	p, ok := m[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &models.TranslationPreset{ID: id, Prompt: p}, nil
}

type promptProvider struct {
	prompts []string
}

func (p *promptProvider) Name() string { return "gemini" }

func (p *promptProvider) Submit(_ context.Context, req translate.Request) (string, error) {
	p.prompts = append(p.prompts, req.Prompt)
	return "T:" + req.Text, nil
}

func newJob(t *testing.T, params job.TranslateParams) *job.Job {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return &job.Job{ID: "j1", Type: job.JobTranslate, Params: raw}
}

func TestHandleJobWritesArtifacts(t *testing.T) {
	out := t.TempDir()
	provider := &promptProvider{}
	svc := New(fakeSource{"gemini": provider}, nil, WithSleeper((&sleeps{}).sleep))
	runner := NewJobRunner(svc, staticSettings{testSettings()}, presetMap{5: "Custom {LANG}: <{TEXT}>"}, out, nil)

	j := newJob(t, job.TranslateParams{
		Files:    []job.SourceFile{{Name: "a.srt", Content: sampleSRT}, {Name: "b.srt", Content: sampleSRT}},
		Language: "fa",
		Provider: "gemini",
		Fallback: []job.Target{},
		Preset:   "5",
	})
	rep := &recordReporter{}
	require.NoError(t, runner.HandleJob(context.Background(), j, rep))

	data, err := os.ReadFile(filepath.Join(out, "fa", "translated_a.srt"))
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nT:Hello\n\n2\n00:00:03,000 --> 00:00:04,000\nT:World\n\n", string(data))
	assert.FileExists(t, filepath.Join(out, "fa", "translated_b.srt"))

	var res job.TranslateResult
	require.NoError(t, json.Unmarshal(j.Result, &res))
	require.Len(t, res.Files, 2)
	assert.Equal(t, "fa/translated_a.srt", res.Files[0].OutputPath)
	assert.Equal(t, 2, res.Files[1].Cues)

	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1}, rep.progress)
	assert.Equal(t, statusDone, rep.messages[len(rep.messages)-1])
	assert.Equal(t, "Custom Persian: <Hello>", provider.prompts[0])
}

func TestHandleJobRejectsBadInput(t *testing.T) {
	svc := New(fakeSource{}, nil)
	runner := NewJobRunner(svc, nil, nil, t.TempDir(), nil)

	err := runner.HandleJob(context.Background(), newJob(t, job.TranslateParams{Language: "fa", Provider: "gemini"}), &recordReporter{})
	assert.Error(t, err)

	err = runner.HandleJob(context.Background(), newJob(t, job.TranslateParams{
		Files:    []job.SourceFile{{Name: "a.srt", Content: "not a subtitle"}},
		Language: "fa",
		Provider: "gemini",
	}), &recordReporter{})
	assert.Error(t, err)

	err = runner.HandleJob(context.Background(), newJob(t, job.TranslateParams{
		Files:    []job.SourceFile{{Name: "a.srt", Content: sampleSRT}},
		Language: "fa",
		Provider: "gemini",
		Preset:   "nope",
	}), &recordReporter{})
	assert.ErrorContains(t, err, "unknown preset")
}

func TestResolveTemplate(t *testing.T) {
	tmpl, err := ResolveTemplate(nil, "", "base")
	require.NoError(t, err)
	assert.Equal(t, "base", tmpl)

	tmpl, err = ResolveTemplate(nil, "Anime", "base")
	require.NoError(t, err)
	assert.Equal(t, translate.Presets["anime"], tmpl)

	_, err = ResolveTemplate(presetMap{}, "9", "base")
	assert.Error(t, err)
}

func TestBuildRequestFallback(t *testing.T) {
	params := job.TranslateParams{
		Files:    []job.SourceFile{{Name: "a.vtt", Content: "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHi\n"}},
		Language: "fa",
		Provider: "gemini",
	}
	req, skipped, err := BuildRequest(params, testSettings())
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Nil(t, req.Fallback)
	require.Len(t, req.Files, 1)
	assert.Equal(t, "00:00:01,000", req.Files[0].Cues[0].Timecode.Start)

	params.Fallback = []job.Target{{Provider: "deepseek", Model: "deepseek-chat"}}
	req, _, err = BuildRequest(params, testSettings())
	require.NoError(t, err)
	assert.Equal(t, []Target{{Provider: "deepseek", Model: "deepseek-chat"}}, req.Fallback)
}

func TestBuildRequestSkipsUnparseableFiles(t *testing.T) {
	params := job.TranslateParams{
		Files: []job.SourceFile{
			{Name: "good.srt", Content: sampleSRT},
			{Name: "bad.srt", Content: "not a subtitle"},
		},
		Language: "fa",
		Provider: "gemini",
	}
	req, skipped, err := BuildRequest(params, testSettings())
	require.NoError(t, err)
	require.Len(t, req.Files, 1)
	assert.Equal(t, "good.srt", req.Files[0].Name)
	require.Len(t, skipped, 1)
	assert.Equal(t, "bad.srt", skipped[0].Name)
	assert.NotEmpty(t, skipped[0].Error)

	params.Files = params.Files[1:]
	_, skipped, err = BuildRequest(params, testSettings())
	assert.ErrorIs(t, err, subtitle.ErrNoUsableFiles)
	assert.Len(t, skipped, 1)
}

func TestHandleJobContinuesPastBadFile(t *testing.T) {
	out := t.TempDir()
	svc := New(fakeSource{"gemini": &promptProvider{}}, nil, WithSleeper((&sleeps{}).sleep))
	runner := NewJobRunner(svc, staticSettings{testSettings()}, nil, out, nil)

	j := newJob(t, job.TranslateParams{
		Files: []job.SourceFile{
			{Name: "bad.srt", Content: "not a subtitle"},
			{Name: "good.srt", Content: sampleSRT},
		},
		Language: "fa",
		Provider: "gemini",
		Fallback: []job.Target{},
	})
	rep := &recordReporter{}
	require.NoError(t, runner.HandleJob(context.Background(), j, rep))

	assert.FileExists(t, filepath.Join(out, "fa", "translated_good.srt"))
	assert.NoFileExists(t, filepath.Join(out, "fa", "translated_bad.srt"))

	var res job.TranslateResult
	require.NoError(t, json.Unmarshal(j.Result, &res))
	require.Len(t, res.Files, 1)
	assert.Equal(t, "good.srt", res.Files[0].Name)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "bad.srt", res.Skipped[0].Name)
	assert.Contains(t, rep.messages[0], "skipped bad.srt")
}
