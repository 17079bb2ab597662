package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/video-stream/subtrans/internal/orchestrator"
	"github.com/video-stream/subtrans/internal/subtitle"
)

func TestParseTargets(t *testing.T) {
	assert.Nil(t, parseTargets(nil, false))
	assert.Equal(t, []orchestrator.Target{}, parseTargets([]string{"none"}, true))
	assert.Equal(t, []orchestrator.Target{
		{Provider: "deepseek", Model: "deepseek-chat"},
		{Provider: "huggingface"},
	}, parseTargets([]string{"deepseek:deepseek-chat", " huggingface "}, true))
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Lang", "Cues"}, [][]string{{"fa", "12"}, {"de"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "LANG")
	assert.Contains(t, out, "12")
	assert.Len(t, strings.Split(out, "\n"), 6)
	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestLoadInputsSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.srt")
	bad := filepath.Join(dir, "bad.srt")
	require.NoError(t, os.WriteFile(good, []byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("not a subtitle"), 0o644))

	var warn bytes.Buffer
	inputs, err := loadInputs([]string{dir}, &warn)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, good, inputs[0].Name)
	assert.Len(t, inputs[0].Cues, 1)
	assert.Contains(t, warn.String(), "skipping "+bad)

	warn.Reset()
	_, err = loadInputs([]string{bad}, &warn)
	assert.ErrorIs(t, err, subtitle.ErrNoUsableFiles)
	assert.Contains(t, warn.String(), "skipping "+bad)
}
