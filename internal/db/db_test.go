package db

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/video-stream/subtrans/internal/auth"
	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/history"
	"github.com/video-stream/subtrans/internal/subtitle"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMigrationsReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, d.SetSetting("k", "v"))
	require.NoError(t, d.Close())

	d, err = NewSQLite(path)
	require.NoError(t, err)
	defer d.Close()
	version, err := d.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)
	assert.Equal(t, "v", d.GetSetting("k", ""))
}

func TestEnsureAdmin(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.EnsureAdmin("admin", "pw"))
	require.NoError(t, d.EnsureAdmin("other", "pw2"))

	u, err := d.GetUserByUsername("admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)
	assert.True(t, auth.CheckPassword("pw", u.Password))

	_, err = d.GetUserByUsername("other")
	assert.ErrorIs(t, err, ErrNotFound)

	byID, err := d.GetUserByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", byID.Username)
}

func TestAPIKeys(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.SetAPIKey("gemini", "g-key"))
	require.NoError(t, d.SetAPIKey("deepseek", "d-key"))
	require.NoError(t, d.SetAPIKey("deepseek", ""))

	keys := d.APIKeys([]string{"gemini", "deepseek", "openai"})
	assert.Equal(t, map[string]string{"gemini": "g-key"}, keys)
	assert.Equal(t, "g-key", d.GetSetting("gemini_api_key", ""))
}

func TestTranslationSettings(t *testing.T) {
	d := newTestDB(t)
	defaults := config.DefaultTranslationSettings("Translate to {LANG}: <{TEXT}>")

	got, err := d.TranslationSettings(defaults)
	require.NoError(t, err)
	assert.Equal(t, defaults, got)

	changed := defaults
	changed.DelayMs = 500
	changed.Tone = "casual"
	require.NoError(t, d.SaveTranslationSettings(changed))

	got, err = d.TranslationSettings(defaults)
	require.NoError(t, err)
	assert.Equal(t, changed, got)

	bad := defaults
	bad.RetryAttempts = 0
	assert.Error(t, d.SaveTranslationSettings(bad))
}

func TestPresets(t *testing.T) {
	d := newTestDB(t)
	list, err := d.ListTranslationPresets()
	require.NoError(t, err)
	assert.Empty(t, list)

	id, err := d.CreateTranslationPreset("short", "Be brief: <{TEXT}>")
	require.NoError(t, err)
	require.NoError(t, d.UpdateTranslationPreset(id, "shorter", "Brief: <{TEXT}>"))

	p, err := d.GetTranslationPreset(id)
	require.NoError(t, err)
	assert.Equal(t, "shorter", p.Name)
	assert.Equal(t, "Brief: <{TEXT}>", p.Prompt)

	assert.ErrorIs(t, d.UpdateTranslationPreset(id+1, "x", "y"), ErrNotFound)
	require.NoError(t, d.DeleteTranslationPreset(id))
	_, err = d.GetTranslationPreset(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryPersistence(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	store, err := history.NewStore(ctx, d)
	require.NoError(t, err)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cues := []subtitle.Cue{{Index: "1", Timecode: subtitle.Timecode{Start: "00:00:01,000", End: "00:00:02,000"}, Text: "سلام"}}
	for _, name := range []string{"a.srt", "b.srt"} {
		_, err := store.Append(ctx, history.Entry{
			Timestamp:      ts,
			Language:       "fa",
			SourceFileName: name,
			FileType:       subtitle.FormatSRT,
			SourceCues:     cues,
			TranslatedCues: cues,
			RenderedOutput: subtitle.Render(cues),
		})
		require.NoError(t, err)
	}

	reloaded, err := history.NewStore(ctx, d)
	require.NoError(t, err)
	entries := reloaded.List(history.Query{})
	require.Len(t, entries, 2)
	assert.Equal(t, "a.srt", entries[0].SourceFileName)
	assert.Equal(t, "b.srt", entries[1].SourceFileName)
	assert.Equal(t, cues, entries[1].TranslatedCues)
	assert.True(t, ts.Equal(entries[0].Timestamp))
}

func TestHistorySharedBetweenProcesses(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")
	serverDB, err := NewSQLite(path)
	require.NoError(t, err)
	defer serverDB.Close()
	cliDB, err := NewSQLite(path)
	require.NoError(t, err)
	defer cliDB.Close()

	server, err := history.NewStore(ctx, serverDB)
	require.NoError(t, err)
	cli, err := history.NewStore(ctx, cliDB)
	require.NoError(t, err)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := func(name string, at time.Time) history.Entry {
		return history.Entry{Timestamp: at, Language: "fa", SourceFileName: name, FileType: subtitle.FormatSRT}
	}
	_, err = server.Append(ctx, entry("server.srt", ts))
	require.NoError(t, err)
	_, err = cli.Append(ctx, entry("cli.srt", ts.Add(time.Minute)))
	require.NoError(t, err)

	persisted, err := serverDB.LoadHistory(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.Equal(t, "server.srt", persisted[0].SourceFileName)
	assert.Equal(t, "cli.srt", persisted[1].SourceFileName)

	require.NoError(t, server.Reload(ctx))
	assert.Equal(t, 2, server.Len())
}

func TestAppendHistoryEvictsOldestRows(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var kept []history.Entry
	for i := 0; i < 15; i++ {
		var err error
		kept, err = d.AppendHistory(ctx, history.Entry{
			ID:             fmt.Sprintf("e%02d", i),
			Timestamp:      ts.Add(time.Duration(i) * time.Minute),
			Language:       "fa",
			SourceFileName: fmt.Sprintf("f%02d.srt", i),
		}, history.MaxEntries)
		require.NoError(t, err)
	}
	require.Len(t, kept, history.MaxEntries)
	assert.Equal(t, "e05", kept[0].ID)
	assert.Equal(t, "e14", kept[9].ID)

	require.ErrorIs(t, d.UpdateHistory(ctx, history.Entry{ID: "e00"}), history.ErrNotFound)
	require.NoError(t, d.UpdateHistory(ctx, history.Entry{ID: "e14", SourceFileName: "renamed.srt"}))
	loaded, err := d.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, "renamed.srt", loaded[9].SourceFileName)
}
