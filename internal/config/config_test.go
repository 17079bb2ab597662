package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTemplate = "Translate to {LANG}: <{TEXT}>"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_PATH", "/srv/data")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, filepath.Join("/srv/data", "subtrans.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join("/srv/data", "subtitles"), cfg.SubtitlePath)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Len(t, cfg.JWTSecret, 64)
	assert.Equal(t, 60*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, filepath.Join("/srv/data", "translate.lock"), cfg.LockPath())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PROVIDER_TIMEOUT", "15s")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 15*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}

func TestDefaultTranslationSettings(t *testing.T) {
	s := DefaultTranslationSettings(testTemplate)
	require.NoError(t, s.Validate())
	assert.Equal(t, 4*time.Second, s.Delay())
	assert.Equal(t, 2*time.Second, s.InitialDelay())
	assert.Equal(t, 30*time.Second, s.MaxDelay())
	assert.Equal(t, 3, s.RetryAttempts)
	assert.Equal(t, "---", s.Separator)
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TranslationSettings)
	}{
		{"zero attempts", func(s *TranslationSettings) { s.RetryAttempts = 0 }},
		{"negative delay", func(s *TranslationSettings) { s.DelayMs = -1 }},
		{"max below initial", func(s *TranslationSettings) { s.MaxDelayMs = 100 }},
		{"no text placeholder", func(s *TranslationSettings) { s.PromptTemplate = "Translate" }},
		{"empty separator", func(s *TranslationSettings) { s.Separator = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultTranslationSettings(testTemplate)
			tt.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("delay_ms = 500\nretry_attempts = 5\ntone = \"casual\"\n"), 0o644))

	s, err := LoadSettingsFile(path, DefaultTranslationSettings(testTemplate))
	require.NoError(t, err)
	assert.Equal(t, 500, s.DelayMs)
	assert.Equal(t, 5, s.RetryAttempts)
	assert.Equal(t, "casual", s.Tone)
	assert.Equal(t, 2000, s.InitialDelayMs)
	assert.Equal(t, testTemplate, s.PromptTemplate)
}

func TestLoadSettingsFileErrors(t *testing.T) {
	dir := t.TempDir()
	base := DefaultTranslationSettings(testTemplate)

	_, err := LoadSettingsFile(filepath.Join(dir, "missing.toml"), base)
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("speed = 3\n"), 0o644))
	_, err = LoadSettingsFile(unknown, base)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.toml")
	require.NoError(t, os.WriteFile(invalid, []byte("retry_attempts = 0\n"), 0o644))
	_, err = LoadSettingsFile(invalid, base)
	assert.ErrorContains(t, err, "RetryAttempts")
}
