package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		level  zerolog.Level
	}{
		{"json to stdout", Config{Level: "info", Format: "json", Output: "stdout"}, zerolog.InfoLevel},
		{"console to stderr", Config{Level: "debug", Format: "console", Output: "stderr"}, zerolog.DebugLevel},
		{"invalid level defaults to info", Config{Level: "loud", Output: "stdout"}, zerolog.InfoLevel},
		{"empty config", Config{}, zerolog.InfoLevel},
	}

	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, closer, err := NewLogger(tt.config)
			require.NoError(t, err)
			defer closer.Close()
			assert.Equal(t, tt.level, logger.GetLevel())
		})
	}
}

func TestNewLoggerFileOutputWithComponent(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	path := filepath.Join(t.TempDir(), "app.log")
	_, closer, err := NewLogger(Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger := Component("retry")
	logger.Info().Int("attempt", 2).Msg("retry scheduled")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "retry", entry["component"])
	assert.Equal(t, "retry scheduled", entry["message"])
	assert.EqualValues(t, 2, entry["attempt"])
}

func TestNewLoggerBadPath(t *testing.T) {
	_, _, err := NewLogger(Config{Output: filepath.Join(t.TempDir(), "missing", "app.log")})
	assert.Error(t, err)
}
