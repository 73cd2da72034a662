package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanderboers48/orbat-mapper/internal/config"
)

func TestSetupWritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "orbat.log")

	log, closer, err := Setup(config.LoggingConfig{Level: "debug", File: logFile})
	require.NoError(t, err)
	defer closer()

	log.Info().Str("scenario", "demo").Msg("loaded")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario":"demo"`)
	assert.Contains(t, string(data), "loaded")
}

func TestSetupLevelFiltersFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "orbat.log")

	log, closer, err := Setup(config.LoggingConfig{Level: "warn", File: logFile})
	require.NoError(t, err)
	defer closer()

	log.Info().Msg("chatter")
	log.Warn().Msg("something is off")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "chatter")
	assert.Contains(t, string(data), "something is off")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"info", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}
