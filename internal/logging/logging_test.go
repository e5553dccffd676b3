package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/skillswap/internal/config"
	"github.com/omarluq/skillswap/internal/logging"
)

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	logger, closer, err := logging.New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	defer closer.Close()

	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Info().Msg("test message")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test message", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	logger, closer, err := logging.New(config.LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	defer closer.Close()

	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestNew_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "skillswap.log")
	logger, closer, err := logging.New(config.LoggingConfig{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Debug().Str("key", "profile").Msg("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), `"key":"profile"`)
}

func TestNew_FileOutputError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "dir", "skillswap.log")
	_, _, err := logging.New(config.LoggingConfig{Output: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging: open")
}

func TestNew_PrettyFileOutputHasNoColor(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pretty.log")
	logger, closer, err := logging.New(config.LoggingConfig{Level: "info", Format: "pretty", Output: path})
	require.NoError(t, err)

	logger.Info().Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "-> hello")
	assert.False(t, strings.Contains(out, "{\""), "pretty output must not be JSON")
}

func TestWithOperation(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := logging.WithOperation(context.Background(), &base, "op-1")
	zerolog.Ctx(ctx).Info().Msg("tagged")
	assert.Contains(t, buf.String(), `"op_id":"op-1"`)

	buf.Reset()
	ctx = logging.WithOperation(context.Background(), &base, "")
	zerolog.Ctx(ctx).Info().Msg("generated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Len(t, entry["op_id"], 36)
}

func TestComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := zerolog.New(&buf)

	logging.Component(&base, "cache").Info().Msg("x")
	assert.Contains(t, buf.String(), `"component":"cache"`)
}
