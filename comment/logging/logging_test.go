package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TextWithoutTime(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Output: &buf})
	logger.Debug("hidden")
	logger.Info("posted", "chunks", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=posted chunks=3")
	assert.NotContains(t, out, "time=")
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(Config{Format: FormatJSON, Output: &buf, AddTime: true}).Info("hi")
	assert.Contains(t, buf.String(), `"msg":"hi"`)
	assert.Contains(t, buf.String(), `"time":`)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestOpenFile_Appends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log", "bot.log")
	for _, msg := range []string{"first", "second"} {
		logger, closer, err := OpenFile(path, slog.LevelInfo)
		require.NoError(t, err)
		logger.Info(msg)
		require.NoError(t, closer.Close())
	}

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "msg=first")
	assert.Contains(t, string(b), "msg=second")
	assert.Contains(t, string(b), "time=")
}
