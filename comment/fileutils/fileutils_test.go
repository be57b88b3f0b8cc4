package fileutils

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONFileAtomic_RoundTripsThroughReadJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db", "bot.db")
	in := map[string][]string{"seen": {"a", "b"}}
	require.NoError(t, WriteJSONFileAtomic(path, in, true))
	assert.True(t, FileExists(path))

	var out map[string][]string
	require.NoError(t, ReadJSONFile(path, &out))
	assert.Equal(t, in, out)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestWriteFileAtomic_ReplacesExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, WriteFileAtomic(path, []byte("old"), 0o600))
	require.NoError(t, WriteFileAtomic(path, []byte("new"), 0o600))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())
}

func TestReadJSONFile_Missing(t *testing.T) {
	t.Parallel()

	var v map[string]any
	err := ReadJSONFile(filepath.Join(t.TempDir(), "nope.json"), &v)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", Truncate("  abc  ", 5))
	assert.Equal(t, "ab…", Truncate("abcdef", 2))
	assert.Equal(t, "日本…", Truncate("日本語", 2))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}

func TestDecodeModelJSON(t *testing.T) {
	t.Parallel()

	var out struct {
		Comment string `json:"comment"`
	}
	require.NoError(t, DecodeModelJSON(`{"comment":"hi"}`, &out))
	assert.Equal(t, "hi", out.Comment)

	require.NoError(t, DecodeModelJSON("Sure!\n```json\n{\"comment\":\"wrapped\"}\n```", &out))
	assert.Equal(t, "wrapped", out.Comment)

	assert.ErrorIs(t, DecodeModelJSON("   ", &out), io.ErrUnexpectedEOF)
	assert.Error(t, DecodeModelJSON("no json here", &out))
}
