package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("comment-splitter", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	require.NoError(t, err)
	assert.Equal(t, "-", cfg.InputPath)
	assert.Equal(t, "rune", cfg.Unit)
	require.NoError(t, cfg.Validate())
}

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("comment-splitter", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{"-in", "a/./b.txt", "-unit", "grapheme", "-count", "-json"})
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("a/b.txt"), cfg.InputPath)
	assert.Equal(t, "grapheme", cfg.Unit)
	assert.True(t, cfg.CountOnly)
	assert.True(t, cfg.JSON)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{InputPath: "-", Unit: "word"}.Validate())
	assert.NoError(t, Config{InputPath: "-", Unit: "grapheme"}.Validate())
}

func TestRun_LinesFromStdin(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	in := strings.NewReader(strings.Repeat("a", 200) + "\n")
	require.NoError(t, run(Config{InputPath: "-", Unit: "rune"}, in, &out))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Repeat("a", 176)+" 1/2", lines[0])
	assert.Equal(t, strings.Repeat("a", 24)+" 2/2", lines[1])
}

func TestRun_JSONFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte("short & sweet"), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(Config{InputPath: path, JSON: true}, nil, &out))

	var chunks []string
	require.NoError(t, json.Unmarshal(out.Bytes(), &chunks))
	assert.Equal(t, []string{"short & sweet"}, chunks)
}

func TestRun_CountOnly(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	in := strings.NewReader(strings.Repeat("x", 1585))
	require.NoError(t, run(Config{InputPath: "-", CountOnly: true}, in, &out))
	assert.Equal(t, "length=1585 chunks=10 unit=rune\n", out.String())
}

func TestRun_MissingFile(t *testing.T) {
	t.Parallel()

	err := run(Config{InputPath: filepath.Join(t.TempDir(), "nope.txt")}, nil, &bytes.Buffer{})
	assert.Error(t, err)
}
