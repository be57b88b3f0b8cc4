package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theimaginaryfoundation/comment-o-bot/comment"
)

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("comment-bot", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	require.NoError(t, err)
	assert.Equal(t, "ImgurBot", cfg.Name)
	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, ".env", cfg.EnvFile)
	assert.False(t, cfg.DryRun)
	require.NoError(t, cfg.Validate())
}

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("comment-bot", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-root", "bots/",
		"-name", "Other",
		"-items", "x/../items.json",
		"-section", "top",
		"-page", "2",
		"-model", "gpt-x",
		"-unit", "grapheme",
		"-dry-run",
		"-reset-seen",
		"-verbose",
	})
	require.NoError(t, err)
	assert.Equal(t, "bots", cfg.Root)
	assert.Equal(t, "Other", cfg.Name)
	assert.Equal(t, "items.json", cfg.ItemsPath)
	assert.Equal(t, "top", cfg.Section)
	assert.Equal(t, 2, cfg.Page)
	assert.Equal(t, "gpt-x", cfg.Model)
	assert.Equal(t, "grapheme", cfg.Unit)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.ResetSeen)
	assert.True(t, cfg.Verbose)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	good := defaultConfig()
	require.NoError(t, good.Validate())

	bad := good
	bad.Name = ""
	assert.Error(t, bad.Validate())

	bad = good
	bad.Page = -1
	assert.Error(t, bad.Validate())

	bad = good
	bad.Section = "hot/../../x"
	assert.Error(t, bad.Validate())

	bad = good
	bad.Unit = "word"
	assert.Error(t, bad.Validate())
}

func TestRun_DryRunWithItems(t *testing.T) {
	root := t.TempDir()
	itemsPath := filepath.Join(root, "items.json")
	items := []comment.Item{
		{ID: "a", Comment: strings.Repeat("z", 400)},
		{ID: "b", Comment: "short"},
	}
	b, err := json.Marshal(items)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(itemsPath, b, 0o644))

	cfg := defaultConfig()
	cfg.Root = root
	cfg.Name = "TestBot"
	cfg.ItemsPath = itemsPath
	cfg.EnvFile = ""
	cfg.DryRun = true

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out))
	assert.Equal(t, "items=2 posted=2 chunks=4 seen=0 skipped=0 dry_run=true\n", out.String())

	for _, p := range []string{"log/TestBot.log", "db", "ini"} {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(p)))
		assert.NoError(t, err, p)
	}
	logData, err := os.ReadFile(filepath.Join(root, "log", "TestBot.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "run_id=")
	assert.Contains(t, string(logData), "dry run chunk")
}

func TestRun_MissingConfigFailsWhenPosting(t *testing.T) {
	cfg := defaultConfig()
	cfg.Root = t.TempDir()
	cfg.EnvFile = ""

	err := run(context.Background(), cfg, &bytes.Buffer{})
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
