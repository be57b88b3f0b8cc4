package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/oauth2"

	"github.com/theimaginaryfoundation/comment-o-bot/comment"
	"github.com/theimaginaryfoundation/comment-o-bot/comment/config"
	"github.com/theimaginaryfoundation/comment-o-bot/comment/fileutils"
	"github.com/theimaginaryfoundation/comment-o-bot/comment/ledger"
	"github.com/theimaginaryfoundation/comment-o-bot/comment/logging"
	"github.com/theimaginaryfoundation/comment-o-bot/comment/provider"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.Root, "root", cfg.Root, "Directory holding the bot's log/, ini/ and db/ folders")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "Bot name; selects log/<name>.log, ini/<name>.yaml and db/<name>.db")
	fs.StringVar(&cfg.ItemsPath, "items", "", "JSON file with items to comment on ([{\"id\":...,\"comment\":...}]); the gallery is fetched when empty")
	fs.StringVar(&cfg.Section, "section", "", "Gallery section to scan (overrides posting.section)")
	fs.IntVar(&cfg.Page, "page", 0, "Gallery page to scan")
	fs.StringVar(&cfg.Model, "model", "", "OpenAI model used to draft comments (overrides compose.model)")
	fs.StringVar(&cfg.Unit, "unit", cfg.Unit, "What counts as one character: rune or grapheme")
	fs.StringVar(&cfg.EnvFile, "env", cfg.EnvFile, "Dotenv file with credential overrides (skipped when missing)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Log the chunks instead of posting, and do not touch the ledger")
	fs.BoolVar(&cfg.ResetSeen, "reset-seen", false, "Forget every processed item before running")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Debug logging")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/comment-bot -name ImgurBot -dry-run")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/comment-bot -items replies.json")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Root = filepath.Clean(cfg.Root)
	if cfg.ItemsPath != "" {
		cfg.ItemsPath = filepath.Clean(cfg.ItemsPath)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg Config, stdout io.Writer) error {
	ws := comment.Workspace{Root: cfg.Root, Name: cfg.Name}
	if err := ws.EnsureDirs(); err != nil {
		return err
	}
	if err := config.LoadEnv(cfg.EnvFile); err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger, logFile, err := logging.OpenFile(ws.LogPath(), level)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger = logger.With("run_id", uuid.NewString())
	logger.Info("starting", "bot", cfg.Name, "dry_run", cfg.DryRun)
	defer logger.Info("finished", "bot", cfg.Name)

	botCfg, err := loadBotConfig(ws, cfg)
	if err != nil {
		return err
	}

	l, err := ledger.Open(ws.LedgerPath())
	if err != nil {
		return err
	}
	if cfg.ResetSeen {
		if err := l.Reset(); err != nil {
			return err
		}
		logger.Info("ledger reset", "path", l.Path())
	}

	unit, err := comment.ParseUnit(cfg.Unit)
	if err != nil {
		return err
	}

	bot := &comment.Bot{
		Name:   cfg.Name,
		Ledger: l,
		Logger: logger,
		DryRun: cfg.DryRun,
		PostOptions: comment.PostOptions{
			Thread:    botCfg.Posting.Thread,
			Segmenter: comment.Segmenter{Unit: unit},
		},
	}

	var client *provider.ImgurClient
	if !cfg.DryRun || cfg.ItemsPath == "" {
		client, err = provider.NewImgurClient(ctx, botCfg.Credentials, provider.ImgurOptions{
			OnTokenRefresh: func(tok *oauth2.Token) {
				botCfg.Credentials.SetToken(tok)
				if err := config.Save(ws.ConfigPath(), botCfg); err != nil {
					logger.Error("persist refreshed token", "err", err)
					return
				}
				logger.Info("access token refreshed", "expiry", tok.Expiry)
			},
		})
		if err != nil {
			return err
		}
		bot.Poster = client
	}

	if botCfg.Compose.APIKey != "" {
		oa := openai.NewClient(option.WithAPIKey(botCfg.Compose.APIKey))
		bot.Composer = provider.OpenAIComposer{
			Client:          &oa,
			Model:           botCfg.Compose.Model,
			MaxOutputTokens: botCfg.Compose.MaxOutputTokens,
		}
	}

	items, err := loadItems(ctx, cfg, botCfg, client)
	if err != nil {
		return err
	}
	logger.Info("items loaded", "count", len(items))

	sum, err := bot.Process(ctx, items)
	fmt.Fprintf(stdout, "items=%d posted=%d chunks=%d seen=%d skipped=%d dry_run=%t\n",
		len(items), sum.Posted, sum.ChunksPosted, sum.Seen, sum.Skipped, cfg.DryRun)
	return err
}

// loadBotConfig reads ini/<name>.yaml. A dry run over an item file needs no credentials, so a missing
// file falls back to defaults there.
func loadBotConfig(ws comment.Workspace, cfg Config) (config.Config, error) {
	botCfg, err := config.Load(ws.ConfigPath())
	if err != nil {
		if !(errors.Is(err, fs.ErrNotExist) && cfg.DryRun && cfg.ItemsPath != "") {
			return config.Config{}, err
		}
		botCfg = config.Default()
	}
	if cfg.Model != "" {
		botCfg.Compose.Model = cfg.Model
	}
	if cfg.Section != "" {
		botCfg.Posting.Section = cfg.Section
	}
	if cfg.DryRun && cfg.ItemsPath != "" {
		return botCfg, nil
	}
	if err := botCfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("%s: %w", ws.ConfigPath(), err)
	}
	return botCfg, nil
}

func loadItems(ctx context.Context, cfg Config, botCfg config.Config, client *provider.ImgurClient) ([]comment.Item, error) {
	if cfg.ItemsPath != "" {
		var items []comment.Item
		if err := fileutils.ReadJSONFile(cfg.ItemsPath, &items); err != nil {
			return nil, fmt.Errorf("read -items: %w", err)
		}
		return items, nil
	}
	if client == nil {
		return nil, errors.New("no -items file and no Imgur client")
	}
	return client.Gallery(ctx, botCfg.Posting.Section, cfg.Page)
}
