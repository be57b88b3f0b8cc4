package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/theimaginaryfoundation/comment-o-bot/comment"
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

	if err := run(cfg, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InputPath, "in", cfg.InputPath, "Text file to split, or - for stdin")
	fs.StringVar(&cfg.Unit, "unit", cfg.Unit, "What counts as one character: rune or grapheme")
	fs.BoolVar(&cfg.CountOnly, "count", false, "Only print the length and the number of chunks")
	fs.BoolVar(&cfg.JSON, "json", false, "Print the chunks as a JSON array instead of one per line")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nSplits text into %d-character comments marked \" i/N\". A single trailing newline is ignored.\n\nFlags:\n", filepath.Base(os.Args[0]), comment.MaxLen)
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  echo 'hello' | go run ./cmd/comment-splitter")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/comment-splitter -in reply.txt -unit grapheme -json")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.InputPath != "-" {
		cfg.InputPath = filepath.Clean(cfg.InputPath)
	}
	return cfg, nil
}

func run(cfg Config, stdin io.Reader, stdout io.Writer) error {
	unit, err := comment.ParseUnit(cfg.Unit)
	if err != nil {
		return err
	}

	text, err := readInput(cfg.InputPath, stdin)
	if err != nil {
		return err
	}

	seg := comment.Segmenter{Unit: unit}
	length := seg.Len(text)
	if cfg.CountOnly {
		_, err := fmt.Fprintf(stdout, "length=%d chunks=%d unit=%s\n", length, comment.EstimateChunkCount(length), unit)
		return err
	}

	chunks := seg.Split(text)
	if cfg.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(chunks)
	}
	for _, ch := range chunks {
		if _, err := fmt.Fprintln(stdout, ch); err != nil {
			return err
		}
	}
	return nil
}

func readInput(path string, stdin io.Reader) (string, error) {
	var b []byte
	var err error
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	text := string(b)
	if strings.HasSuffix(text, "\r\n") {
		return strings.TrimSuffix(text, "\r\n"), nil
	}
	return strings.TrimSuffix(text, "\n"), nil
}
