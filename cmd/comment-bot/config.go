package main

import (
	"errors"
	"strings"

	"github.com/theimaginaryfoundation/comment-o-bot/comment"
)

type Config struct {
	Root      string
	Name      string
	ItemsPath string
	Section   string
	Page      int
	Model     string
	Unit      string
	EnvFile   string
	DryRun    bool
	ResetSeen bool
	Verbose   bool
}

func (c Config) Validate() error {
	if err := (comment.Workspace{Root: c.Root, Name: c.Name}).Validate(); err != nil {
		return err
	}
	if c.Page < 0 {
		return errors.New("page must be >= 0")
	}
	if strings.ContainsAny(c.Section, "/?#") {
		return errors.New("invalid -section")
	}
	if _, err := comment.ParseUnit(c.Unit); err != nil {
		return err
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Root:    ".",
		Name:    "ImgurBot",
		Unit:    comment.UnitRune.String(),
		EnvFile: ".env",
	}
}
