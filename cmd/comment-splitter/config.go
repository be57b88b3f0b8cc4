package main

import (
	"errors"

	"github.com/theimaginaryfoundation/comment-o-bot/comment"
)

type Config struct {
	InputPath string
	Unit      string
	CountOnly bool
	JSON      bool
}

func (c Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("missing -in")
	}
	if _, err := comment.ParseUnit(c.Unit); err != nil {
		return err
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		InputPath: "-",
		Unit:      comment.UnitRune.String(),
	}
}
