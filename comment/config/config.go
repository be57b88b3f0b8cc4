// Package config loads the bot's credentials and behaviour settings from a YAML file, with environment
// overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"

	"github.com/theimaginaryfoundation/comment-o-bot/comment/fileutils"
)

// Environment variables that take precedence over the file.
const (
	EnvClientID      = "IMGUR_CLIENT_ID"
	EnvClientSecret  = "IMGUR_CLIENT_SECRET"
	EnvAccessToken   = "IMGUR_ACCESS_TOKEN"
	EnvRefreshToken  = "IMGUR_REFRESH_TOKEN"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvComposeModel  = "COMMENT_BOT_MODEL"
	EnvThreadReplies = "COMMENT_BOT_THREAD"
)

type Config struct {
	Credentials Credentials `yaml:"credentials"`
	Posting     Posting     `yaml:"posting"`
	Compose     Compose     `yaml:"compose"`
}

// Credentials identify the client and carry the refresh-capable user token.
type Credentials struct {
	ClientID     string    `yaml:"client_id"`
	ClientSecret string    `yaml:"client_secret"`
	AccessToken  string    `yaml:"access_token"`
	RefreshToken string    `yaml:"refresh_token"`
	Expiry       time.Time `yaml:"expiry,omitempty"`
}

type Posting struct {
	// Thread posts every chunk after the first as a reply to the previous one.
	Thread bool `yaml:"thread"`
	// Section is the gallery section scanned when no item list is given (hot, top, user).
	Section string `yaml:"section"`
}

type Compose struct {
	Model           string `yaml:"model"`
	MaxOutputTokens int64  `yaml:"max_output_tokens"`
	APIKey          string `yaml:"api_key,omitempty"`
}

func Default() Config {
	return Config{
		Posting: Posting{
			Thread:  true,
			Section: "hot",
		},
		Compose: Compose{
			Model:           "gpt-5-mini",
			MaxOutputTokens: 800,
		},
	}
}

// Load reads the YAML file at path on top of Default and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config.Load: parse %s: %w", path, err)
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

// LoadEnv populates the process environment from dotenv files. Missing files are skipped; variables
// already set are left alone.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" || !fileutils.FileExists(p) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config.LoadEnv %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.Credentials.ClientID, EnvClientID)
	set(&c.Credentials.ClientSecret, EnvClientSecret)
	set(&c.Credentials.AccessToken, EnvAccessToken)
	set(&c.Credentials.RefreshToken, EnvRefreshToken)
	set(&c.Compose.APIKey, EnvOpenAIKey)
	set(&c.Compose.Model, EnvComposeModel)

	if v, ok := lookup(EnvThreadReplies); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Posting.Thread = b
		}
	}
}

func (c Config) Validate() error {
	if c.Credentials.ClientID == "" {
		return errors.New("missing credentials.client_id")
	}
	if c.Credentials.AccessToken == "" && c.Credentials.RefreshToken == "" {
		return errors.New("missing credentials.access_token or credentials.refresh_token")
	}
	if c.Credentials.RefreshToken != "" && c.Credentials.ClientSecret == "" {
		return errors.New("credentials.refresh_token requires credentials.client_secret")
	}
	if c.Compose.MaxOutputTokens < 0 {
		return errors.New("compose.max_output_tokens must be >= 0")
	}
	return nil
}

// Save writes cfg to path atomically with owner-only permissions. The OpenAI key is never persisted.
func Save(path string, cfg Config) error {
	cfg.Compose.APIKey = ""
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config.Save: marshal: %w", err)
	}
	if err := fileutils.WriteFileAtomic(path, b, 0o600); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	return nil
}

// Token returns the stored user token.
func (c Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.Expiry,
	}
}

// SetToken records a refreshed token. A response without a refresh token keeps the previous one.
func (c *Credentials) SetToken(tok *oauth2.Token) {
	if tok == nil {
		return
	}
	c.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		c.RefreshToken = tok.RefreshToken
	}
	c.Expiry = tok.Expiry
}
