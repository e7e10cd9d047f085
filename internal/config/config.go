// Package config loads and validates the kindling configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/okontny/kindling/internal/models"
	"github.com/okontny/kindling/internal/prompt"
)

// Config is the explicit configuration struct handed to each component at
// construction. There is no process-wide settings singleton.
type Config struct {
	// Listen is the HTTP API bind address.
	Listen string `yaml:"listen"`
	// DataDir holds the sqlite store files. A leading ~/ expands to $HOME.
	DataDir string `yaml:"data_dir"`
	// Verbose lowers the log level to debug.
	Verbose bool `yaml:"verbose"`

	Store      StoreConfig      `yaml:"store"`
	Model      ModelConfig      `yaml:"model"`
	Notion     NotionConfig     `yaml:"notion"`
	Slack      SlackConfig      `yaml:"slack"`
	Batch      BatchConfig      `yaml:"batch"`
	Validation ValidationConfig `yaml:"validation"`
	Classify   ClassifyConfig   `yaml:"classify"`

	// Prompts maps project type names to prompt templates with {idea_text}
	// and {context_urls} placeholders.
	Prompts map[string]string `yaml:"prompts"`
}

// StoreConfig selects and parameterizes the persistence backend.
type StoreConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver      string `yaml:"driver"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ModelConfig describes the Ollama-compatible generation endpoint.
type ModelConfig struct {
	BaseURL        string `yaml:"base_url"`
	Name           string `yaml:"name"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the caller-imposed model call timeout.
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// NotionConfig carries the publish-target credentials. Both fields empty
// means publishing is skipped, not crashed.
type NotionConfig struct {
	APIKey     string `yaml:"api_key"`
	DatabaseID string `yaml:"database_id"`
}

// SlackConfig carries the optional review-notification credentials.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// BatchConfig bounds one batch run.
type BatchConfig struct {
	Size            int `yaml:"size"`
	MaxRounds       int `yaml:"max_rounds"`
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

// Cooldown returns the inter-round sleep duration.
func (b BatchConfig) Cooldown() time.Duration {
	return time.Duration(b.CooldownSeconds) * time.Second
}

// ValidationConfig holds the per-type minimum body lengths.
type ValidationConfig struct {
	DefaultMinBody int            `yaml:"default_min_body"`
	MinBody        map[string]int `yaml:"min_body"`
}

// ClassifyConfig defines the keyword classifier rules. Rules are applied in
// order, first match wins; Default is the fallback type.
type ClassifyConfig struct {
	Default string         `yaml:"default"`
	Rules   []ClassifyRule `yaml:"rules"`
}

// ClassifyRule maps a keyword set to a project type.
type ClassifyRule struct {
	Type     string   `yaml:"type"`
	Keywords []string `yaml:"keywords"`
}

// Default returns the baseline configuration, including the built-in prompt
// templates.
func Default() *Config {
	return &Config{
		Listen:  "127.0.0.1:8931",
		DataDir: "~/.kindling",
		Verbose: false,
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Model: ModelConfig{
			BaseURL:        "http://localhost:11434",
			Name:           "llama3-groq-tool-use",
			TimeoutSeconds: 120,
		},
		Batch: BatchConfig{
			Size:            5,
			MaxRounds:       3,
			CooldownSeconds: 30,
		},
		Validation: ValidationConfig{
			DefaultMinBody: 500,
			MinBody: map[string]int{
				"research": 1500,
				"article":  1000,
				"build":    500,
			},
		},
		Classify: ClassifyConfig{
			Default: "research",
			Rules: []ClassifyRule{
				{Type: "build", Keywords: []string{"build"}},
				{Type: "article", Keywords: []string{"article", "write"}},
			},
		},
		Prompts: prompt.Defaults(),
	}
}

// DefaultPath returns the config file location under the user's home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "kindling.yaml"
	}
	return filepath.Join(home, ".kindling", "config.yaml")
}

// Load reads the YAML config file, applies KINDLING_* environment overrides,
// and validates the result. A missing file yields the defaults. A .env file
// in the working directory is loaded first so overrides can live there.
func Load(path string) (*Config, error) {
	// Ignore a missing .env; it is an optional convenience.
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating parent directories
// if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KINDLING_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("KINDLING_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("KINDLING_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Verbose = b
		}
	}
	if v := os.Getenv("KINDLING_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("KINDLING_POSTGRES_DSN"); v != "" {
		c.Store.PostgresDSN = v
	}
	if v := os.Getenv("KINDLING_MODEL_BASE_URL"); v != "" {
		c.Model.BaseURL = v
	}
	if v := os.Getenv("KINDLING_MODEL_NAME"); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv("KINDLING_NOTION_API_KEY"); v != "" {
		c.Notion.APIKey = v
	}
	if v := os.Getenv("KINDLING_NOTION_DATABASE_ID"); v != "" {
		c.Notion.DatabaseID = v
	}
	if v := os.Getenv("KINDLING_SLACK_TOKEN"); v != "" {
		c.Slack.Token = v
	}
	if v := os.Getenv("KINDLING_SLACK_CHANNEL"); v != "" {
		c.Slack.Channel = v
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid store driver %q, must be: sqlite or postgres", c.Store.Driver)
	}

	if c.Model.BaseURL == "" {
		return fmt.Errorf("model.base_url is required")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.TimeoutSeconds < 1 {
		return fmt.Errorf("model.timeout_seconds must be at least 1")
	}

	if c.Batch.Size < 1 {
		return fmt.Errorf("batch.size must be at least 1")
	}
	if c.Batch.MaxRounds < 1 {
		return fmt.Errorf("batch.max_rounds must be at least 1")
	}
	if c.Batch.CooldownSeconds < 0 {
		return fmt.Errorf("batch.cooldown_seconds cannot be negative")
	}

	if c.Validation.DefaultMinBody < 0 {
		return fmt.Errorf("validation.default_min_body cannot be negative")
	}
	for name := range c.Validation.MinBody {
		if _, err := models.ParseProjectType(name); err != nil {
			return fmt.Errorf("validation.min_body: %w", err)
		}
	}

	if _, err := models.ParseProjectType(c.Classify.Default); err != nil {
		return fmt.Errorf("classify.default: %w", err)
	}
	for _, rule := range c.Classify.Rules {
		if _, err := models.ParseProjectType(rule.Type); err != nil {
			return fmt.Errorf("classify.rules: %w", err)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("classify.rules: rule for type %q has no keywords", rule.Type)
		}
	}

	for name := range c.Prompts {
		if _, err := models.ParseProjectType(name); err != nil {
			return fmt.Errorf("prompts: %w", err)
		}
	}

	return nil
}

// DataDirPath resolves the configured data directory, expanding a leading
// ~/ against the user's home.
func (c *Config) DataDirPath() string {
	if strings.HasPrefix(c.DataDir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, c.DataDir[2:])
		}
	}
	return c.DataDir
}
