package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the birthdex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Content   ContentConfig   `yaml:"content"`
	Search    SearchConfig    `yaml:"search"`
	Provider  ProviderConfig  `yaml:"provider"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Origins   OriginsConfig   `yaml:"origins"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ContentConfig locates the catalog data files.
type ContentConfig struct {
	CatalogPath    string `yaml:"catalog_path"`
	MetaPath       string `yaml:"meta_path"`
	EmbeddingsPath string `yaml:"embeddings_path"`
}

// SearchConfig holds reverse search tunables.
type SearchConfig struct {
	TimeoutSec          int `yaml:"timeout_sec"`
	ResultLimit         int `yaml:"result_limit"`
	JudgeCandidateLimit int `yaml:"judge_candidate_limit"`
	JudgeBatchSize      int `yaml:"judge_batch_size"`
}

// ProviderConfig holds model provider settings. An empty api_key runs the
// service in lexical-only mode.
type ProviderConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	EmbedModel string `yaml:"embed_model"`
	ChatModel  string `yaml:"chat_model"`
	JudgeModel string `yaml:"judge_model"`
}

// RateLimitConfig holds per-endpoint request budgets.
type RateLimitConfig struct {
	Driver   string      `yaml:"driver"` // memory, redis (default: memory)
	Addrs    []string    `yaml:"addrs"`
	Password string      `yaml:"password"`
	Search   WindowLimit `yaml:"search"`
	Keywords WindowLimit `yaml:"keywords"`
}

// WindowLimit is a fixed-window request budget.
type WindowLimit struct {
	Max       int `yaml:"max"`
	WindowSec int `yaml:"window_sec"`
}

// OriginsConfig holds the origin allowlist.
type OriginsConfig struct {
	Allowed       []string `yaml:"allowed"`
	AllowUnlisted bool     `yaml:"allow_unlisted"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Judged searches can run for minutes.
		c.HTTP.WriteTimeoutSec = 150
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Content.CatalogPath == "" {
		c.Content.CatalogPath = "data/catalog.json"
	}
	if c.Content.MetaPath == "" {
		c.Content.MetaPath = "data/meta.json"
	}
	if c.Content.EmbeddingsPath == "" {
		c.Content.EmbeddingsPath = "data/embeddings.json"
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 120
	}
	if c.Search.ResultLimit <= 0 {
		c.Search.ResultLimit = 20
	}
	if c.Search.JudgeCandidateLimit <= 0 {
		c.Search.JudgeCandidateLimit = 50
	}
	if c.Search.JudgeBatchSize <= 0 {
		c.Search.JudgeBatchSize = 30
	}
	if c.Provider.EmbedModel == "" {
		c.Provider.EmbedModel = "text-embedding-3-small"
	}
	if c.Provider.ChatModel == "" {
		c.Provider.ChatModel = "gpt-4o-mini"
	}
	if c.Provider.JudgeModel == "" {
		c.Provider.JudgeModel = c.Provider.ChatModel
	}
	if c.RateLimit.Driver == "" {
		c.RateLimit.Driver = "memory"
	}
	// Unset ${VAR} substitutions leave empty strings behind.
	c.RateLimit.Addrs = dropEmpty(c.RateLimit.Addrs)
	c.Origins.Allowed = dropEmpty(c.Origins.Allowed)
	if c.RateLimit.Search.Max <= 0 {
		c.RateLimit.Search.Max = 20
	}
	if c.RateLimit.Search.WindowSec <= 0 {
		c.RateLimit.Search.WindowSec = 60
	}
	if c.RateLimit.Keywords.Max <= 0 {
		c.RateLimit.Keywords.Max = 30
	}
	if c.RateLimit.Keywords.WindowSec <= 0 {
		c.RateLimit.Keywords.WindowSec = 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.RateLimit.Driver {
	case "memory":
	case "redis":
		if len(c.RateLimit.Addrs) == 0 {
			return fmt.Errorf("rate_limit.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("rate_limit.driver must be \"memory\" or \"redis\", got %q", c.RateLimit.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func dropEmpty(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
