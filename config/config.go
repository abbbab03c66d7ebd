package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. TEXTBOOK_CHAT_PROVIDER_NAME.
// The two API keys also accept their bare names (OPENAI_API_KEY, GEMINI_API_KEY).
const EnvPrefix = "TEXTBOOK_CHAT"

// Config holds application configuration
type Config struct {
	Provider struct {
		Name        string        `yaml:"name" split_words:"true"`
		Model       string        `yaml:"model" split_words:"true"`
		VisionModel string        `yaml:"vision_model" split_words:"true"`
		BaseURL     string        `yaml:"base_url" split_words:"true"`
		Temperature float64       `yaml:"temperature" split_words:"true"`
		Timeout     time.Duration `yaml:"timeout" split_words:"true"`
		OpenAIKey   string        `yaml:"openai_api_key,omitempty" envconfig:"OPENAI_API_KEY"`
		GeminiKey   string        `yaml:"gemini_api_key,omitempty" envconfig:"GEMINI_API_KEY"`
	} `yaml:"provider"`
	Storage struct {
		Backend       string `yaml:"backend" split_words:"true"`
		Dir           string `yaml:"dir" split_words:"true"`
		PostgresURL   string `yaml:"postgres_url" split_words:"true"`
		RedisAddr     string `yaml:"redis_addr" split_words:"true"`
		RedisPassword string `yaml:"redis_password,omitempty" split_words:"true"`
		RedisDB       int    `yaml:"redis_db" split_words:"true"`
		RedisPrefix   string `yaml:"redis_prefix" split_words:"true"`
	} `yaml:"storage"`
	Budget struct {
		Ceiling int    `yaml:"ceiling" split_words:"true"`
		Model   string `yaml:"model" split_words:"true"`
	} `yaml:"budget"`
	OCR struct {
		DPI       float64 `yaml:"dpi" split_words:"true"`
		MaxWidth  int     `yaml:"max_width" split_words:"true"`
		MaxHeight int     `yaml:"max_height" split_words:"true"`
		Prompt    string  `yaml:"prompt" split_words:"true"`
		MaxTokens int     `yaml:"max_tokens" split_words:"true"`
	} `yaml:"ocr"`
	Retry struct {
		MaxAttempts    int           `yaml:"max_attempts" split_words:"true"`
		WarmupDelay    time.Duration `yaml:"warmup_delay" split_words:"true"`
		TransportDelay time.Duration `yaml:"transport_delay" split_words:"true"`
	} `yaml:"retry"`
	Log struct {
		Environment string `yaml:"environment" split_words:"true"`
		Level       string `yaml:"level" split_words:"true"`
		File        string `yaml:"file" split_words:"true"`
	} `yaml:"log"`
	Server struct {
		Addr string `yaml:"addr" split_words:"true"`
	} `yaml:"server"`
}

// Dir returns the per-user configuration directory
func Dir() string {
	return filepath.Join(os.Getenv("HOME"), ".textbook-chat")
}

// DefaultPath is where Load and Save look when no path is given
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads path (or DefaultPath when empty) over Default, then applies
// .env and environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return cfg, fmt.Errorf("failed to apply environment: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to path (or DefaultPath when empty). API keys
// are never written.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *c
	out.Provider.OpenAIKey = ""
	out.Provider.GeminiKey = ""
	out.Storage.RedisPassword = ""
	out.Storage.PostgresURL = stripPassword(out.Storage.PostgresURL)

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// defaultModels is the chat model used when provider.model is unset.
// Ollama has no entry; it picks from the installed models.
var defaultModels = map[string]string{
	"openai": "gpt-4o",
	"gemini": "gemini-2.5-flash",
}

// ChatModel returns provider.model, or the selected provider's default
func (c *Config) ChatModel() string {
	if c.Provider.Model != "" {
		return c.Provider.Model
	}
	return defaultModels[c.Provider.Name]
}

var dsnPassword = regexp.MustCompile(`(^|\s)password=('[^']*'|\S*)\s*`)

// stripPassword removes the password from a postgres URL or keyword/value
// connection string, keeping the user name
func stripPassword(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		if u.User != nil {
			u.User = url.User(u.User.Username())
		}
		q := u.Query()
		if q.Has("password") {
			q.Del("password")
			u.RawQuery = q.Encode()
		}
		return u.String()
	}
	return strings.TrimSpace(dsnPassword.ReplaceAllString(dsn, "$1"))
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Provider.Name = "openai"
	cfg.Provider.Temperature = 0.2
	cfg.Provider.Timeout = 2 * time.Minute

	cfg.Storage.Backend = "dir"
	cfg.Storage.Dir = "scanned_books"
	cfg.Storage.PostgresURL = "postgres://postgres@localhost/postgres?sslmode=disable"
	cfg.Storage.RedisAddr = "localhost:6379"
	cfg.Storage.RedisPrefix = "book:"

	cfg.Budget.Ceiling = 120000
	cfg.Budget.Model = "gpt-4o"

	cfg.OCR.DPI = 100
	cfg.OCR.MaxWidth = 1024
	cfg.OCR.MaxHeight = 1024
	cfg.OCR.Prompt = "Extract all readable text from this image."
	cfg.OCR.MaxTokens = 1000

	cfg.Retry.MaxAttempts = 3
	cfg.Retry.WarmupDelay = 5 * time.Second
	cfg.Retry.TransportDelay = 2 * time.Second

	cfg.Log.Environment = "development"
	cfg.Log.Level = "info"

	cfg.Server.Addr = ":8080"

	return cfg
}

// Validate reports misconfiguration that would only surface mid-session
func (c *Config) Validate() error {
	var problems []string

	switch c.Provider.Name {
	case "openai":
		// a custom base_url may point at a keyless compatible server
		if c.Provider.OpenAIKey == "" && c.Provider.BaseURL == "" {
			problems = append(problems, "OPENAI_API_KEY is not set")
		}
	case "gemini":
		if c.Provider.GeminiKey == "" {
			problems = append(problems, "GEMINI_API_KEY is not set")
		}
	case "ollama":
	default:
		problems = append(problems, fmt.Sprintf("unknown provider %q (want openai, ollama or gemini)", c.Provider.Name))
	}

	switch c.Storage.Backend {
	case "dir":
		if strings.TrimSpace(c.Storage.Dir) == "" {
			problems = append(problems, "storage.dir is empty")
		}
	case "postgres":
		if c.Storage.PostgresURL == "" {
			problems = append(problems, "storage.postgres_url is empty")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			problems = append(problems, "storage.redis_addr is empty")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage backend %q (want dir, postgres or redis)", c.Storage.Backend))
	}

	if c.Budget.Ceiling <= 0 {
		problems = append(problems, "budget.ceiling must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		problems = append(problems, "retry.max_attempts must be positive")
	}
	if c.OCR.DPI <= 0 {
		problems = append(problems, "ocr.dpi must be positive")
	}
	if c.OCR.MaxWidth <= 0 || c.OCR.MaxHeight <= 0 {
		problems = append(problems, "ocr.max_width and ocr.max_height must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
