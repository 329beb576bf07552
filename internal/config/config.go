package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds application configuration.
type Config struct {
	// MaxUploadBytes is the largest accepted upload (file or pasted text).
	MaxUploadBytes int64 `json:"max_upload_bytes"`

	// MaxPromptChars bounds the text sent to the Language Service for extraction.
	MaxPromptChars int `json:"max_prompt_chars"`

	// TranslateBatchSize is the number of terms per translation call.
	TranslateBatchSize int `json:"translate_batch_size"`

	// ImportBatchSize is the number of records per store call during bulk import.
	ImportBatchSize int `json:"import_batch_size"`

	// RequestTimeoutSeconds is the wall-clock budget for one HTTP process request.
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`

	// ImageMaxDimension downsizes images whose longest side exceeds it
	// before they are sent to the vision model. 0 disables resizing.
	ImageMaxDimension int `json:"image_max_dimension"`

	LLM   LLMConfig   `json:"llm"`
	Store StoreConfig `json:"store"`
	Log   LogConfig   `json:"log"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use the driver default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// AllowedPaths lists extra directories export files may be written to.
	// Only absolute paths are honored.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths lifts the export directory restriction. Symlinks are
	// still refused.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes disables every MCP tool of a type ("vocab", "flashcard").
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// LLMConfig configures the Language Service provider.
type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint) or "anthropic".
	Provider string `json:"provider,omitempty"`

	// APIKey is normally supplied through the environment.
	APIKey string `json:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty"`

	FastModel     string `json:"fast_model,omitempty"`
	AdvancedModel string `json:"advanced_model,omitempty"`
	VisionModel   string `json:"vision_model,omitempty"`

	Temperature    *float64 `json:"temperature,omitempty"` // nil uses the 0.3 default
	MaxTokens      int      `json:"max_tokens,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
}

// StoreConfig selects the flashcard store backend.
type StoreConfig struct {
	// Driver is "sqlite" (default, ~/.tango/tango.db) or "postgres".
	Driver string `json:"driver,omitempty"`

	// DSN is the Postgres connection string. Ignored for sqlite.
	DSN string `json:"dsn,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"`
}

// envConfig is the environment overlay. Only variables that are set
// produce non-zero fields.
type envConfig struct {
	Provider     string `env:"TANGO_LLM_PROVIDER"`
	APIKey       string `env:"TANGO_LLM_API_KEY"`
	OpenAIKey    string `env:"OPENAI_API_KEY"`
	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
	BaseURL      string `env:"TANGO_LLM_BASE_URL"`
	StoreDriver  string `env:"TANGO_STORE_DRIVER"`
	StoreDSN     string `env:"TANGO_STORE_DSN"`
	LogLevel     string `env:"TANGO_LOG_LEVEL"`
	LogFormat    string `env:"TANGO_LOG_FORMAT"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxUploadBytes:        10 * 1024 * 1024,
		MaxPromptChars:        8000,
		TranslateBatchSize:    30,
		ImportBatchSize:       50,
		RequestTimeoutSeconds: 60,
		ImageMaxDimension:     2048,
		LLM: LLMConfig{
			Provider:       "openai",
			Temperature:    Float(0.3),
			MaxTokens:      4096,
			TimeoutSeconds: 55,
		},
		Store: StoreConfig{Driver: "sqlite"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Load loads configuration from baseDir/config.json and the environment.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.tango.
func Load(baseDir string) (*Config, error) {
	file, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	env, err := loadEnv()
	if err != nil {
		return nil, err
	}
	return Merge(Merge(DefaultConfig(), file), env), nil
}

// LoadWithRepo loads configuration from both global (~/.tango) and repo (.tango) directories.
// Repo config is found by walking upward from startDir to find the nearest .tango/config.json.
// Precedence: defaults < global < repo < environment.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	env, err := loadEnv()
	if err != nil {
		return nil, err
	}

	return Merge(Merge(Merge(DefaultConfig(), global), repo), env), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .tango/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".tango", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnv reads the TANGO_* overlay from the environment.
func loadEnv() (*Config, error) {
	var env envConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, err
	}

	cfg := &Config{
		LLM: LLMConfig{
			Provider: env.Provider,
			APIKey:   env.APIKey,
			BaseURL:  env.BaseURL,
		},
		Store: StoreConfig{Driver: env.StoreDriver, DSN: env.StoreDSN},
		Log:   LogConfig{Level: env.LogLevel, Format: env.LogFormat},
	}

	// Provider-specific keys are a fallback for the generic one.
	if cfg.LLM.APIKey == "" {
		switch {
		case env.Provider == "anthropic" && env.AnthropicKey != "":
			cfg.LLM.APIKey = env.AnthropicKey
		case env.Provider != "anthropic" && env.OpenAIKey != "":
			cfg.LLM.APIKey = env.OpenAIKey
		case env.AnthropicKey != "":
			cfg.LLM.APIKey = env.AnthropicKey
		}
	}
	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.MaxUploadBytes = pick(overlay.MaxUploadBytes, base.MaxUploadBytes)
	result.MaxPromptChars = pick(overlay.MaxPromptChars, base.MaxPromptChars)
	result.TranslateBatchSize = pick(overlay.TranslateBatchSize, base.TranslateBatchSize)
	result.ImportBatchSize = pick(overlay.ImportBatchSize, base.ImportBatchSize)
	result.RequestTimeoutSeconds = pick(overlay.RequestTimeoutSeconds, base.RequestTimeoutSeconds)
	result.ImageMaxDimension = pick(overlay.ImageMaxDimension, base.ImageMaxDimension)
	result.DBMaxOpenConns = pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.LLM = LLMConfig{
		Provider:       pick(overlay.LLM.Provider, base.LLM.Provider),
		APIKey:         pick(overlay.LLM.APIKey, base.LLM.APIKey),
		BaseURL:        pick(overlay.LLM.BaseURL, base.LLM.BaseURL),
		FastModel:      pick(overlay.LLM.FastModel, base.LLM.FastModel),
		AdvancedModel:  pick(overlay.LLM.AdvancedModel, base.LLM.AdvancedModel),
		VisionModel:    pick(overlay.LLM.VisionModel, base.LLM.VisionModel),
		Temperature:    pick(overlay.LLM.Temperature, base.LLM.Temperature),
		MaxTokens:      pick(overlay.LLM.MaxTokens, base.LLM.MaxTokens),
		TimeoutSeconds: pick(overlay.LLM.TimeoutSeconds, base.LLM.TimeoutSeconds),
	}
	result.Store = StoreConfig{
		Driver: pick(overlay.Store.Driver, base.Store.Driver),
		DSN:    pick(overlay.Store.DSN, base.Store.DSN),
	}
	result.Log = LogConfig{
		Level:  pick(overlay.Log.Level, base.Log.Level),
		Format: pick(overlay.Log.Format, base.Log.Format),
	}

	// Booleans: OR (either enables)
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// pick returns overlay if non-zero, else base.
// Float returns a pointer to v, for optional numeric settings.
func Float(v float64) *float64 {
	return &v
}

func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
