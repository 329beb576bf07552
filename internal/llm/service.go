// Package llm is the boundary to the external Language Service: text
// completion and image-to-text, both returning JSON payloads that the
// calling stage validates against its own schema.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hpungsan/tango/internal/config"
)

// Service is the Language Service capability injected into each stage.
type Service interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	CompleteVision(ctx context.Context, req VisionRequest) (string, error)
}

// Options are the per-call model settings.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// CompletionRequest is a text-only call.
type CompletionRequest struct {
	Stage  string // pipeline step, used for logs and metrics
	System string
	Prompt string
	Options
}

// VisionRequest is an image-to-text call with an inline image.
type VisionRequest struct {
	Stage    string
	System   string
	Prompt   string
	Image    []byte
	MimeType string
	Options
}

// Models names the model used for each kind of call.
type Models struct {
	Fast     string // extraction, categorization, readings
	Advanced string // translation
	Vision   string // image extraction
}

// Settings are the model defaults shared by every stage.
type Settings struct {
	Models      Models
	Temperature float64
	MaxTokens   int
}

// DefaultModels returns the provider's default model names.
func DefaultModels(provider string) Models {
	if provider == ProviderAnthropic {
		return Models{
			Fast:     "claude-haiku-4-5",
			Advanced: "claude-sonnet-4-5",
			Vision:   "claude-sonnet-4-5",
		}
	}
	return Models{
		Fast:     "gpt-4o-mini",
		Advanced: "gpt-4o",
		Vision:   "gpt-4o",
	}
}

const defaultTemperature = 0.3

// SettingsFrom resolves model settings from configuration.
func SettingsFrom(cfg config.LLMConfig) Settings {
	models := DefaultModels(cfg.Provider)
	if cfg.FastModel != "" {
		models.Fast = cfg.FastModel
	}
	if cfg.AdvancedModel != "" {
		models.Advanced = cfg.AdvancedModel
	}
	if cfg.VisionModel != "" {
		models.Vision = cfg.VisionModel
	}
	s := Settings{Models: models, Temperature: defaultTemperature, MaxTokens: cfg.MaxTokens}
	if cfg.Temperature != nil {
		s.Temperature = *cfg.Temperature
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = 4096
	}
	return s
}

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// New builds the configured provider. A missing API key yields a service
// whose calls fail, so commands that never reach the Language Service
// still work.
func New(cfg config.LLMConfig, log *slog.Logger) (Service, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderOpenAI
	}
	if provider != ProviderOpenAI && provider != ProviderAnthropic {
		return nil, fmt.Errorf("unknown llm provider %q (want %s or %s)", cfg.Provider, ProviderOpenAI, ProviderAnthropic)
	}
	if cfg.APIKey == "" {
		return unconfigured{provider: provider}, nil
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if provider == ProviderAnthropic {
		return NewAnthropic(cfg.APIKey, cfg.BaseURL, timeout, log), nil
	}
	return NewOpenAI(cfg.APIKey, cfg.BaseURL, timeout, log), nil
}

// unconfigured fails every call with a configuration hint.
type unconfigured struct {
	provider string
}

func (u unconfigured) err() error {
	return fmt.Errorf("no API key configured for %s (set TANGO_LLM_API_KEY)", u.provider)
}

func (u unconfigured) Complete(context.Context, CompletionRequest) (string, error) {
	return "", u.err()
}

func (u unconfigured) CompleteVision(context.Context, VisionRequest) (string, error) {
	return "", u.err()
}
