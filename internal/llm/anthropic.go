package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// jsonOnlyInstruction is appended to the system prompt in JSON mode;
// the Messages API has no response_format switch.
const jsonOnlyInstruction = "Respond with a single JSON value only. No markdown, no commentary."

// AnthropicClient implements Service with the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	log    *slog.Logger
}

// NewAnthropic creates an Anthropic-backed client.
func NewAnthropic(apiKey, baseURL string, timeout time.Duration, log *slog.Logger) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	if log == nil {
		log = slog.Default()
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...), log: log}
}

// Complete implements Service.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	msg := anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))
	return c.send(ctx, req.Stage, req.System, req.Options, msg)
}

// CompleteVision implements Service.
func (c *AnthropicClient) CompleteVision(ctx context.Context, req VisionRequest) (string, error) {
	mime := req.MimeType
	if mime == "" {
		mime = "image/png"
	}
	msg := anthropic.NewUserMessage(
		anthropic.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(req.Image)),
		anthropic.NewTextBlock(req.Prompt),
	)
	return c.send(ctx, req.Stage, req.System, req.Options, msg)
}

func (c *AnthropicClient) send(ctx context.Context, stage, system string, opts Options, msg anthropic.MessageParam) (string, error) {
	start := time.Now()

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(opts.Model),
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.MessageParam{msg},
		Temperature: anthropic.Float(opts.Temperature),
	}
	if opts.JSONMode {
		system = strings.TrimSpace(system + "\n\n" + jsonOnlyInstruction)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.log.Error("llm.call.error", "stage", stage, "model", opts.Model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("empty response from %s", opts.Model)
	}

	if opts.JSONMode {
		extracted, err := ExtractJSON(text)
		if err != nil {
			return "", err
		}
		text = extracted
	}

	c.log.Info("llm.call.ok", "stage", stage, "model", opts.Model, "chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}
