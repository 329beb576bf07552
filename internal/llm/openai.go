package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any OpenAI-compatible chat/completions endpoint.
type OpenAIClient struct {
	client *openai.Client
	log    *slog.Logger
}

// NewOpenAI creates an OpenAI-compatible client. An empty baseURL uses api.openai.com.
func NewOpenAI(apiKey, baseURL string, timeout time.Duration, log *slog.Logger) *OpenAIClient {
	if timeout <= 0 {
		timeout = 55 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		log:    log,
	}
}

// Complete implements Service.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := systemMessage(req.System)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})
	return c.chat(ctx, req.Stage, req.Options, messages)
}

// CompleteVision implements Service. The image travels as a base64 data URL.
func (c *OpenAIClient) CompleteVision(ctx context.Context, req VisionRequest) (string, error) {
	mime := req.MimeType
	if mime == "" {
		mime = "image/png"
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.Image)

	messages := systemMessage(req.System)
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailHigh},
			},
		},
	})
	return c.chat(ctx, req.Stage, req.Options, messages)
}

func systemMessage(system string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	return messages
}

func (c *OpenAIClient) chat(ctx context.Context, stage string, opts Options, messages []openai.ChatCompletionMessage) (string, error) {
	reqID := uuid.New().String()
	start := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    messages,
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
	// The SDK drops a zero temperature from the request body.
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	c.log.Debug("llm.call.start", "req_id", reqID, "stage", stage, "model", opts.Model, "messages", len(messages))

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		status := statusOf(err)
		c.log.Error("llm.call.error", "req_id", reqID, "stage", stage, "model", opts.Model, "status", status,
			"error", err, "elapsed_ms", time.Since(start).Milliseconds())
		if status != 0 {
			return "", fmt.Errorf("openai status %d: %w", status, err)
		}
		return "", fmt.Errorf("openai request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty completion from %s", opts.Model)
	}

	c.log.Info("llm.call.ok", "req_id", reqID, "stage", stage, "model", opts.Model, "chars", len(content),
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}

// statusOf returns the HTTP status carried by an SDK error, or 0.
func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
