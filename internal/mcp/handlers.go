package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/extract"
	"github.com/hpungsan/tango/internal/ops"
	"github.com/hpungsan/tango/internal/vocab"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	pipeline *ops.Pipeline
	store    ops.FlashcardStore
	cfg      *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(pipeline *ops.Pipeline, cfg *config.Config) *Handlers {
	return &Handlers{pipeline: pipeline, store: pipeline.Store(), cfg: cfg}
}

// Request types for each tool

// ProcessRequest represents the arguments for vocab_process.
type ProcessRequest struct {
	Content  string               `json:"content"`
	Encoding string               `json:"encoding,omitempty"`
	FileType string               `json:"file_type,omitempty"`
	MimeType string               `json:"mime_type,omitempty"`
	Filename string               `json:"filename,omitempty"`
	Options  *vocab.UploadOptions `json:"-"`
}

// UnmarshalJSON fills options missing from the request with their defaults.
func (r *ProcessRequest) UnmarshalJSON(data []byte) error {
	type plain ProcessRequest
	aux := struct {
		*plain
		Options json.RawMessage `json:"options,omitempty"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Options) == 0 || string(aux.Options) == "null" {
		return nil
	}
	opts, err := vocab.ParseOptions(aux.Options)
	if err != nil {
		return err
	}
	r.Options = &opts
	return nil
}

// ConfirmRequest represents the arguments for vocab_confirm.
type ConfirmRequest struct {
	Vocabulary               []vocab.TranslatedVocabulary       `json:"vocabulary"`
	ClarificationResolutions map[string]vocab.TranslationOption `json:"clarification_resolutions,omitempty"`
	DuplicateActions         map[string]vocab.DuplicateAction   `json:"duplicate_actions,omitempty"`
}

// DetectRequest represents the arguments for vocab_detect.
type DetectRequest struct {
	Text string `json:"text"`
}

// ListRequest represents the arguments for flashcard_list.
type ListRequest struct {
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// ClearRequest represents the arguments for flashcard_clear.
type ClearRequest struct {
	Confirm bool `json:"confirm"`
}

// ExportRequest represents the arguments for flashcard_export.
type ExportRequest struct {
	Path     string `json:"path,omitempty"`
	Category string `json:"category,omitempty"`
}

// ImportRequest represents the arguments for flashcard_import.
type ImportRequest struct {
	Path  string `json:"path"`
	Force bool   `json:"force,omitempty"`
}

// UploadRequest represents the arguments for flashcard_upload.
type UploadRequest struct {
	Cards json.RawMessage `json:"cards"`
}

// Handler implementations

// HandleProcess handles the vocab_process tool call.
func (h *Handlers) HandleProcess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProcessRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	content := []byte(input.Content)
	switch input.Encoding {
	case "", "text":
	case "base64":
		content, err = base64.StdEncoding.DecodeString(input.Content)
		if err != nil {
			return errorResult(errors.NewInvalidRequest("content is not valid base64")), nil
		}
	default:
		return errorResult(errors.NewInvalidRequest(`encoding must be "text" or "base64"`)), nil
	}

	result, err := h.pipeline.Process(ctx, ops.ProcessInput{
		Content:  content,
		FileType: extract.FileType(strings.ToLower(input.FileType)),
		MimeType: input.MimeType,
		Filename: input.Filename,
		Options:  input.Options,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleConfirm handles the vocab_confirm tool call.
func (h *Handlers) HandleConfirm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConfirmRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Vocabulary == nil {
		return errorResult(errors.NewInvalidRequest("vocabulary is required")), nil
	}

	result, err := h.pipeline.Confirm(ctx, ops.ConfirmInput{
		Vocabulary:               input.Vocabulary,
		ClarificationResolutions: input.ClarificationResolutions,
		DuplicateActions:         input.DuplicateActions,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDetect handles the vocab_detect tool call.
func (h *Handlers) HandleDetect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DetectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Text) == "" {
		return errorResult(errors.NewInvalidRequest("text is required")), nil
	}

	return successResult(map[string]any{"language": extract.Detect(input.Text)})
}

// HandleList handles the flashcard_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.store, ops.ListInput{
		Category: input.Category,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCount handles the flashcard_count tool call.
func (h *Handlers) HandleCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Count(ctx, h.store)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleClear handles the flashcard_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClearRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if !input.Confirm {
		return errorResult(errors.NewInvalidRequest("confirm must be true")), nil
	}

	result, err := ops.Clear(ctx, h.store)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleAudit handles the flashcard_audit tool call.
func (h *Handlers) HandleAudit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Audit(ctx, h.store)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the flashcard_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.store, h.cfg, ops.ExportInput{
		Path:     input.Path,
		Category: input.Category,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the flashcard_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.store, h.cfg, ops.ImportInput{
		Path:  input.Path,
		Force: input.Force,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpload handles the flashcard_upload tool call.
func (h *Handlers) HandleUpload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UploadRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Upload(ctx, h.store, input.Cards)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if tErr := errors.As(err); tErr != nil {
		message := tErr.Message
		// Keep wrapper context such as "batch 2: ".
		if prefix := strings.TrimSuffix(err.Error(), tErr.Error()); prefix != err.Error() {
			message = prefix + message
		}
		if tErr.Code == errors.ErrInternal {
			message = "an internal error occurred"
		}
		errorObj := map[string]any{
			"code":    tErr.Code,
			"message": message,
			"status":  tErr.Status,
		}
		if tErr.Code != errors.ErrInternal && tErr.Details != nil {
			errorObj["details"] = tErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
