package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/llm"
	"github.com/hpungsan/tango/internal/vocab"
)

const (
	stageExtract      = "extract"
	stageExtractImage = "extract.image"

	defaultTermConfidence = 0.8
)

const extractSystemPrompt = `You are a vocabulary extraction assistant. Extract individual words or short phrases that would be useful as flashcard vocabulary from the given content.

Rules:
1. Extract meaningful vocabulary terms (not common words like "the", "a", "is")
2. For technical content, prioritize domain-specific terms
3. Keep phrases short (1-4 words max)
4. Identify the language of each term ("en" or "ja")
5. Provide context if it helps clarify meaning
6. Assign a confidence score (0-1) based on how certain you are this is a valid vocabulary term

Return a JSON object with this exact format:
{
  "terms": [
    {"term": "extracted term", "language": "en", "context": "optional context", "confidence": 0.95}
  ]
}`

const imageSystemPrompt = `You are an OCR assistant. Extract only text that is actually readable in the image, focusing on vocabulary words or terms that could be used for language learning flashcards. Do not guess or invent terms.

Return a JSON object with:
{
  "text": "extracted text, one term per line",
  "language": "en" or "ja" or "mixed",
  "terms": ["term1", "term2"]
}`

var termSchema = map[string]any{
	"type":     "object",
	"required": []string{"term"},
	"properties": map[string]any{
		"term":       map[string]any{"type": "string"},
		"language":   map[string]any{"type": "string"},
		"context":    map[string]any{"type": []string{"string", "null"}},
		"confidence": map[string]any{"type": []string{"number", "null"}},
	},
}

var extractionSchema = llm.MustCompileSchema("extraction", map[string]any{
	"oneOf": []any{
		map[string]any{"type": "array", "items": termSchema},
		map[string]any{
			"type":     "object",
			"required": []string{"terms"},
			"properties": map[string]any{
				"terms": map[string]any{"type": "array", "items": termSchema},
			},
		},
	},
})

var imageSchema = llm.MustCompileSchema("image_extraction", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"text":     map[string]any{"type": []string{"string", "null"}},
		"language": map[string]any{"type": []string{"string", "null"}},
		"terms": map[string]any{
			"type":  []string{"array", "null"},
			"items": map[string]any{"type": "string"},
		},
	},
})

// rawTerm mirrors one extracted term as the Language Service returns it.
type rawTerm struct {
	Term       string   `json:"term"`
	Language   string   `json:"language"`
	Context    string   `json:"context"`
	Confidence *float64 `json:"confidence"`
}

// termList accepts either a bare array or an object with a terms field.
type termList []rawTerm

func (l *termList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, (*[]rawTerm)(l))
	}
	var wrapped struct {
		Terms []rawTerm `json:"terms"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Terms
	return nil
}

type imageReply struct {
	Text     string   `json:"text"`
	Language string   `json:"language"`
	Terms    []string `json:"terms"`
}

// Extractor produces candidate terms, calling the Language Service for
// free text and images.
type Extractor struct {
	svc      llm.Service
	settings llm.Settings
	cfg      *config.Config
	log      *slog.Logger
}

// New creates an Extractor.
func New(svc llm.Service, settings llm.Settings, cfg *config.Config, log *slog.Logger) *Extractor {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{svc: svc, settings: settings, cfg: cfg, log: log}
}

// Text extracts terms from free text. The content is truncated to the
// configured prompt limit before it is sent.
func (e *Extractor) Text(ctx context.Context, content string, fileType FileType) ([]vocab.ExtractedTerm, error) {
	start := time.Now()
	lang := Detect(content)

	prompt := fmt.Sprintf("Extract vocabulary terms from this %s content (file type: %s):\n\n%s",
		lang, fileType, truncateRunes(content, e.cfg.MaxPromptChars))

	raw, err := e.svc.Complete(ctx, llm.CompletionRequest{
		Stage:  stageExtract,
		System: extractSystemPrompt,
		Prompt: prompt,
		Options: llm.Options{
			Model:       e.settings.Models.Fast,
			Temperature: e.settings.Temperature,
			MaxTokens:   e.settings.MaxTokens,
			JSONMode:    true,
		},
	})
	if err != nil {
		return nil, errors.NewUpstream(stageExtract, err)
	}

	list, err := llm.Decode[termList](stageExtract, extractionSchema, raw)
	if err != nil {
		return nil, err
	}

	terms := make([]vocab.ExtractedTerm, 0, len(list))
	for _, t := range list {
		term := strings.TrimSpace(t.Term)
		if term == "" {
			continue
		}
		termLang := vocab.Language(t.Language)
		if t.Language == "" || !termLang.Valid() {
			termLang = lang
		}
		confidence := defaultTermConfidence
		if t.Confidence != nil {
			confidence = min(max(*t.Confidence, 0), 1)
		}
		terms = append(terms, vocab.ExtractedTerm{
			Term:       term,
			Language:   termLang,
			Context:    t.Context,
			Confidence: confidence,
		})
	}

	e.log.Info("extract.text.ok", "file_type", fileType, "language", lang, "terms", len(terms),
		"elapsed_ms", time.Since(start).Milliseconds())
	return terms, nil
}

// Image extracts terms from an image through the vision model. Images
// larger than the configured dimension are downscaled first.
func (e *Extractor) Image(ctx context.Context, data []byte, mimeType string) ([]vocab.ExtractedTerm, vocab.Language, error) {
	start := time.Now()
	data, mimeType = e.downscale(data, mimeType)

	raw, err := e.svc.CompleteVision(ctx, llm.VisionRequest{
		Stage:    stageExtractImage,
		System:   imageSystemPrompt,
		Prompt:   "Extract all vocabulary terms from this image:",
		Image:    data,
		MimeType: mimeType,
		Options: llm.Options{
			Model:       e.settings.Models.Vision,
			Temperature: e.settings.Temperature,
			MaxTokens:   e.settings.MaxTokens,
			JSONMode:    true,
		},
	})
	if err != nil {
		return nil, vocab.LangUnknown, errors.NewUpstream(stageExtractImage, err)
	}

	reply, err := llm.Decode[imageReply](stageExtractImage, imageSchema, raw)
	if err != nil {
		return nil, vocab.LangUnknown, err
	}

	lang := vocab.Language(reply.Language)
	if !lang.Valid() {
		lang = vocab.LangUnknown
	}

	lines := reply.Terms
	if len(lines) == 0 {
		lines = strings.Split(reply.Text, "\n")
	}
	terms := make([]vocab.ExtractedTerm, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		terms = append(terms, vocab.ExtractedTerm{Term: line, Language: lang, Confidence: defaultTermConfidence})
	}

	e.log.Info("extract.image.ok", "language", lang, "terms", len(terms), "bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds())
	return terms, lang, nil
}

// downscale fits the image inside ImageMaxDimension, re-encoding as JPEG.
// Undecodable images are sent unchanged.
func (e *Extractor) downscale(data []byte, mimeType string) ([]byte, string) {
	limit := e.cfg.ImageMaxDimension
	if limit <= 0 {
		return data, mimeType
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (cfg.Width <= limit && cfg.Height <= limit) {
		return data, mimeType
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		e.log.Warn("extract.image.decode_failed", "error", err)
		return data, mimeType
	}
	fitted := imaging.Fit(img, limit, limit, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		e.log.Warn("extract.image.encode_failed", "error", err)
		return data, mimeType
	}
	e.log.Debug("extract.image.downscaled", "from_w", cfg.Width, "from_h", cfg.Height,
		"to_w", fitted.Bounds().Dx(), "to_h", fitted.Bounds().Dy())
	return buf.Bytes(), "image/jpeg"
}

// truncateRunes keeps at most n runes of s. n <= 0 disables truncation.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
