// Package translate turns extracted terms into bilingual vocabulary records
// through the Language Service.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/llm"
	"github.com/hpungsan/tango/internal/vocab"
)

const (
	stageTranslate = "translate"
	stageHiragana  = "hiragana"
	stageCategory  = "categorize"

	defaultConfidence = 0.8
)

var optionSchema = map[string]any{
	"type":     "object",
	"required": []string{"japaneseKanji", "hiragana"},
	"properties": map[string]any{
		"japaneseKanji": map[string]any{"type": "string"},
		"hiragana":      map[string]any{"type": "string"},
		"meaning":       map[string]any{"type": []string{"string", "null"}},
	},
}

var translationSchema = llm.MustCompileSchema("translation", map[string]any{
	"type":     "object",
	"required": []string{"translations"},
	"properties": map[string]any{
		"translations": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"english":              map[string]any{"type": []string{"string", "null"}},
					"japaneseKanji":        map[string]any{"type": []string{"string", "null"}},
					"hiragana":             map[string]any{"type": []string{"string", "null"}},
					"category":             map[string]any{"type": []string{"string", "null"}},
					"confidence":           map[string]any{"type": []string{"number", "null"}},
					"needsClarification":   map[string]any{"type": []string{"boolean", "null"}},
					"clarificationOptions": map[string]any{"type": []string{"array", "null"}, "items": optionSchema},
					"originalTerm":         map[string]any{"type": []string{"string", "null"}},
					"originalLanguage":     map[string]any{"type": []string{"string", "null"}},
				},
				"if": map[string]any{
					"required":   []string{"needsClarification"},
					"properties": map[string]any{"needsClarification": map[string]any{"const": true}},
				},
				"then": map[string]any{
					"required": []string{"clarificationOptions"},
					"properties": map[string]any{
						"clarificationOptions": map[string]any{"type": "array", "minItems": 1},
					},
				},
			},
		},
	},
})

var categorySchema = llm.MustCompileSchema("categorization", map[string]any{
	"type":     "object",
	"required": []string{"categorizations"},
	"properties": map[string]any{
		"categorizations": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		},
	},
})

// rawTranslation mirrors one translation as the Language Service returns it.
type rawTranslation struct {
	English              string                    `json:"english"`
	JapaneseKanji        string                    `json:"japaneseKanji"`
	Hiragana             string                    `json:"hiragana"`
	Category             string                    `json:"category"`
	Confidence           *float64                  `json:"confidence"`
	NeedsClarification   bool                      `json:"needsClarification"`
	ClarificationOptions []vocab.TranslationOption `json:"clarificationOptions"`
	OriginalTerm         string                    `json:"originalTerm"`
	OriginalLanguage     string                    `json:"originalLanguage"`
}

type translationReply struct {
	Translations []rawTranslation `json:"translations"`
}

type categoryReply struct {
	Categorizations map[string]string `json:"categorizations"`
}

// Pair is an English/Japanese pair to categorize.
type Pair struct {
	English  string `json:"english"`
	Japanese string `json:"japanese"`
}

// Translator translates and enriches vocabulary.
type Translator struct {
	svc       llm.Service
	settings  llm.Settings
	batchSize int
	log       *slog.Logger
}

// New creates a Translator.
func New(svc llm.Service, settings llm.Settings, cfg *config.Config, log *slog.Logger) *Translator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}
	batchSize := cfg.TranslateBatchSize
	if batchSize <= 0 {
		batchSize = 30
	}
	return &Translator{svc: svc, settings: settings, batchSize: batchSize, log: log}
}

// Translate translates terms in sequential batches and concatenates the
// results in input order. A failed batch aborts the whole call.
func (t *Translator) Translate(ctx context.Context, terms []vocab.ExtractedTerm) ([]vocab.TranslatedVocabulary, error) {
	if len(terms) == 0 {
		return []vocab.TranslatedVocabulary{}, nil
	}

	batches := (len(terms) + t.batchSize - 1) / t.batchSize
	out := make([]vocab.TranslatedVocabulary, 0, len(terms))
	for i := 0; i < batches; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewUpstream(stageTranslate, err)
		}
		end := min((i+1)*t.batchSize, len(terms))
		batch := terms[i*t.batchSize : end]

		records, err := t.translateBatch(ctx, batch, i+1, batches)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func (t *Translator) translateBatch(ctx context.Context, batch []vocab.ExtractedTerm, n, total int) ([]vocab.TranslatedVocabulary, error) {
	start := time.Now()
	stage := fmt.Sprintf("%s batch %d/%d", stageTranslate, n, total)

	type promptTerm struct {
		Term     string         `json:"term"`
		Language vocab.Language `json:"language"`
		Context  string         `json:"context,omitempty"`
	}
	payload := make([]promptTerm, len(batch))
	for i, term := range batch {
		payload[i] = promptTerm{Term: term.Term, Language: term.Language, Context: term.Context}
	}
	termsJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	raw, err := t.svc.Complete(ctx, llm.CompletionRequest{
		Stage:  stageTranslate,
		System: translateSystemPrompt(),
		Prompt: "Translate these vocabulary terms:\n" + string(termsJSON),
		Options: llm.Options{
			Model:       t.settings.Models.Advanced,
			Temperature: t.settings.Temperature,
			MaxTokens:   t.settings.MaxTokens,
			JSONMode:    true,
		},
	})
	if err != nil {
		return nil, errors.NewUpstream(stage, err)
	}

	reply, err := llm.Decode[translationReply](stage, translationSchema, raw)
	if err != nil {
		return nil, err
	}

	records := make([]vocab.TranslatedVocabulary, len(reply.Translations))
	for i, rt := range reply.Translations {
		records[i] = t.normalize(rt)
	}
	// Positional provenance only holds when the reply is one-to-one.
	if len(records) == len(batch) {
		for i := range records {
			if records[i].OriginalTerm == "" {
				records[i].OriginalTerm = batch[i].Term
			}
			if records[i].OriginalLanguage == "" {
				records[i].OriginalLanguage = batch[i].Language
			}
		}
	}

	t.log.Info("translate.batch.ok", "batch", n, "batches", total, "terms", len(batch),
		"records", len(records), "elapsed_ms", time.Since(start).Milliseconds())
	return records, nil
}

// normalize applies defaults and the clarification invariant: a record that
// needs clarification has no kanji or reading, and a resolved record has no
// options.
func (t *Translator) normalize(rt rawTranslation) vocab.TranslatedVocabulary {
	v := vocab.TranslatedVocabulary{
		English:            strings.TrimSpace(rt.English),
		JapaneseKanji:      strings.TrimSpace(rt.JapaneseKanji),
		Hiragana:           strings.TrimSpace(rt.Hiragana),
		Category:           rt.Category,
		Confidence:         defaultConfidence,
		NeedsClarification: rt.NeedsClarification,
		OriginalTerm:       rt.OriginalTerm,
		OriginalLanguage:   vocab.Language(rt.OriginalLanguage),
	}
	if rt.Confidence != nil {
		v.Confidence = min(max(*rt.Confidence, 0), 1)
	}
	if !v.OriginalLanguage.Valid() {
		v.OriginalLanguage = ""
	}
	if v.Category == "" {
		v.Category = vocab.DefaultCategory
	} else if !vocab.IsCategory(v.Category) {
		t.log.Warn("translate.category.unknown", "category", v.Category, "english", v.English)
		v.Category = vocab.DefaultCategory
	}

	if v.NeedsClarification {
		v.JapaneseKanji = ""
		v.Hiragana = ""
		v.ClarificationOptions = rt.ClarificationOptions
	}
	return v
}

// ResolveClarification applies a chosen option. It is the only way a
// flagged record becomes resolved.
func ResolveClarification(v vocab.TranslatedVocabulary, option vocab.TranslationOption) vocab.TranslatedVocabulary {
	v.JapaneseKanji = option.JapaneseKanji
	v.Hiragana = option.Hiragana
	v.NeedsClarification = false
	v.ClarificationOptions = nil
	v.Confidence = 1.0
	return v
}

// GenerateHiragana returns the hiragana reading of a Japanese term.
func (t *Translator) GenerateHiragana(ctx context.Context, kanji string) (string, error) {
	raw, err := t.svc.Complete(ctx, llm.CompletionRequest{
		Stage:  stageHiragana,
		System: "Convert the Japanese text to hiragana reading only. Return just the hiragana, nothing else.",
		Prompt: kanji,
		Options: llm.Options{
			Model:       t.settings.Models.Fast,
			Temperature: 0,
			MaxTokens:   100,
		},
	})
	if err != nil {
		return "", errors.NewUpstream(stageHiragana, err)
	}
	reading := strings.TrimSpace(raw)
	if reading == "" {
		return "", errors.NewUpstream(stageHiragana, fmt.Errorf("empty reading for %q", kanji))
	}
	return reading, nil
}

// CategorizeTerms maps English terms to categories. Categories outside the
// closed list become general.
func (t *Translator) CategorizeTerms(ctx context.Context, pairs []Pair) (map[string]string, error) {
	if len(pairs) == 0 {
		return map[string]string{}, nil
	}
	termsJSON, err := json.Marshal(pairs)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	raw, err := t.svc.Complete(ctx, llm.CompletionRequest{
		Stage: stageCategory,
		System: fmt.Sprintf(`Categorize these vocabulary terms into one of: %s

Return a JSON object mapping English terms to categories:
{
  "categorizations": {
    "variable": "programming_fundamentals",
    "database": "database"
  }
}`, strings.Join(vocab.Categories, ", ")),
		Prompt: "Categorize: " + string(termsJSON),
		Options: llm.Options{
			Model:       t.settings.Models.Fast,
			Temperature: t.settings.Temperature,
			MaxTokens:   t.settings.MaxTokens,
			JSONMode:    true,
		},
	})
	if err != nil {
		return nil, errors.NewUpstream(stageCategory, err)
	}

	reply, err := llm.Decode[categoryReply](stageCategory, categorySchema, raw)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(reply.Categorizations))
	for english, category := range reply.Categorizations {
		if !vocab.IsCategory(category) {
			category = vocab.DefaultCategory
		}
		out[english] = category
	}
	return out, nil
}

func translateSystemPrompt() string {
	return fmt.Sprintf(`You are a professional Japanese-English translator specializing in technical vocabulary. Translate vocabulary terms and provide complete flashcard data.

For each term:
1. If English, translate to Japanese (kanji + hiragana reading)
2. If Japanese, translate to English
3. Assign an appropriate category from: %s
4. If a term has multiple common meanings, set needsClarification to true and provide options
5. Provide a confidence score (0-1)

IMPORTANT:
- Always provide hiragana readings for Japanese words
- Use common, natural translations
- For technical terms, prefer widely-used Japanese equivalents
- If unsure about the best translation, include alternatives in clarificationOptions

Return a JSON object with this format:
{
  "translations": [
    {
      "english": "variable",
      "japaneseKanji": "変数",
      "hiragana": "へんすう",
      "category": "programming_fundamentals",
      "confidence": 0.95,
      "needsClarification": false,
      "clarificationOptions": null,
      "originalTerm": "variable",
      "originalLanguage": "en"
    }
  ]
}

For ambiguous terms:
{
  "english": "bank",
  "japaneseKanji": "",
  "hiragana": "",
  "category": "general",
  "confidence": 0.5,
  "needsClarification": true,
  "clarificationOptions": [
    {"japaneseKanji": "銀行", "hiragana": "ぎんこう", "meaning": "financial institution"},
    {"japaneseKanji": "土手", "hiragana": "どて", "meaning": "riverbank"}
  ],
  "originalTerm": "bank",
  "originalLanguage": "en"
}`, strings.Join(vocab.Categories, ", "))
}
