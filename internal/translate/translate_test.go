package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/llm"
	"github.com/hpungsan/tango/internal/llm/llmtest"
	"github.com/hpungsan/tango/internal/logger"
	"github.com/hpungsan/tango/internal/vocab"
)

func newTestTranslator(svc llm.Service, batchSize int) *Translator {
	cfg := config.DefaultConfig()
	if batchSize > 0 {
		cfg.TranslateBatchSize = batchSize
	}
	return New(svc, llm.SettingsFrom(config.LLMConfig{}), cfg, logger.Discard())
}

// echoTranslator answers every batch with one record per requested term.
func echoTranslator() *llmtest.ServiceMock {
	return &llmtest.ServiceMock{
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (string, error) {
			var terms []struct {
				Term string `json:"term"`
			}
			payload := strings.TrimPrefix(req.Prompt, "Translate these vocabulary terms:\n")
			if err := json.Unmarshal([]byte(payload), &terms); err != nil {
				return "", err
			}
			out := make([]map[string]any, len(terms))
			for i, term := range terms {
				out[i] = map[string]any{"english": term.Term, "japaneseKanji": "語" + term.Term, "hiragana": "ご"}
			}
			b, _ := json.Marshal(map[string]any{"translations": out})
			return string(b), nil
		},
	}
}

func terms(n int) []vocab.ExtractedTerm {
	out := make([]vocab.ExtractedTerm, n)
	for i := range out {
		out[i] = vocab.ExtractedTerm{Term: fmt.Sprintf("t%02d", i), Language: vocab.LangEnglish, Confidence: 0.9}
	}
	return out
}

func TestTranslate_BatchesInOrder(t *testing.T) {
	svc := echoTranslator()
	tr := newTestTranslator(svc, 0)

	got, err := tr.Translate(context.Background(), terms(65))
	require.NoError(t, err)

	require.Len(t, got, 65)
	assert.Len(t, svc.CompleteCalls(), 3)
	for i, v := range got {
		assert.Equal(t, fmt.Sprintf("t%02d", i), v.English)
		assert.Equal(t, fmt.Sprintf("t%02d", i), v.OriginalTerm)
		assert.Equal(t, vocab.LangEnglish, v.OriginalLanguage)
	}
	assert.Equal(t, "gpt-4o", svc.CompleteCalls()[0].Model)
}

func TestTranslate_Empty(t *testing.T) {
	svc := echoTranslator()
	got, err := newTestTranslator(svc, 0).Translate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, svc.CompleteCalls())
}

func TestTranslate_Normalization(t *testing.T) {
	reply := `{"translations":[
		{"english":"variable","japaneseKanji":"変数","hiragana":"へんすう","category":"programming_fundamentals","confidence":0.95,
		 "clarificationOptions":[{"japaneseKanji":"x","hiragana":"y"}]},
		{"english":"bank","japaneseKanji":"銀行","hiragana":"ぎんこう","needsClarification":true,"confidence":0.5,
		 "clarificationOptions":[{"japaneseKanji":"銀行","hiragana":"ぎんこう","meaning":"financial institution"},
		                         {"japaneseKanji":"土手","hiragana":"どて","meaning":"riverbank"}]},
		{"english":"recipe","japaneseKanji":"レシピ","category":"cooking"},
		{"english":"loop","japaneseKanji":"ループ","category":null,"confidence":null}
	]}`
	tr := newTestTranslator(llmtest.Sequence(reply), 0)

	got, err := tr.Translate(context.Background(), terms(2))
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Nil(t, got[0].ClarificationOptions, "resolved records carry no options")
	assert.Equal(t, 0.95, got[0].Confidence)

	assert.True(t, got[1].NeedsClarification)
	assert.Empty(t, got[1].JapaneseKanji)
	assert.Empty(t, got[1].Hiragana)
	assert.Len(t, got[1].ClarificationOptions, 2)

	assert.Equal(t, "general", got[2].Category)
	assert.Equal(t, "general", got[3].Category)
	assert.Equal(t, 0.8, got[3].Confidence)

	// Reply count differs from the batch, so provenance is not guessed.
	assert.Empty(t, got[0].OriginalTerm)
}

func TestTranslate_ConfidenceKeepsExplicitZero(t *testing.T) {
	reply := `{"translations":[
		{"english":"t00","japaneseKanji":"語","hiragana":"ご","confidence":0},
		{"english":"t01","japaneseKanji":"語","hiragana":"ご","confidence":1.7},
		{"english":"t02","japaneseKanji":"語","hiragana":"ご","confidence":-0.2}
	]}`
	tr := newTestTranslator(llmtest.Sequence(reply), 0)

	got, err := tr.Translate(context.Background(), terms(3))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 0.0, got[0].Confidence)
	assert.Equal(t, 1.0, got[1].Confidence)
	assert.Equal(t, 0.0, got[2].Confidence)
}

func TestTranslate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		svc   llm.Service
		code  errors.ErrorCode
		stage string
	}{
		{"upstream", llmtest.Failing(fmt.Errorf("timeout")), errors.ErrUpstream, "translate batch 1/1"},
		{"missing translations", llmtest.Sequence(`{"items":[]}`), errors.ErrSchemaMismatch, "translate batch 1/1"},
		{"clarification without options", llmtest.Sequence(`{"translations":[{"english":"bank","needsClarification":true}]}`),
			errors.ErrSchemaMismatch, "translate batch 1/1"},
		{"clarification with empty options", llmtest.Sequence(`{"translations":[{"english":"bank","needsClarification":true,"clarificationOptions":[]}]}`),
			errors.ErrSchemaMismatch, "translate batch 1/1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestTranslator(tt.svc, 0).Translate(context.Background(), terms(3))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
			assert.Equal(t, tt.stage, errors.As(err).Details["stage"])
		})
	}
}

func TestTranslate_FailedBatchAborts(t *testing.T) {
	calls := 0
	svc := &llmtest.ServiceMock{
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (string, error) {
			calls++
			if calls == 2 {
				return "", fmt.Errorf("rate limited")
			}
			return echoTranslator().CompleteFunc(context.Background(), req)
		},
	}
	_, err := newTestTranslator(svc, 2).Translate(context.Background(), terms(6))
	require.Error(t, err)
	assert.Equal(t, "translate batch 2/3", errors.As(err).Details["stage"])
	assert.Equal(t, 2, calls)
}

func TestResolveClarification(t *testing.T) {
	v := vocab.TranslatedVocabulary{
		English: "bank", Category: "general", Confidence: 0.5, NeedsClarification: true,
		ClarificationOptions: []vocab.TranslationOption{{JapaneseKanji: "銀行", Hiragana: "ぎんこう"}},
		OriginalTerm:         "bank",
	}
	got := ResolveClarification(v, vocab.TranslationOption{JapaneseKanji: "土手", Hiragana: "どて"})

	assert.Equal(t, "土手", got.JapaneseKanji)
	assert.Equal(t, "どて", got.Hiragana)
	assert.False(t, got.NeedsClarification)
	assert.Nil(t, got.ClarificationOptions)
	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, "bank", got.OriginalTerm)
	// The input is untouched.
	assert.True(t, v.NeedsClarification)
}

func TestGenerateHiragana(t *testing.T) {
	svc := llmtest.ByStage(map[string]string{"hiragana": "  へんすう \n"})
	got, err := newTestTranslator(svc, 0).GenerateHiragana(context.Background(), "変数")
	require.NoError(t, err)
	assert.Equal(t, "へんすう", got)

	call := svc.CompleteCalls()[0]
	assert.Equal(t, 0.0, call.Temperature)
	assert.Equal(t, 100, call.MaxTokens)
	assert.False(t, call.JSONMode)

	_, err = newTestTranslator(llmtest.Sequence("   "), 0).GenerateHiragana(context.Background(), "変数")
	assert.True(t, errors.Is(err, errors.ErrUpstream))
}

func TestCategorizeTerms(t *testing.T) {
	svc := llmtest.ByStage(map[string]string{
		"categorize": `{"categorizations":{"variable":"programming_fundamentals","sushi":"food"}}`,
	})
	got, err := newTestTranslator(svc, 0).CategorizeTerms(context.Background(), []Pair{
		{English: "variable", Japanese: "変数"}, {English: "sushi", Japanese: "寿司"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"variable": "programming_fundamentals", "sushi": "general"}, got)

	got, err = newTestTranslator(svc, 0).CategorizeTerms(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = newTestTranslator(llmtest.Sequence(`{"categorizations":{"a":1}}`), 0).
		CategorizeTerms(context.Background(), []Pair{{English: "a"}})
	assert.True(t, errors.Is(err, errors.ErrSchemaMismatch))
}
