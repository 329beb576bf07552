package ops

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/extract"
	"github.com/hpungsan/tango/internal/llm/llmtest"
	"github.com/hpungsan/tango/internal/metrics"
	"github.com/hpungsan/tango/internal/vocab"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

const bankTranslation = `{"translations":[
	{"english":"database","japaneseKanji":"データベース","hiragana":"でーたべーす","category":"database","confidence":0.95},
	{"english":"bank","needsClarification":true,"clarificationOptions":[
		{"japaneseKanji":"銀行","hiragana":"ぎんこう","meaning":"financial institution"},
		{"japaneseKanji":"土手","hiragana":"どて","meaning":"river bank"}]}
]}`

func TestProcess_TextNeedsClarification(t *testing.T) {
	svc := llmtest.ByStage(map[string]string{
		"extract":   `{"terms":[{"term":"database","language":"en"},{"term":"bank","language":"en","confidence":0.9}]}`,
		"translate": bankTranslation,
	})
	p := newTestPipeline(newTestStore(t), svc, nil)

	result, err := p.Process(context.Background(), ProcessInput{
		Content:  []byte("Notes about the database and the bank."),
		Filename: "notes.txt",
	})
	require.NoError(t, err)

	assert.Equal(t, vocab.StatusNeedsClarification, result.Status)
	require.Len(t, result.Vocabulary, 2)
	require.Len(t, result.ClarificationsNeeded, 1)

	req := result.ClarificationsNeeded[0]
	assert.True(t, strings.HasPrefix(req.ID, "clarify-1-"), req.ID)
	assert.Equal(t, "bank", req.Term)
	assert.Equal(t, vocab.LangEnglish, req.OriginalLanguage)
	assert.Len(t, req.Options, 2)

	assert.Equal(t, vocab.Stats{TotalExtracted: 2, Translated: 1, ClarificationsNeeded: 1}, result.Stats)
	assert.Empty(t, result.Errors)
	assert.NotNil(t, result.Errors)
	assert.Len(t, svc.CompleteCalls(), 2)
}

func TestProcess_ClarificationStillReportsDuplicates(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, card("database", "データベース (でーたべーす)", "database"))
	svc := llmtest.ByStage(map[string]string{
		"extract":   `{"terms":[{"term":"database","language":"en"},{"term":"bank","language":"en"}]}`,
		"translate": bankTranslation,
	})
	p := newTestPipeline(store, svc, nil)

	result, err := p.Process(context.Background(), ProcessInput{
		Content:  []byte("Notes about the database and the bank."),
		Filename: "notes.txt",
	})
	require.NoError(t, err)

	assert.Equal(t, vocab.StatusNeedsClarification, result.Status)

	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, "database", result.Duplicates[0].ExistingTerm.Front)
	assert.Equal(t, "database", result.Duplicates[0].NewTerm.English)

	require.Len(t, result.Vocabulary, 1)
	assert.Equal(t, "bank", result.Vocabulary[0].English)
	assert.True(t, result.Vocabulary[0].NeedsClarification)

	require.Len(t, result.ClarificationsNeeded, 1)
	assert.Equal(t, "bank", result.ClarificationsNeeded[0].Term)

	assert.Equal(t, 1, result.Stats.DuplicatesFound)
	assert.Equal(t, 1, result.Stats.ClarificationsNeeded)
	assert.Equal(t, 2, result.Stats.TotalExtracted)
}

func TestProcess_DuplicateFoundViaEnglish(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, card("dog", "犬 (いぬ)", "general"))
	// Complete records need no Language Service call.
	p := newTestPipeline(store, llmtest.Failing(fmt.Errorf("unexpected call")), nil)

	result, err := p.Process(context.Background(), ProcessInput{
		Content:  []byte(`[{"english":"Dog","japaneseKanji":"猫","hiragana":"ねこ","category":"general"}]`),
		FileType: extract.FileJSON,
	})
	require.NoError(t, err)

	assert.Equal(t, vocab.StatusSuccess, result.Status)
	assert.Empty(t, result.Vocabulary)
	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, "dog", result.Duplicates[0].ExistingTerm.Front)
	assert.Equal(t, "Dog", result.Duplicates[0].NewTerm.English)
	assert.Equal(t, 1, result.Stats.DuplicatesFound)
	assert.Equal(t, 1, result.Stats.Translated)
}

func TestProcess_DetectDuplicatesOff(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, card("dog", "犬 (いぬ)", "general"))
	p := newTestPipeline(store, llmtest.Failing(fmt.Errorf("unexpected call")), nil)

	opts := vocab.DefaultOptions()
	opts.DetectDuplicates = false
	result, err := p.Process(context.Background(), ProcessInput{
		Content:  []byte(`{"english":"dog","japaneseKanji":"犬","hiragana":"いぬ"}`),
		FileType: extract.FileJSON,
		Options:  &opts,
	})
	require.NoError(t, err)
	assert.Len(t, result.Vocabulary, 1)
	assert.Empty(t, result.Duplicates)
}

func TestProcess_CSVReadingColumnIsNotTranslated(t *testing.T) {
	svc := llmtest.ByStage(map[string]string{
		"translate": `{"translations":[{"english":"cat","japaneseKanji":"猫","hiragana":"ねこ","category":"general"}]}`,
	})
	p := newTestPipeline(newTestStore(t), svc, nil)

	result, err := p.Process(context.Background(), ProcessInput{
		Content:  []byte("word,reading\n猫,ねこ\n"),
		MimeType: "text/csv",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.TotalExtracted)
	calls := svc.CompleteCalls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, `"term":"猫"`)
	assert.NotContains(t, calls[0].Prompt, "ねこ")
}

func TestProcess_EnrichesMissingReading(t *testing.T) {
	svc := llmtest.ByStage(map[string]string{"hiragana": "へんすう"})
	p := newTestPipeline(newTestStore(t), svc, nil)

	result, err := p.Process(context.Background(), ProcessInput{
		Content:  []byte(`[{"english":"variable","japaneseKanji":"変数"}]`),
		FileType: extract.FileJSON,
	})
	require.NoError(t, err)

	require.Len(t, result.Vocabulary, 1)
	assert.Equal(t, "へんすう", result.Vocabulary[0].Hiragana)
	assert.Equal(t, "general", result.Vocabulary[0].Category)
}

func TestProcess_GenerateHiraganaOff(t *testing.T) {
	p := newTestPipeline(newTestStore(t), llmtest.Failing(fmt.Errorf("unexpected call")), nil)

	opts := vocab.DefaultOptions()
	opts.GenerateHiragana = false
	result, err := p.Process(context.Background(), ProcessInput{
		Content:  []byte(`[{"english":"variable","japaneseKanji":"変数"}]`),
		FileType: extract.FileJSON,
		Options:  &opts,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Vocabulary[0].Hiragana)
}

func TestProcess_TextThatIsJSON(t *testing.T) {
	svc := llmtest.ByStage(map[string]string{"hiragana": "いぬ"})
	p := newTestPipeline(newTestStore(t), svc, nil)

	result, err := p.Process(context.Background(), ProcessInput{
		Content:  []byte(`[{"front":"犬","back":"dog"}]`),
		FileType: extract.FileText,
	})
	require.NoError(t, err)

	require.Len(t, result.Vocabulary, 1)
	v := result.Vocabulary[0]
	assert.Equal(t, "dog", v.English)
	assert.Equal(t, "犬", v.JapaneseKanji)
	assert.Equal(t, "いぬ", v.Hiragana)
	assert.Equal(t, 0.9, v.Confidence)
}

func TestProcess_JSONBareTermsTranslatedAfterCompleteRecords(t *testing.T) {
	svc := llmtest.ByStage(map[string]string{
		"translate": `{"translations":[{"english":"database","japaneseKanji":"データベース","hiragana":"でーたべーす","category":"database"}]}`,
	})
	p := newTestPipeline(newTestStore(t), svc, nil)

	result, err := p.Process(context.Background(), ProcessInput{
		Content: []byte(`[{"term":"database"},{"english":"dog","japanese":"犬","reading":"いぬ"}]`),
	})
	require.NoError(t, err)

	require.Len(t, result.Vocabulary, 2)
	assert.Equal(t, "dog", result.Vocabulary[0].English)
	assert.Equal(t, 1.0, result.Vocabulary[0].Confidence)
	assert.Equal(t, "database", result.Vocabulary[1].English)
	assert.Equal(t, 2, result.Stats.TotalExtracted)
}

func TestProcess_JSONBareTermsWithoutTranslation(t *testing.T) {
	p := newTestPipeline(newTestStore(t), llmtest.Failing(fmt.Errorf("unexpected call")), nil)

	opts := vocab.DefaultOptions()
	opts.AutoTranslate = false
	opts.AutoCategorize = false
	result, err := p.Process(context.Background(), ProcessInput{
		Content:  []byte(`[{"term":"database"}]`),
		FileType: extract.FileJSON,
		Options:  &opts,
	})
	require.NoError(t, err)

	assert.Equal(t, vocab.StatusNeedsClarification, result.Status)
	require.Len(t, result.Vocabulary, 1)
	v := result.Vocabulary[0]
	assert.True(t, v.NeedsClarification)
	assert.Equal(t, 0.7, v.Confidence)
	assert.Equal(t, "database", v.English)
	assert.Equal(t, "database", v.OriginalTerm)
	require.Len(t, result.ClarificationsNeeded, 1)
	assert.NotNil(t, result.ClarificationsNeeded[0].Options)
}

func TestProcess_AutoTranslateOffCategorizes(t *testing.T) {
	svc := llmtest.ByStage(map[string]string{"categorize": `{"categorizations":{"dog":"oop"}}`})
	p := newTestPipeline(newTestStore(t), svc, nil)

	opts := vocab.DefaultOptions()
	opts.AutoTranslate = false
	result, err := p.Process(context.Background(), ProcessInput{
		Content:  []byte("dog\n"),
		FileType: extract.FileCSV,
		Options:  &opts,
	})
	require.NoError(t, err)

	assert.Equal(t, vocab.StatusSuccess, result.Status)
	require.Len(t, result.Vocabulary, 1)
	assert.Equal(t, "dog", result.Vocabulary[0].English)
	assert.Equal(t, "oop", result.Vocabulary[0].Category)
	assert.Equal(t, 0, result.Stats.Translated)
}

func TestProcess_DeduplicatesTranslations(t *testing.T) {
	svc := llmtest.ByStage(map[string]string{
		"extract": `[{"term":"variable"},{"term":"Variable"}]`,
		"translate": `{"translations":[
			{"english":"variable","japaneseKanji":"変数","hiragana":"へんすう","category":"programming_fundamentals","confidence":0.8},
			{"english":"Variable","japaneseKanji":"変数","hiragana":"へんすう","category":"programming_fundamentals","confidence":0.95}]}`,
	})
	p := newTestPipeline(newTestStore(t), svc, nil)

	result, err := p.Process(context.Background(), ProcessInput{Content: []byte("variable Variable")})
	require.NoError(t, err)

	require.Len(t, result.Vocabulary, 1)
	assert.Equal(t, "Variable", result.Vocabulary[0].English)
	assert.Equal(t, 2, result.Stats.TotalExtracted)
}

func TestProcess_Errors(t *testing.T) {
	small := config.DefaultConfig()
	small.MaxUploadBytes = 10

	tests := []struct {
		name  string
		cfg   *config.Config
		svc   *llmtest.ServiceMock
		input ProcessInput
		code  errors.ErrorCode
	}{
		{
			name:  "payload too large",
			cfg:   small,
			svc:   llmtest.Failing(fmt.Errorf("unexpected call")),
			input: ProcessInput{Content: []byte("this is more than ten bytes")},
			code:  errors.ErrPayloadTooLarge,
		},
		{
			name:  "empty content",
			svc:   llmtest.Failing(fmt.Errorf("unexpected call")),
			input: ProcessInput{Content: []byte("   ")},
			code:  errors.ErrInvalidRequest,
		},
		{
			name:  "pdf rejected",
			svc:   llmtest.Failing(fmt.Errorf("unexpected call")),
			input: ProcessInput{Content: []byte("%PDF-1.7"), Filename: "notes.pdf"},
			code:  errors.ErrUnsupportedInput,
		},
		{
			name:  "no terms",
			svc:   llmtest.ByStage(map[string]string{"extract": `{"terms":[]}`}),
			input: ProcessInput{Content: []byte("hello there")},
			code:  errors.ErrNoTermsExtracted,
		},
		{
			name:  "upstream failure",
			svc:   llmtest.Failing(fmt.Errorf("connection refused")),
			input: ProcessInput{Content: []byte("hello there")},
			code:  errors.ErrUpstream,
		},
		{
			name: "translation schema mismatch",
			svc: llmtest.ByStage(map[string]string{
				"extract":   `{"terms":[{"term":"bank"}]}`,
				"translate": `{"translations":[{"english":"bank","needsClarification":true}]}`,
			}),
			input: ProcessInput{Content: []byte("bank")},
			code:  errors.ErrSchemaMismatch,
		},
		{
			name:  "invalid json",
			svc:   llmtest.Failing(fmt.Errorf("unexpected call")),
			input: ProcessInput{Content: []byte(`{"english":`), FileType: extract.FileJSON},
			code:  errors.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(newTestStore(t), tt.svc, tt.cfg)

			result, err := p.Process(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)

			require.NotNil(t, result)
			assert.Equal(t, vocab.StatusError, result.Status)
			assert.Equal(t, vocab.Stats{Errors: 1}, result.Stats)
			require.Len(t, result.Errors, 1)
			assert.NotEmpty(t, result.Errors[0])
			assert.Empty(t, result.Vocabulary)
		})
	}
}

func TestProcess_StoreFailureDuringDuplicateCheck(t *testing.T) {
	store := &flakyStore{FlashcardStore: newTestStore(t), listErr: errors.NewInternal(fmt.Errorf("locked"))}
	p := newTestPipeline(store, llmtest.Failing(fmt.Errorf("unexpected call")), nil)

	result, err := p.Process(context.Background(), ProcessInput{
		Content:  []byte(`{"english":"dog","japaneseKanji":"犬","hiragana":"いぬ"}`),
		FileType: extract.FileJSON,
	})
	assert.True(t, errors.Is(err, errors.ErrInternal))
	assert.Equal(t, vocab.StatusError, result.Status)
}

func TestProcess_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	svc := llmtest.ByStage(map[string]string{"extract": `{"terms":[]}`})
	p := NewPipeline(newTestStore(t), svc, config.DefaultConfig(), nil, m)

	_, err := p.Process(context.Background(), ProcessInput{Content: []byte("hello there")})
	require.Error(t, err)

	runs, err := testutil.GatherAndCount(m.Registry(), "tango_pipeline_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
	calls, err := testutil.GatherAndCount(m.Registry(), "tango_llm_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
