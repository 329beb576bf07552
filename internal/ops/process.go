package ops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/extract"
	"github.com/hpungsan/tango/internal/llm"
	"github.com/hpungsan/tango/internal/metrics"
	"github.com/hpungsan/tango/internal/translate"
	"github.com/hpungsan/tango/internal/vocab"
)

// directBareConfidence is assigned to bare JSON terms kept untranslated.
const directBareConfidence = 0.7

// Pipeline wires the extraction, translation and reconciliation stages
// to one store and one Language Service.
type Pipeline struct {
	store      FlashcardStore
	extractor  *extract.Extractor
	translator *translate.Translator
	cfg        *config.Config
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// NewPipeline creates a Pipeline. svc is instrumented when m is non-nil.
func NewPipeline(store FlashcardStore, svc llm.Service, cfg *config.Config, log *slog.Logger, m *metrics.Metrics) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}
	svc = metrics.InstrumentService(svc, m)
	settings := llm.SettingsFrom(cfg.LLM)
	return &Pipeline{
		store:      store,
		extractor:  extract.New(svc, settings, cfg, log),
		translator: translate.New(svc, settings, cfg, log),
		cfg:        cfg,
		log:        log,
		metrics:    m,
	}
}

// Store returns the pipeline's flashcard store.
func (p *Pipeline) Store() FlashcardStore {
	return p.store
}

// ProcessInput contains parameters for the Process operation.
type ProcessInput struct {
	Content  []byte           // required
	FileType extract.FileType // optional, detected from MimeType/Filename
	MimeType string
	Filename string
	Options  *vocab.UploadOptions // nil: every step enabled
}

// Process runs an upload through the pipeline and returns a reviewable
// result. Nothing is written to the store. On failure the returned result
// has status error and the error carries the code.
func (p *Pipeline) Process(ctx context.Context, input ProcessInput) (*vocab.ProcessingResult, error) {
	start := time.Now()
	result, err := p.process(ctx, input)
	if err != nil {
		p.metrics.PipelineRun(string(vocab.StatusError))
		p.log.Warn("pipeline.process.error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return vocab.ErrorResult(errorMessage(err)), err
	}

	p.metrics.PipelineRun(string(result.Status))
	p.log.Info("pipeline.process.ok",
		"status", result.Status,
		"extracted", result.Stats.TotalExtracted,
		"translated", result.Stats.Translated,
		"duplicates", result.Stats.DuplicatesFound,
		"clarifications", result.Stats.ClarificationsNeeded,
		"elapsed_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, input ProcessInput) (*vocab.ProcessingResult, error) {
	size := int64(len(input.Content))
	if p.cfg.MaxUploadBytes > 0 && size > p.cfg.MaxUploadBytes {
		return nil, errors.NewPayloadTooLarge(p.cfg.MaxUploadBytes, size)
	}
	if len(strings.TrimSpace(string(input.Content))) == 0 {
		return nil, errors.NewInvalidRequest("content is required")
	}

	opts := vocab.DefaultOptions()
	if input.Options != nil {
		opts = *input.Options
	}

	fileType := input.FileType
	if fileType == "" {
		fileType = extract.DetectFileType(input.MimeType, input.Filename)
	}
	if !fileType.Supported() {
		return nil, errors.NewUnsupportedInput(string(fileType))
	}
	if fileType == extract.FileText && extract.LooksLikeJSON(input.Content) {
		fileType = extract.FileJSON
	}

	var (
		records   []vocab.TranslatedVocabulary
		extracted int
		err       error
	)
	if fileType == extract.FileJSON {
		records, extracted, err = p.fromStructured(ctx, input.Content, opts)
	} else {
		records, extracted, err = p.fromTerms(ctx, input, fileType, opts)
	}
	if err != nil {
		return nil, err
	}

	records = Deduplicate(records)

	if err := p.enrich(ctx, records, opts); err != nil {
		return nil, err
	}

	return p.assemble(ctx, records, extracted, opts)
}

// fromTerms extracts candidate terms and translates them.
func (p *Pipeline) fromTerms(ctx context.Context, input ProcessInput, fileType extract.FileType, opts vocab.UploadOptions) ([]vocab.TranslatedVocabulary, int, error) {
	terms, err := p.extractTerms(ctx, input, fileType)
	if err != nil {
		return nil, 0, err
	}
	if len(terms) == 0 {
		return nil, 0, errors.NewNoTermsExtracted()
	}

	if !opts.AutoTranslate {
		return directRecords(terms), len(terms), nil
	}
	records, err := p.translator.Translate(ctx, terms)
	if err != nil {
		return nil, 0, err
	}
	return records, len(terms), nil
}

func (p *Pipeline) extractTerms(ctx context.Context, input ProcessInput, fileType extract.FileType) ([]vocab.ExtractedTerm, error) {
	switch fileType {
	case extract.FileCSV:
		return extract.CSV(string(input.Content))
	case extract.FileXLSX:
		return extract.XLSX(input.Content)
	case extract.FileImage:
		terms, _, err := p.extractor.Image(ctx, input.Content, input.MimeType)
		return terms, err
	case extract.FileHTML:
		text, err := extract.HTMLText(input.Content)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return p.extractor.Text(ctx, text, fileType)
	default:
		return p.extractor.Text(ctx, string(input.Content), fileType)
	}
}

// fromStructured reads a JSON upload. Complete records come first, then
// the bare terms in input order.
func (p *Pipeline) fromStructured(ctx context.Context, data []byte, opts vocab.UploadOptions) ([]vocab.TranslatedVocabulary, int, error) {
	in, err := extract.Structured(data)
	if err != nil {
		return nil, 0, err
	}
	total := len(in.Vocabulary) + len(in.Terms)
	if total == 0 {
		return nil, 0, errors.NewNoTermsExtracted()
	}

	records := append([]vocab.TranslatedVocabulary{}, in.Vocabulary...)
	if len(in.Terms) == 0 {
		return records, total, nil
	}

	if !opts.AutoTranslate {
		for _, bt := range in.Terms {
			v := vocab.TranslatedVocabulary{
				Category:           bt.Category,
				Confidence:         directBareConfidence,
				NeedsClarification: true,
				OriginalTerm:       bt.Term,
				OriginalLanguage:   bt.Language,
			}
			switch bt.Language {
			case vocab.LangEnglish:
				v.English = bt.Term
			case vocab.LangJapanese:
				v.JapaneseKanji = bt.Term
			}
			records = append(records, v)
		}
		return records, total, nil
	}

	terms := make([]vocab.ExtractedTerm, len(in.Terms))
	for i, bt := range in.Terms {
		terms[i] = bt.ExtractedTerm
	}
	translated, err := p.translator.Translate(ctx, terms)
	if err != nil {
		return nil, 0, err
	}
	return append(records, translated...), total, nil
}

// directRecords maps extracted terms onto records without translation.
// Terms that are neither English nor Japanese are flagged for review.
func directRecords(terms []vocab.ExtractedTerm) []vocab.TranslatedVocabulary {
	out := make([]vocab.TranslatedVocabulary, 0, len(terms))
	for _, t := range terms {
		v := vocab.TranslatedVocabulary{
			Confidence:         t.Confidence,
			NeedsClarification: t.Language != vocab.LangEnglish && t.Language != vocab.LangJapanese,
			OriginalTerm:       t.Term,
			OriginalLanguage:   t.Language,
		}
		switch t.Language {
		case vocab.LangEnglish:
			v.English = t.Term
		case vocab.LangJapanese:
			v.JapaneseKanji = t.Term
		}
		out = append(out, v)
	}
	return out
}

// enrich fills missing readings and categories in place.
func (p *Pipeline) enrich(ctx context.Context, records []vocab.TranslatedVocabulary, opts vocab.UploadOptions) error {
	if opts.GenerateHiragana {
		for i := range records {
			v := &records[i]
			if v.NeedsClarification || v.JapaneseKanji == "" || v.Hiragana != "" {
				continue
			}
			reading, err := p.translator.GenerateHiragana(ctx, v.JapaneseKanji)
			if err != nil {
				return err
			}
			v.Hiragana = reading
		}
	}

	if opts.AutoCategorize {
		var pairs []translate.Pair
		for _, v := range records {
			if v.English != "" && !vocab.IsCategory(v.Category) {
				pairs = append(pairs, translate.Pair{English: v.English, Japanese: v.JapaneseKanji})
			}
		}
		if len(pairs) > 0 {
			categories, err := p.translator.CategorizeTerms(ctx, pairs)
			if err != nil {
				return err
			}
			for i := range records {
				if c, ok := categories[records[i].English]; ok && !vocab.IsCategory(records[i].Category) {
					records[i].Category = c
				}
			}
		}
	}

	for i := range records {
		if !vocab.IsCategory(records[i].Category) {
			records[i].Category = vocab.DefaultCategory
		}
	}
	return nil
}

// assemble checks the store for duplicates and builds the result.
func (p *Pipeline) assemble(ctx context.Context, records []vocab.TranslatedVocabulary, extracted int, opts vocab.UploadOptions) (*vocab.ProcessingResult, error) {
	result := &vocab.ProcessingResult{
		Status:               vocab.StatusSuccess,
		Vocabulary:           []vocab.TranslatedVocabulary{},
		ClarificationsNeeded: []vocab.ClarificationRequest{},
		Duplicates:           []vocab.DuplicateInfo{},
		Errors:               []string{},
	}

	var resolved []vocab.TranslatedVocabulary
	for i, v := range records {
		if v.IsTranslated() {
			result.Stats.Translated++
		}
		if !v.NeedsClarification {
			resolved = append(resolved, v)
			continue
		}
		options := v.ClarificationOptions
		if options == nil {
			options = []vocab.TranslationOption{}
		}
		result.ClarificationsNeeded = append(result.ClarificationsNeeded, vocab.ClarificationRequest{
			ID:               fmt.Sprintf("clarify-%d-%s", i, ulid.Make().String()),
			Term:             vocab.ClarificationKey(v),
			OriginalLanguage: v.OriginalLanguage,
			Options:          options,
		})
	}

	if opts.DetectDuplicates {
		dups, err := CheckDuplicates(ctx, p.store, resolved, p.log)
		if err != nil {
			return nil, err
		}
		result.Duplicates = dups
	}

	matched := make(map[string]bool, len(result.Duplicates))
	for _, d := range result.Duplicates {
		matched[vocab.TermKey(d.NewTerm)] = true
	}
	for _, v := range records {
		if !v.NeedsClarification && matched[vocab.TermKey(v)] {
			continue
		}
		result.Vocabulary = append(result.Vocabulary, v)
	}

	if len(result.ClarificationsNeeded) > 0 {
		result.Status = vocab.StatusNeedsClarification
	}
	result.Stats.TotalExtracted = extracted
	result.Stats.DuplicatesFound = len(result.Duplicates)
	result.Stats.ClarificationsNeeded = len(result.ClarificationsNeeded)
	return result, nil
}

// errorMessage renders an error for a result's message list.
func errorMessage(err error) string {
	if tErr := errors.As(err); tErr != nil {
		return tErr.Message
	}
	return err.Error()
}
