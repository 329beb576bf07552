// Package vocab holds the vocabulary and flashcard types shared by every
// pipeline stage, plus the identity rules used to compare them.
package vocab

// Language is the detected language of a term.
type Language string

const (
	LangEnglish  Language = "en"
	LangJapanese Language = "ja"
	LangMixed    Language = "mixed"
	LangUnknown  Language = "unknown"
)

// Valid reports whether l is one of the known languages.
func (l Language) Valid() bool {
	switch l {
	case LangEnglish, LangJapanese, LangMixed, LangUnknown:
		return true
	}
	return false
}

// Categories is the closed list of flashcard categories.
var Categories = []string{
	"programming_fundamentals",
	"oop",
	"data_structures_algorithms",
	"web_development",
	"database",
	"devops",
	"cloud",
	"security",
	"ai_ml",
	"ui_ux",
	"general",
}

// DefaultCategory is used when no category is known.
const DefaultCategory = "general"

// IsCategory reports whether c is in Categories.
func IsCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ExtractedTerm is a candidate term produced by the extractor.
type ExtractedTerm struct {
	Term       string   `json:"term"`
	Language   Language `json:"language"`
	Context    string   `json:"context,omitempty"`
	Confidence float64  `json:"confidence"`
}

// TranslationOption is one candidate reading/meaning for an ambiguous term.
type TranslationOption struct {
	JapaneseKanji string `json:"japaneseKanji"`
	Hiragana      string `json:"hiragana"`
	Meaning       string `json:"meaning"`
}

// TranslatedVocabulary is a bilingual vocabulary record.
// When NeedsClarification is set, JapaneseKanji and Hiragana are empty and
// ClarificationOptions holds the candidates.
type TranslatedVocabulary struct {
	English              string              `json:"english"`
	JapaneseKanji        string              `json:"japaneseKanji"`
	Hiragana             string              `json:"hiragana"`
	Category             string              `json:"category"`
	Confidence           float64             `json:"confidence"`
	NeedsClarification   bool                `json:"needsClarification"`
	ClarificationOptions []TranslationOption `json:"clarificationOptions,omitempty"`
	OriginalTerm         string              `json:"originalTerm,omitempty"`
	OriginalLanguage     Language            `json:"originalLanguage,omitempty"`
}

// IsTranslated reports whether both the English and kanji sides are present.
func (v TranslatedVocabulary) IsTranslated() bool {
	return v.English != "" && v.JapaneseKanji != ""
}

// ExistingTerm is a point-in-time snapshot of a stored flashcard.
type ExistingTerm struct {
	ID       string `json:"id"`
	Front    string `json:"front"`
	Back     string `json:"back"`
	Category string `json:"category,omitempty"`
}

// DuplicateInfo pairs a new vocabulary record with the stored card it matches.
type DuplicateInfo struct {
	NewTerm      TranslatedVocabulary `json:"newTerm"`
	ExistingTerm ExistingTerm         `json:"existingTerm"`
}

// ClarificationRequest is a review-facing view of an ambiguous record.
type ClarificationRequest struct {
	ID               string              `json:"id"`
	Term             string              `json:"term"`
	OriginalLanguage Language            `json:"originalLanguage"`
	Options          []TranslationOption `json:"options"`
	Context          string              `json:"context,omitempty"`
}

// Status is the overall outcome of one processing run.
type Status string

const (
	StatusSuccess            Status = "success"
	StatusNeedsClarification Status = "needs_clarification"
	StatusError              Status = "error"
)

// Stats summarizes a processing run.
type Stats struct {
	TotalExtracted       int `json:"totalExtracted"`
	Translated           int `json:"translated"`
	DuplicatesFound      int `json:"duplicatesFound"`
	ClarificationsNeeded int `json:"clarificationsNeeded"`
	Errors               int `json:"errors"`
}

// ProcessingResult is the reviewable output of the pipeline.
type ProcessingResult struct {
	Status               Status                 `json:"status"`
	Vocabulary           []TranslatedVocabulary `json:"vocabulary"`
	ClarificationsNeeded []ClarificationRequest `json:"clarificationsNeeded"`
	Duplicates           []DuplicateInfo        `json:"duplicates"`
	Errors               []string               `json:"errors"`
	Stats                Stats                  `json:"stats"`
}

// ErrorResult builds an error-status result carrying the given messages.
func ErrorResult(messages ...string) *ProcessingResult {
	return &ProcessingResult{
		Status:               StatusError,
		Vocabulary:           []TranslatedVocabulary{},
		ClarificationsNeeded: []ClarificationRequest{},
		Duplicates:           []DuplicateInfo{},
		Errors:               messages,
		Stats:                Stats{Errors: 1},
	}
}

// FormattedFlashcard is the shape written to the flashcard store.
type FormattedFlashcard struct {
	Front    string `json:"front"`
	Back     string `json:"back"`
	Category string `json:"category"`
}

// Flashcard is a persisted flashcard record.
type Flashcard struct {
	ID        string `json:"id"`
	Front     string `json:"front"`
	Back      string `json:"back"`
	Category  string `json:"category,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Snapshot returns the duplicate-comparison view of the card.
func (f Flashcard) Snapshot() ExistingTerm {
	return ExistingTerm{ID: f.ID, Front: f.Front, Back: f.Back, Category: f.Category}
}

// FlashcardUpdate lists the fields to overwrite; nil fields are left alone.
type FlashcardUpdate struct {
	Front    *string
	Back     *string
	Category *string
}

// DuplicateAction is the user's decision for a store duplicate.
type DuplicateAction string

const (
	ActionKeepBoth DuplicateAction = "keep_both"
	ActionSkip     DuplicateAction = "skip"
	ActionReplace  DuplicateAction = "replace"
)

// UploadOptions controls optional pipeline steps. All default to true.
type UploadOptions struct {
	AutoTranslate    bool `json:"autoTranslate"`
	AutoCategorize   bool `json:"autoCategorize"`
	GenerateHiragana bool `json:"generateHiragana"`
	DetectDuplicates bool `json:"detectDuplicates"`
}

// DefaultOptions returns options with every step enabled.
func DefaultOptions() UploadOptions {
	return UploadOptions{
		AutoTranslate:    true,
		AutoCategorize:   true,
		GenerateHiragana: true,
		DetectDuplicates: true,
	}
}
