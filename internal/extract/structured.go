package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/vocab"
)

const (
	structuredConfidence = 1.0
	flashcardConfidence  = 0.9
	bareTermConfidence   = 0.9
)

// BareTerm is a structured item that names a term without a translation.
type BareTerm struct {
	vocab.ExtractedTerm
	Category string
}

// StructuredInput is the result of reading a JSON upload.
type StructuredInput struct {
	// Vocabulary holds items that already carry both sides.
	Vocabulary []vocab.TranslatedVocabulary
	// Terms holds bare term/word items, in input order.
	Terms []BareTerm
}

// Structured reads a JSON array or single object of vocabulary items.
// Items with no recognized shape are ignored.
func Structured(data []byte) (*StructuredInput, error) {
	data = bytes.TrimSpace(data)
	var items []map[string]any
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.NewInvalidRequest("invalid JSON: " + err.Error())
		}
		for _, r := range raw {
			var obj map[string]any
			if json.Unmarshal(r, &obj) == nil && obj != nil {
				items = append(items, obj)
			}
		}
	} else {
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, errors.NewInvalidRequest("invalid JSON: " + err.Error())
		}
		items = append(items, obj)
	}

	out := &StructuredInput{}
	for _, item := range items {
		category := firstString(item, "category")
		if category == "" {
			category = vocab.DefaultCategory
		}

		english := firstString(item, "english")
		kanji := firstString(item, "japaneseKanji", "japanese")
		front := firstString(item, "front")
		back := firstString(item, "back")

		switch {
		case english != "" && kanji != "":
			out.Vocabulary = append(out.Vocabulary, vocab.TranslatedVocabulary{
				English:       english,
				JapaneseKanji: kanji,
				Hiragana:      firstString(item, "hiragana", "reading"),
				Category:      category,
				Confidence:    structuredConfidence,
			})
		case front != "" && back != "":
			out.Vocabulary = append(out.Vocabulary, orientCard(front, back, category))
		default:
			term := firstString(item, "term", "word")
			if term == "" {
				continue
			}
			out.Terms = append(out.Terms, BareTerm{
				ExtractedTerm: vocab.ExtractedTerm{
					Term:       term,
					Language:   DetectFast(term),
					Confidence: bareTermConfidence,
				},
				Category: category,
			})
		}
	}
	return out, nil
}

// orientCard maps a front/back pair onto the English and kanji sides.
// A Japanese front is the kanji side; a composed back is split into kanji
// and reading.
func orientCard(front, back, category string) vocab.TranslatedVocabulary {
	v := vocab.TranslatedVocabulary{Category: category, Confidence: flashcardConfidence}
	if DetectFast(front) == vocab.LangJapanese {
		v.JapaneseKanji = front
		v.English = back
		return v
	}
	v.English = front
	kanji, reading, _ := vocab.SplitBack(back)
	v.JapaneseKanji = strings.TrimSpace(kanji)
	v.Hiragana = strings.TrimSpace(reading)
	return v
}

// LooksLikeJSON reports whether text parses as a JSON object or array.
func LooksLikeJSON(text []byte) bool {
	text = bytes.TrimSpace(text)
	if len(text) == 0 || (text[0] != '{' && text[0] != '[') {
		return false
	}
	return json.Valid(text)
}

func firstString(item map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := item[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
