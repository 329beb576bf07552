package vocab

import (
	"bytes"
	"encoding/json"
	"strings"
)

// backDelimiter separates the kanji from the reading in a stored back.
const backDelimiter = " ("

// NormalizeEnglish is the identity form of an English term: trimmed and
// lowercased. Internal spacing is significant.
func NormalizeEnglish(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DedupKey is the intra-batch identity key: normalized English plus exact kanji.
func DedupKey(v TranslatedVocabulary) string {
	return NormalizeEnglish(v.English) + "|" + v.JapaneseKanji
}

// TermKey identifies a record when pairing it with its store duplicate.
// Records without English fall back to their kanji.
func TermKey(v TranslatedVocabulary) string {
	if en := NormalizeEnglish(v.English); en != "" {
		return en
	}
	return "ja:" + v.JapaneseKanji
}

// SameTerm reports whether two records name the same term: English matches
// case-insensitively, or kanji matches exactly.
func SameTerm(a, b TranslatedVocabulary) bool {
	if en := NormalizeEnglish(a.English); en != "" && en == NormalizeEnglish(b.English) {
		return true
	}
	return a.JapaneseKanji != "" && a.JapaneseKanji == b.JapaneseKanji
}

// ClarificationKey is the key a clarification resolution is filed under.
func ClarificationKey(v TranslatedVocabulary) string {
	if v.OriginalTerm != "" {
		return v.OriginalTerm
	}
	if v.English != "" {
		return v.English
	}
	return v.JapaneseKanji
}

// FormatBack composes the stored back: "<kanji> (<hiragana>)".
func FormatBack(kanji, hiragana string) string {
	return kanji + backDelimiter + hiragana + ")"
}

// KanjiOf returns the part of a stored back before the first " (".
// When the delimiter is missing the whole back is returned and ok is false.
func KanjiOf(back string) (kanji string, ok bool) {
	if i := strings.Index(back, backDelimiter); i >= 0 {
		return back[:i], true
	}
	return back, false
}

// ReadingOf returns the text between the first '(' and the last ')'.
func ReadingOf(back string) (string, bool) {
	open := strings.Index(back, "(")
	end := strings.LastIndex(back, ")")
	if open < 0 || end < open {
		return "", false
	}
	return back[open+1 : end], true
}

// SplitBack splits a composed back into kanji and reading.
func SplitBack(back string) (kanji, reading string, ok bool) {
	kanji, hasDelim := KanjiOf(back)
	if !hasDelim {
		return strings.TrimSpace(back), "", false
	}
	reading, ok = ReadingOf(back)
	return kanji, reading, ok
}

// ToFlashcard formats a resolved record. ok is false when a side is missing
// or the record still needs clarification.
func ToFlashcard(v TranslatedVocabulary) (FormattedFlashcard, bool) {
	if v.NeedsClarification || v.English == "" || v.JapaneseKanji == "" {
		return FormattedFlashcard{}, false
	}
	category := v.Category
	if category == "" {
		category = DefaultCategory
	}
	return FormattedFlashcard{
		Front:    v.English,
		Back:     FormatBack(v.JapaneseKanji, v.Hiragana),
		Category: category,
	}, true
}

// ParseOptions decodes upload options over the defaults, so absent
// fields stay enabled.
func ParseOptions(data []byte) (UploadOptions, error) {
	opts := DefaultOptions()
	if len(bytes.TrimSpace(data)) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return DefaultOptions(), err
	}
	return opts, nil
}
