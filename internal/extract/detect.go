// Package extract turns uploaded material into candidate vocabulary terms.
package extract

import (
	"unicode"

	"github.com/hpungsan/tango/internal/vocab"
)

// Detect classifies text by the scripts it contains. A run of at least
// three ASCII letters counts as English.
func Detect(text string) vocab.Language {
	return detect(text, 3)
}

// DetectFast is Detect with a two-letter English threshold, for short cells.
func DetectFast(text string) vocab.Language {
	return detect(text, 2)
}

func detect(text string, minLatinRun int) vocab.Language {
	hasJapanese := false
	hasEnglish := false
	run := 0
	for _, r := range text {
		if isJapanese(r) {
			hasJapanese = true
		}
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			run++
			if run >= minLatinRun {
				hasEnglish = true
			}
		} else {
			run = 0
		}
		if hasJapanese && hasEnglish {
			break
		}
	}

	switch {
	case hasJapanese && hasEnglish:
		return vocab.LangMixed
	case hasJapanese:
		return vocab.LangJapanese
	case hasEnglish:
		return vocab.LangEnglish
	default:
		return vocab.LangUnknown
	}
}

// isJapanese reports hiragana, katakana and CJK unified ideographs.
func isJapanese(r rune) bool {
	return (r >= 0x3040 && r <= 0x309F) ||
		(r >= 0x30A0 && r <= 0x30FF) ||
		(r >= 0x4E00 && r <= 0x9FAF)
}
