package ops

import (
	"context"
	"log/slog"

	"github.com/hpungsan/tango/internal/vocab"
)

// CheckDuplicates matches records against the stored flashcards with one
// read of the store. English (case-insensitive front) is tried first, then
// the kanji part of the stored back. Each record yields at most one match.
func CheckDuplicates(ctx context.Context, store FlashcardStore, records []vocab.TranslatedVocabulary, log *slog.Logger) ([]vocab.DuplicateInfo, error) {
	dups := []vocab.DuplicateInfo{}
	if len(records) == 0 {
		return dups, nil
	}
	if log == nil {
		log = slog.Default()
	}

	existing, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	byFront := make(map[string]vocab.ExistingTerm, len(existing))
	byKanji := make(map[string]vocab.ExistingTerm, len(existing))
	// List is newest first; walk backwards so the oldest card wins a key.
	for i := len(existing) - 1; i >= 0; i-- {
		card := existing[i]
		if front := vocab.NormalizeEnglish(card.Front); front != "" {
			if _, ok := byFront[front]; !ok {
				byFront[front] = card.Snapshot()
			}
		}
		kanji, ok := vocab.KanjiOf(card.Back)
		if !ok {
			log.Warn("duplicates.back.no_delimiter", "id", card.ID, "back", card.Back)
		}
		if kanji != "" {
			if _, seen := byKanji[kanji]; !seen {
				byKanji[kanji] = card.Snapshot()
			}
		}
	}

	for _, v := range records {
		if match, ok := byFront[vocab.NormalizeEnglish(v.English)]; ok && v.English != "" {
			dups = append(dups, vocab.DuplicateInfo{NewTerm: v, ExistingTerm: match})
			continue
		}
		if match, ok := byKanji[v.JapaneseKanji]; ok && v.JapaneseKanji != "" {
			dups = append(dups, vocab.DuplicateInfo{NewTerm: v, ExistingTerm: match})
		}
	}
	return dups, nil
}
