package ops

import (
	"context"

	"github.com/hpungsan/tango/internal/vocab"
)

// AuditGroup is a set of stored cards sharing one key.
type AuditGroup struct {
	Key   string            `json:"key"`
	Cards []vocab.Flashcard `json:"cards"`
}

// AuditOutput reports duplicate cards in the store.
type AuditOutput struct {
	Total             int          `json:"total"`
	UniqueFronts      int          `json:"uniqueFronts"`
	UniqueJapanese    int          `json:"uniqueJapanese"`
	DuplicateFronts   []AuditGroup `json:"duplicateFronts"`
	DuplicateJapanese []AuditGroup `json:"duplicateJapanese"`
}

// Audit groups stored cards that share a case-insensitive front or a
// kanji|reading pair. Groups are ordered by their oldest card.
func Audit(ctx context.Context, store FlashcardStore) (*AuditOutput, error) {
	cards, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	var fronts, japanese groupIndex
	// Oldest first so group order and card order follow creation.
	for i := len(cards) - 1; i >= 0; i-- {
		card := cards[i]
		fronts.add(vocab.NormalizeEnglish(card.Front), card)
		kanji, reading, _ := vocab.SplitBack(card.Back)
		japanese.add(kanji+"|"+reading, card)
	}

	return &AuditOutput{
		Total:             len(cards),
		UniqueFronts:      len(fronts.order),
		UniqueJapanese:    len(japanese.order),
		DuplicateFronts:   fronts.duplicates(),
		DuplicateJapanese: japanese.duplicates(),
	}, nil
}

type groupIndex struct {
	order  []string
	groups map[string][]vocab.Flashcard
}

func (g *groupIndex) add(key string, card vocab.Flashcard) {
	if g.groups == nil {
		g.groups = make(map[string][]vocab.Flashcard)
	}
	if _, ok := g.groups[key]; !ok {
		g.order = append(g.order, key)
	}
	g.groups[key] = append(g.groups[key], card)
}

func (g *groupIndex) duplicates() []AuditGroup {
	out := []AuditGroup{}
	for _, key := range g.order {
		if cards := g.groups[key]; len(cards) > 1 {
			out = append(out, AuditGroup{Key: key, Cards: cards})
		}
	}
	return out
}
