package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/vocab"
)

// legacyCategory is the category given to uploaded cards without one.
const legacyCategory = "General"

// UploadOutput contains the result of the Upload operation.
type UploadOutput struct {
	Uploaded int    `json:"uploaded"`
	Message  string `json:"message"`
}

// Upload stores a JSON array of ready-made cards without running the
// pipeline. Each object may use front/back or english/japaneseKanji/hiragana.
// Objects missing a side are dropped.
func Upload(ctx context.Context, store FlashcardStore, data []byte) (*UploadOutput, error) {
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.NewInvalidRequest("invalid format: expected an array of objects")
	}

	cards := make([]vocab.FormattedFlashcard, 0, len(items))
	for _, item := range items {
		if card, ok := legacyCard(item); ok {
			cards = append(cards, card)
		}
	}
	if len(cards) == 0 {
		return nil, errors.NewInvalidRequest(`no valid flashcards found; each object needs "front" and "back" fields`)
	}

	n, err := store.CreateMany(ctx, cards, false)
	if err != nil {
		return nil, err
	}
	return &UploadOutput{
		Uploaded: n,
		Message:  fmt.Sprintf("Successfully uploaded %d flashcards!", n),
	}, nil
}

func legacyCard(item map[string]any) (vocab.FormattedFlashcard, bool) {
	front := stringField(item, "front")
	if front == "" {
		front = stringField(item, "english")
	}

	back := stringField(item, "back")
	if back == "" {
		kanji := stringField(item, "japaneseKanji")
		hiragana := stringField(item, "hiragana")
		switch {
		case kanji != "" && hiragana != "":
			back = vocab.FormatBack(kanji, hiragana)
		case kanji != "":
			back = kanji
		default:
			back = hiragana
		}
	}

	category := stringField(item, "category")
	if category == "" {
		category = legacyCategory
	}

	if front == "" || back == "" {
		return vocab.FormattedFlashcard{}, false
	}
	return vocab.FormattedFlashcard{Front: front, Back: back, Category: category}, true
}

func stringField(item map[string]any, key string) string {
	s, _ := item[key].(string)
	return strings.TrimSpace(s)
}
