package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/vocab"
)

// ImportItem is one entry of a vocabulary import file.
type ImportItem struct {
	English       string `json:"english"`
	JapaneseKanji string `json:"japaneseKanji"`
	Hiragana      string `json:"hiragana"`
	Category      string `json:"category"`
}

// ImportInput contains parameters for the Import operation.
// Exactly one of Path and Items is used; Items wins when both are set.
type ImportInput struct {
	Path  string       // JSON array file
	Items []ImportItem // already decoded entries
	Force bool         // import into a non-empty store
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Message           string `json:"message"`
	Imported          int    `json:"imported"`
	TotalInStore      int    `json:"totalInStore"`
	DuplicatesRemoved int    `json:"duplicatesRemoved"`
	Invalid           int    `json:"invalid"`
}

// Import bulk-loads a vocabulary list. Entries repeating an
// english|kanji|hiragana triple are dropped, and the rest are written in
// batches with store-level duplicate skipping. A non-empty store is
// refused unless Force is set.
func Import(ctx context.Context, store FlashcardStore, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	items := input.Items
	if items == nil {
		if input.Path == "" {
			return nil, errors.NewInvalidRequest("path or items is required")
		}
		var err error
		items, err = readImportFile(input.Path, cfg)
		if err != nil {
			return nil, err
		}
	}

	existing, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if existing > 0 && !input.Force {
		return nil, errors.NewConflict(
			"store already contains flashcards; clear them first or force the import",
			map[string]any{"existingCount": existing})
	}

	seen := make(map[string]bool, len(items))
	cards := make([]vocab.FormattedFlashcard, 0, len(items))
	out := &ImportOutput{}
	for _, item := range items {
		english := strings.TrimSpace(item.English)
		kanji := strings.TrimSpace(item.JapaneseKanji)
		if english == "" || kanji == "" {
			out.Invalid++
			continue
		}
		key := strings.ToLower(english) + "|" + kanji + "|" + item.Hiragana
		if seen[key] {
			out.DuplicatesRemoved++
			continue
		}
		seen[key] = true

		category := item.Category
		if category == "" {
			category = vocab.DefaultCategory
		}
		cards = append(cards, vocab.FormattedFlashcard{
			Front:    english,
			Back:     vocab.FormatBack(kanji, item.Hiragana),
			Category: category,
		})
	}

	batchSize := cfg.ImportBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	for i := 0; i < len(cards); i += batchSize {
		batch := cards[i:min(i+batchSize, len(cards))]
		n, err := store.CreateMany(ctx, batch, true)
		if err != nil {
			return nil, partialImportError(err, out.Imported)
		}
		out.Imported += n
	}

	total, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}
	out.TotalInStore = total
	out.Message = fmt.Sprintf("Successfully imported %d vocabulary entries", out.Imported)
	return out, nil
}

func partialImportError(err error, imported int) error {
	tErr := errors.As(err)
	if tErr == nil {
		tErr = errors.NewInternal(err)
	}
	return tErr.WithDetails(map[string]any{"imported": imported})
}

// readImportFile decodes a JSON array of import items.
func readImportFile(path string, cfg *config.Config) ([]ImportItem, error) {
	if err := ValidatePath(path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(path)
	if err != nil {
		if errors.As(err) != nil {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	limit := cfg.MaxUploadBytes
	if limit <= 0 {
		limit = config.DefaultConfig().MaxUploadBytes
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return nil, errors.NewPayloadTooLarge(limit, int64(len(data)))
	}

	var items []ImportItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("import file must be a JSON array: %v", err))
	}
	if items == nil {
		items = []ImportItem{}
	}
	return items, nil
}
