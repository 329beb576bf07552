package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/tango/internal/vocab"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Category string // optional filter, exact match
	Limit    int    // default: 50, max: 500
	Offset   int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []vocab.Flashcard `json:"items"`
	Pagination Pagination        `json:"pagination"`
	Sort       string            `json:"sort"`
}

// List returns stored flashcards, newest first, with pagination.
func List(ctx context.Context, store FlashcardStore, input ListInput) (*ListOutput, error) {
	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	cards, err := Cards(ctx, store, input.Category)
	if err != nil {
		return nil, err
	}

	total := len(cards)
	items := []vocab.Flashcard{}
	if offset < total {
		items = append(items, cards[offset:min(offset+limit, total)]...)
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}

// Cards returns every stored flashcard, newest first, optionally limited
// to one category.
func Cards(ctx context.Context, store FlashcardStore, category string) ([]vocab.Flashcard, error) {
	cards, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return cards, nil
	}
	filtered := cards[:0:0]
	for _, c := range cards {
		if c.Category == category {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// CountOutput contains the result of the Count operation.
type CountOutput struct {
	Count int `json:"count"`
}

// Count returns the number of stored flashcards.
func Count(ctx context.Context, store FlashcardStore) (*CountOutput, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &CountOutput{Count: n}, nil
}

// ClearOutput contains the result of the Clear operation.
type ClearOutput struct {
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}

// Clear deletes every stored flashcard.
func Clear(ctx context.Context, store FlashcardStore) (*ClearOutput, error) {
	n, err := store.DeleteAll(ctx)
	if err != nil {
		return nil, err
	}
	return &ClearOutput{Deleted: n, Message: "All flashcards cleared successfully"}, nil
}
