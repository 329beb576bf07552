// Package ops implements the vocabulary pipeline and the flashcard
// operations shared by the CLI, MCP and HTTP surfaces.
package ops

import (
	"context"

	"github.com/hpungsan/tango/internal/vocab"
)

// Pagination limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// FlashcardStore is the persistence the operations need. Both the SQLite
// store (db.Store) and the Postgres store (postgres.Store) satisfy it.
type FlashcardStore interface {
	// List returns every flashcard, newest first.
	List(ctx context.Context) ([]vocab.Flashcard, error)
	Create(ctx context.Context, card vocab.FormattedFlashcard) (*vocab.Flashcard, error)
	// CreateMany inserts cards and returns how many were written.
	CreateMany(ctx context.Context, cards []vocab.FormattedFlashcard, skipDuplicates bool) (int, error)
	// FindByFront matches case-insensitively and returns NOT_FOUND on a miss.
	FindByFront(ctx context.Context, front string) (*vocab.Flashcard, error)
	Update(ctx context.Context, id string, upd vocab.FlashcardUpdate) (*vocab.Flashcard, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) (int, error)
}
