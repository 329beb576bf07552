package ops

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/db"
	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/llm"
	"github.com/hpungsan/tango/internal/logger"
	"github.com/hpungsan/tango/internal/vocab"
)

// Compile-time checks that both stores satisfy FlashcardStore.
var _ FlashcardStore = (*db.Store)(nil)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return db.NewStore(database)
}

func newTestPipeline(store FlashcardStore, svc llm.Service, cfg *config.Config) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return NewPipeline(store, svc, cfg, logger.Discard(), nil)
}

func seed(t *testing.T, store FlashcardStore, cards ...vocab.FormattedFlashcard) {
	t.Helper()
	for _, c := range cards {
		_, err := store.Create(context.Background(), c)
		require.NoError(t, err)
	}
}

func card(front, back, category string) vocab.FormattedFlashcard {
	return vocab.FormattedFlashcard{Front: front, Back: back, Category: category}
}

// flakyStore wraps a store and fails Create after a number of successes,
// or every List when listErr is set.
type flakyStore struct {
	FlashcardStore
	createsBeforeFailure int
	creates              int
	listErr              error
}

func (s *flakyStore) Create(ctx context.Context, c vocab.FormattedFlashcard) (*vocab.Flashcard, error) {
	if s.creates >= s.createsBeforeFailure {
		return nil, errors.NewInternal(fmt.Errorf("disk full"))
	}
	s.creates++
	return s.FlashcardStore.Create(ctx, c)
}

func (s *flakyStore) List(ctx context.Context) ([]vocab.Flashcard, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.FlashcardStore.List(ctx)
}
