package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/vocab"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestStore_CreateAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, vocab.FormattedFlashcard{Front: "dog", Back: "犬 (いぬ)", Category: "general"})
	require.NoError(t, err)
	assert.Len(t, first.ID, 26)
	_, err = s.Create(ctx, vocab.FormattedFlashcard{Front: "cat", Back: "猫 (ねこ)"})
	require.NoError(t, err)

	cards, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "cat", cards[0].Front, "newest first")
	assert.Equal(t, "dog", cards[1].Front)
	assert.Empty(t, cards[0].Category)
	assert.Equal(t, "general", cards[1].Category)
}

func TestStore_ListEmpty(t *testing.T) {
	cards, err := newTestStore(t).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cards)
	assert.Empty(t, cards)
}

func TestStore_FindByFront(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, vocab.FormattedFlashcard{Front: "Hash Table", Back: "ハッシュ表 (はっしゅひょう)"})
	require.NoError(t, err)

	got, err := s.FindByFront(ctx, "hash table")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = s.FindByFront(ctx, "queue")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStore_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, vocab.FormattedFlashcard{Front: "bank", Back: "土手 (どて)", Category: "general"})
	require.NoError(t, err)

	back := "銀行 (ぎんこう)"
	updated, err := s.Update(ctx, created.ID, vocab.FlashcardUpdate{Back: &back})
	require.NoError(t, err)
	assert.Equal(t, "bank", updated.Front)
	assert.Equal(t, back, updated.Back)
	assert.Equal(t, "general", updated.Category)

	got, err := s.FindByFront(ctx, "BANK")
	require.NoError(t, err)
	assert.Equal(t, back, got.Back)

	_, err = s.Update(ctx, "missing", vocab.FlashcardUpdate{Back: &back})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStore_CreateMany(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, vocab.FormattedFlashcard{Front: "dog", Back: "犬 (いぬ)"})
	require.NoError(t, err)

	batch := []vocab.FormattedFlashcard{
		{Front: "Dog", Back: "犬 (いぬ)"},
		{Front: "cat", Back: "猫 (ねこ)"},
		{Front: "cat", Back: "猫 (ねこ)"},
		{Front: "dog", Back: "いぬ"},
	}

	n, err := s.CreateMany(ctx, batch, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	n, err = s.CreateMany(ctx, batch, false)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestStore_DeleteAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateMany(ctx, []vocab.FormattedFlashcard{{Front: "a", Back: "あ"}, {Front: "b", Back: "び"}}, false)
	require.NoError(t, err)

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_ContextCanceled(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.List(ctx)
	assert.True(t, errors.Is(err, errors.ErrInternal))
}
