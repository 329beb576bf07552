package ops

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tango/internal/logger"
	"github.com/hpungsan/tango/internal/vocab"
)

func TestCheckDuplicates_EnglishPathWins(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, card("dog", "犬 (いぬ)", "general"))

	dups, err := CheckDuplicates(context.Background(), store,
		[]vocab.TranslatedVocabulary{{English: "Dog", JapaneseKanji: "猫"}}, logger.Discard())
	require.NoError(t, err)

	require.Len(t, dups, 1)
	assert.Equal(t, "dog", dups[0].ExistingTerm.Front)
	assert.Equal(t, "犬 (いぬ)", dups[0].ExistingTerm.Back)
	assert.Equal(t, "Dog", dups[0].NewTerm.English)
}

func TestCheckDuplicates_KanjiFallback(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, card("hound", "犬 (いぬ)", "general"))

	dups, err := CheckDuplicates(context.Background(), store,
		[]vocab.TranslatedVocabulary{{English: "dog", JapaneseKanji: "犬"}}, logger.Discard())
	require.NoError(t, err)

	require.Len(t, dups, 1)
	assert.Equal(t, "hound", dups[0].ExistingTerm.Front)
}

func TestCheckDuplicates_OneMatchPerItem(t *testing.T) {
	store := newTestStore(t)
	seed(t, store,
		card("dog", "犬 (いぬ)", ""),
		card("canine", "猫 (ねこ)", ""),
	)

	dups, err := CheckDuplicates(context.Background(), store,
		[]vocab.TranslatedVocabulary{{English: "DOG", JapaneseKanji: "猫"}, {English: "bird", JapaneseKanji: "鳥"}}, logger.Discard())
	require.NoError(t, err)

	require.Len(t, dups, 1)
	assert.Equal(t, "dog", dups[0].ExistingTerm.Front)
}

func TestCheckDuplicates_BackWithoutDelimiter(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, card("cat", "猫", ""))

	dups, err := CheckDuplicates(context.Background(), store,
		[]vocab.TranslatedVocabulary{{English: "kitty", JapaneseKanji: "猫"}}, logger.Discard())
	require.NoError(t, err)

	require.Len(t, dups, 1)
	assert.Equal(t, "cat", dups[0].ExistingTerm.Front)
}

func TestCheckDuplicates_EmptySidesNeverMatch(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, card("", "犬 (いぬ)", ""))

	dups, err := CheckDuplicates(context.Background(), store,
		[]vocab.TranslatedVocabulary{{English: "", JapaneseKanji: ""}}, logger.Discard())
	require.NoError(t, err)
	assert.Empty(t, dups)
}

func TestCheckDuplicates_StoreError(t *testing.T) {
	store := &flakyStore{FlashcardStore: newTestStore(t), listErr: fmt.Errorf("connection reset")}

	_, err := CheckDuplicates(context.Background(), store,
		[]vocab.TranslatedVocabulary{{English: "dog"}}, logger.Discard())
	assert.Error(t, err)
}

func TestCheckDuplicates_NoRecordsSkipsStore(t *testing.T) {
	store := &flakyStore{FlashcardStore: newTestStore(t), listErr: fmt.Errorf("must not be called")}

	dups, err := CheckDuplicates(context.Background(), store, nil, logger.Discard())
	require.NoError(t, err)
	assert.NotNil(t, dups)
}
