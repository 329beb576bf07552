package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEnglish(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Dog", "dog"},
		{"  Hash Table ", "hash table"},
		{"ice  cream", "ice  cream"},
		{"API\tGateway", "api\tgateway"},
		{"", ""},
		{"犬", "犬"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEnglish(tt.input))
		})
	}
}

func TestDedupKey(t *testing.T) {
	a := TranslatedVocabulary{English: "Variable", JapaneseKanji: "変数"}
	b := TranslatedVocabulary{English: "variable", JapaneseKanji: "変数"}
	c := TranslatedVocabulary{English: "variable", JapaneseKanji: "可変"}

	assert.Equal(t, DedupKey(a), DedupKey(b))
	assert.NotEqual(t, DedupKey(a), DedupKey(c))

	spaced := TranslatedVocabulary{English: "ice  cream", JapaneseKanji: "氷菓"}
	single := TranslatedVocabulary{English: "ice cream", JapaneseKanji: "氷菓"}
	assert.NotEqual(t, DedupKey(spaced), DedupKey(single))
}

func TestTermKey_FallsBackToKanji(t *testing.T) {
	assert.Equal(t, "dog", TermKey(TranslatedVocabulary{English: " Dog "}))
	assert.Equal(t, "ja:犬", TermKey(TranslatedVocabulary{JapaneseKanji: "犬"}))
}

func TestSameTerm(t *testing.T) {
	dog := TranslatedVocabulary{English: "dog", JapaneseKanji: "犬"}

	assert.True(t, SameTerm(dog, TranslatedVocabulary{English: "DOG", JapaneseKanji: "猫"}))
	assert.True(t, SameTerm(dog, TranslatedVocabulary{English: "hound", JapaneseKanji: "犬"}))
	assert.False(t, SameTerm(dog, TranslatedVocabulary{English: "cat", JapaneseKanji: "猫"}))
	assert.False(t, SameTerm(TranslatedVocabulary{}, TranslatedVocabulary{}))
}

func TestClarificationKey(t *testing.T) {
	assert.Equal(t, "bank", ClarificationKey(TranslatedVocabulary{OriginalTerm: "bank", English: "Bank"}))
	assert.Equal(t, "Bank", ClarificationKey(TranslatedVocabulary{English: "Bank"}))
	assert.Equal(t, "橋", ClarificationKey(TranslatedVocabulary{JapaneseKanji: "橋"}))
}

func TestFormatBack_RoundTrip(t *testing.T) {
	readings := []string{"いぬ", "へんすう", "", "カタカナ", "a)b", "ぎんこう )"}
	for _, reading := range readings {
		t.Run(reading, func(t *testing.T) {
			back := FormatBack("漢字", reading)
			got, ok := ReadingOf(back)
			require.True(t, ok)
			assert.Equal(t, reading, got)

			kanji, hasDelim := KanjiOf(back)
			assert.True(t, hasDelim)
			assert.Equal(t, "漢字", kanji)
		})
	}
}

func TestKanjiOf_MissingDelimiter(t *testing.T) {
	kanji, ok := KanjiOf("犬")
	assert.False(t, ok)
	assert.Equal(t, "犬", kanji)
}

func TestSplitBack(t *testing.T) {
	kanji, reading, ok := SplitBack("銀行 (ぎんこう)")
	assert.True(t, ok)
	assert.Equal(t, "銀行", kanji)
	assert.Equal(t, "ぎんこう", reading)

	kanji, reading, ok = SplitBack(" 銀行 ")
	assert.False(t, ok)
	assert.Equal(t, "銀行", kanji)
	assert.Empty(t, reading)
}

func TestToFlashcard(t *testing.T) {
	card, ok := ToFlashcard(TranslatedVocabulary{English: "dog", JapaneseKanji: "犬", Hiragana: "いぬ"})
	require.True(t, ok)
	assert.Equal(t, FormattedFlashcard{Front: "dog", Back: "犬 (いぬ)", Category: "general"}, card)

	_, ok = ToFlashcard(TranslatedVocabulary{English: "bank", NeedsClarification: true})
	assert.False(t, ok)

	_, ok = ToFlashcard(TranslatedVocabulary{JapaneseKanji: "犬"})
	assert.False(t, ok)
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)

	opts, err = ParseOptions([]byte(`{"autoTranslate":false}`))
	require.NoError(t, err)
	assert.False(t, opts.AutoTranslate)
	assert.True(t, opts.AutoCategorize)
	assert.True(t, opts.GenerateHiragana)
	assert.True(t, opts.DetectDuplicates)

	_, err = ParseOptions([]byte(`{not json`))
	assert.Error(t, err)
}

func TestIsCategory(t *testing.T) {
	assert.True(t, IsCategory("database"))
	assert.True(t, IsCategory("general"))
	assert.False(t, IsCategory("General"))
	assert.False(t, IsCategory("cooking"))
}

func TestErrorResult(t *testing.T) {
	res := ErrorResult("boom")
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, []string{"boom"}, res.Errors)
	assert.Equal(t, Stats{Errors: 1}, res.Stats)
	assert.NotNil(t, res.Vocabulary)
	assert.NotNil(t, res.Duplicates)
}
