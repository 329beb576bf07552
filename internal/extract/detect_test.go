package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hpungsan/tango/internal/vocab"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want vocab.Language
	}{
		{"english", "variable", vocab.LangEnglish},
		{"hiragana", "ねこ", vocab.LangJapanese},
		{"katakana", "データ", vocab.LangJapanese},
		{"kanji", "変数", vocab.LangJapanese},
		{"mixed", "dog 犬", vocab.LangMixed},
		{"two letters is not english", "ok", vocab.LangUnknown},
		{"digits", "12345", vocab.LangUnknown},
		{"empty", "", vocab.LangUnknown},
		{"split run", "a-b-c", vocab.LangUnknown},
		{"fullwidth latin is not english", "ＡＢＣ", vocab.LangUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text))
		})
	}
}

func TestDetectFast(t *testing.T) {
	assert.Equal(t, vocab.LangEnglish, DetectFast("ok"))
	assert.Equal(t, vocab.LangUnknown, DetectFast("a"))
	assert.Equal(t, vocab.LangMixed, DetectFast("UI 設計"))
	assert.Equal(t, vocab.LangJapanese, DetectFast("猫"))
}

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		mime     string
		filename string
		want     FileType
	}{
		{"image/png", "", FileImage},
		{"application/json", "", FileJSON},
		{"text/csv; charset=utf-8", "", FileCSV},
		{"text/html", "", FileHTML},
		{"application/pdf", "", FilePDF},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "", FileXLSX},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "", FileDocx},
		{"text/markdown", "notes.md", FileText},
		{"text/plain", "words.csv", FileCSV},
		{"", "photo.JPG", FileImage},
		{"", "deck.xlsx", FileXLSX},
		{"", "page.htm", FileHTML},
		{"", "scan.pdf", FilePDF},
		{"", "notes.txt", FileText},
		{"", "", FileText},
	}
	for _, tt := range tests {
		t.Run(tt.mime+"|"+tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFileType(tt.mime, tt.filename))
		})
	}
}

func TestFileType_Supported(t *testing.T) {
	assert.True(t, FileCSV.Supported())
	assert.True(t, FileImage.Supported())
	assert.False(t, FilePDF.Supported())
	assert.False(t, FileDocx.Supported())
}
