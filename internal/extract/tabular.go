package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/hpungsan/tango/internal/vocab"
)

// headerRegex matches a header cell of a vocabulary sheet.
var headerRegex = regexp.MustCompile(`(?i)^(english|japanese|term|word|kanji|hiragana)`)

const (
	singleCellConfidence = 0.9
	pairCellConfidence   = 0.95
)

// CSV parses delimited text locally into terms.
func CSV(content string) ([]vocab.ExtractedTerm, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, record)
	}
	return Rows(rows, Detect(content)), nil
}

// XLSX reads the first sheet of a workbook into terms.
func XLSX(data []byte) ([]vocab.ExtractedTerm, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	var all strings.Builder
	for _, row := range rows {
		all.WriteString(strings.Join(row, " "))
		all.WriteByte('\n')
	}
	return Rows(rows, Detect(all.String())), nil
}

// Rows converts table rows into terms. A header row is skipped. Single-cell
// rows take lang; in wider rows the first two cells are classified on their
// own and each English or Japanese cell becomes a term, except a kana-only
// second cell after a Japanese first cell.
func Rows(rows [][]string, lang vocab.Language) []vocab.ExtractedTerm {
	rows = trimRows(rows)
	if len(rows) > 0 && isHeader(rows[0]) {
		rows = rows[1:]
	}

	var terms []vocab.ExtractedTerm
	for _, row := range rows {
		if len(row) == 1 {
			terms = append(terms, vocab.ExtractedTerm{Term: row[0], Language: lang, Confidence: singleCellConfidence})
			continue
		}
		firstLang := DetectFast(row[0])
		if isTermLanguage(firstLang) {
			terms = append(terms, vocab.ExtractedTerm{Term: row[0], Language: firstLang, Confidence: pairCellConfidence})
		}
		// A kana second cell after a Japanese term is its reading.
		if firstLang == vocab.LangJapanese && isKanaReading(row[1]) {
			continue
		}
		secondLang := DetectFast(row[1])
		if isTermLanguage(secondLang) {
			terms = append(terms, vocab.ExtractedTerm{Term: row[1], Language: secondLang, Confidence: pairCellConfidence})
		}
	}
	return terms
}

func isTermLanguage(l vocab.Language) bool {
	return l == vocab.LangEnglish || l == vocab.LangJapanese
}

// isKanaReading reports whether s is written only in hiragana or katakana.
func isKanaReading(s string) bool {
	kana := false
	for _, r := range s {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana), r == 'ー', r == '・':
			kana = true
		case unicode.IsSpace(r):
		default:
			return false
		}
	}
	return kana
}

func isHeader(row []string) bool {
	for _, cell := range row {
		if headerRegex.MatchString(cell) {
			return true
		}
	}
	return false
}

// trimRows trims cells, drops trailing empty cells and blank rows.
func trimRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		last := -1
		for i, cell := range row {
			cells[i] = strings.Trim(strings.TrimSpace(cell), `"'`)
			if cells[i] != "" {
				last = i
			}
		}
		if last < 0 {
			continue
		}
		out = append(out, cells[:last+1])
	}
	return out
}
