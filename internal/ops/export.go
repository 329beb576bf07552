package ops

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/vocab"
)

// exportSheet is the worksheet name in exported workbooks.
const exportSheet = "Flashcards"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path     string // optional, default: ~/.tango/exports/<category|all>-<timestamp>.xlsx
	Category string // optional filter
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes stored flashcards to an XLSX workbook. The file is written
// to a temp name and renamed into place, so an existing export survives a
// failed run.
func Export(ctx context.Context, store FlashcardStore, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(input.Category, now)
		if err != nil {
			return nil, err
		}
	}

	// Validate default paths too; the category becomes part of the name.
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	cards, err := Cards(ctx, store, input.Category)
	if err != nil {
		return nil, err
	}

	buf, err := Workbook(cards)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		if errors.As(err) != nil {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := buf.WriteTo(file); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path must not be a symlink")
	}

	// On Windows, os.Rename fails if the destination exists; keep the old file.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Count:      len(cards),
		ExportedAt: now.Unix(),
	}, nil
}

// Workbook renders cards as an XLSX workbook with one row per card.
func Workbook(cards []vocab.Flashcard) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("xlsx sheet: %w", err))
	}

	headers := []string{"English", "Japanese", "Reading", "Category", "Created"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(exportSheet, "A1", "E1", style)
	}

	for i, card := range cards {
		row := i + 2
		kanji, reading, _ := vocab.SplitBack(card.Back)
		values := []any{
			card.Front,
			kanji,
			reading,
			card.Category,
			time.Unix(card.CreatedAt, 0).UTC().Format("2006-01-02"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 32) // english
	_ = f.SetColWidth(exportSheet, "B", "C", 20) // japanese, reading
	_ = f.SetColWidth(exportSheet, "D", "D", 26) // category
	_ = f.SetColWidth(exportSheet, "E", "E", 12) // created

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("xlsx write: %w", err))
	}
	return buf, nil
}

// defaultExportPath generates the default export path.
// Format: ~/.tango/exports/<category>-<timestamp>.xlsx or all-<timestamp>.xlsx
func defaultExportPath(category string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ExportFilename(category, now)), nil
}

// ExportFilename names an export: <category|all>-<timestamp>.xlsx.
func ExportFilename(category string, now time.Time) string {
	name := "all"
	if c := strings.TrimSpace(category); c != "" {
		name = SanitizeForFilename(strings.ToLower(c))
	}
	return fmt.Sprintf("%s-%s%s", name, now.Format("2006-01-02T150405"), exportExt)
}
