package extract

import (
	"path/filepath"
	"strings"
)

// FileType is the kind of uploaded material.
type FileType string

const (
	FileText  FileType = "text"
	FileCSV   FileType = "csv"
	FileXLSX  FileType = "xlsx"
	FileHTML  FileType = "html"
	FileJSON  FileType = "json"
	FileImage FileType = "image"
	FilePDF   FileType = "pdf"
	FileDocx  FileType = "docx"
)

// Supported reports whether the pipeline can read this file type.
func (f FileType) Supported() bool {
	switch f {
	case FileText, FileCSV, FileXLSX, FileHTML, FileJSON, FileImage:
		return true
	}
	return false
}

// DetectFileType resolves the file type from the MIME type, falling back
// to the filename extension. Unknown material is treated as text.
func DetectFileType(mimeType, filename string) FileType {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return FileImage
	case mimeType == "application/json":
		return FileJSON
	case mimeType == "text/csv":
		return FileCSV
	case mimeType == "text/html":
		return FileHTML
	case mimeType == "application/pdf":
		return FilePDF
	case strings.Contains(mimeType, "spreadsheetml"):
		return FileXLSX
	case strings.Contains(mimeType, "word") || strings.Contains(mimeType, "document"):
		return FileDocx
	case strings.HasPrefix(mimeType, "text/") && mimeType != "text/plain":
		return FileText
	}

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "json":
		return FileJSON
	case "csv":
		return FileCSV
	case "xlsx":
		return FileXLSX
	case "html", "htm":
		return FileHTML
	case "pdf":
		return FilePDF
	case "docx", "doc":
		return FileDocx
	case "png", "jpg", "jpeg", "gif", "webp":
		return FileImage
	}
	return FileText
}
