package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/ops"
	"github.com/hpungsan/tango/internal/vocab"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "home", "flashcards", "audit"
}

// IndexPageData is the template data for the API overview page.
type IndexPageData struct {
	PageData
	Body  template.HTML
	Count int
}

// FlashcardsPageData is the template data for the flashcard list page.
type FlashcardsPageData struct {
	PageData
	Items      []vocab.Flashcard
	Pagination ops.Pagination
	Category   string
	Categories []string
}

// AuditPageData is the template data for the duplicate audit page.
type AuditPageData struct {
	PageData
	Audit *ops.AuditOutput
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	index     template.HTML
	version   string
}

// NewRenderer parses the page templates and renders the API overview
// markdown once.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"formatTime": formatTime,
		"kanji":      func(back string) string { k, _, _ := vocab.SplitBack(back); return k },
		"reading":    func(back string) string { _, r, _ := vocab.SplitBack(back); return r },
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"index":      "index.html",
		"flashcards": "flashcards.html",
		"audit":      "audit.html",
		"error":      "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	md, err := fs.ReadFile(templateFS, "api.md")
	if err != nil {
		md = []byte("# Tango")
	}

	return &Renderer{
		templates: templates,
		index:     renderMarkdown(string(md)),
		version:   version,
	}
}

// page returns the common page fields.
func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with HTTP 200.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		slog.Error("web.template.missing", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("web.template.error", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError writes err as JSON for API routes and JSON clients, and as
// an HTML page otherwise. Internal causes are never exposed.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	tErr := errors.As(err)
	if tErr == nil {
		tErr = errors.NewInternal(err)
	}
	if tErr.Status >= 500 {
		slog.ErrorContext(req.Context(), "http.error", "error", err, "req_id", RequestIDFromCtx(req.Context()))
	}

	if wantsJSON(req) {
		renderJSON(w, tErr.Status, errorBody(tErr))
		return
	}

	r.renderPageStatus(w, tErr.Status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", tErr.Status), ""),
		StatusCode: tErr.Status,
		Message:    tErr.Message,
	})
}

// errorBody is the JSON error envelope shared by every route.
func errorBody(tErr *errors.TangoError) map[string]any {
	body := map[string]any{
		"code":    string(tErr.Code),
		"message": tErr.Message,
		"status":  tErr.Status,
	}
	if tErr.Code != errors.ErrInternal && len(tErr.Details) > 0 {
		body["details"] = tErr.Details
	}
	return map[string]any{"error": body}
}

func wantsJSON(req *http.Request) bool {
	return strings.HasPrefix(req.URL.Path, "/api/") ||
		strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// markdown renders GitHub-flavored markdown (tables in the API overview).
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}
