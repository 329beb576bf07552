package web

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/extract"
	"github.com/hpungsan/tango/internal/ops"
	"github.com/hpungsan/tango/internal/vocab"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains HTTP route handlers.
type Handlers struct {
	pipeline *ops.Pipeline
	store    ops.FlashcardStore
	cfg      *config.Config
	log      *slog.Logger
	renderer *Renderer
}

// HandleIndex handles GET / — the API overview page.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.Count(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "index", IndexPageData{
		PageData: h.renderer.page("Tango", "home"),
		Body:     h.renderer.index,
		Count:    count,
	})
}

// HandleFlashcardsPage handles GET /flashcards — browse stored cards.
func (h *Handlers) HandleFlashcardsPage(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	result, err := ops.List(r.Context(), h.store, ops.ListInput{
		Category: category,
		Limit:    parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:   parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "flashcards", FlashcardsPageData{
		PageData:   h.renderer.page("Flashcards", "flashcards"),
		Items:      result.Items,
		Pagination: result.Pagination,
		Category:   category,
		Categories: vocab.Categories,
	})
}

// HandleAuditPage handles GET /flashcards/audit — duplicate groups.
func (h *Handlers) HandleAuditPage(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Audit(r.Context(), h.store)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "audit", AuditPageData{
		PageData: h.renderer.page("Duplicate audit", "audit"),
		Audit:    result,
	})
}

// HandleProcess handles POST /api/upload/process. The form carries either
// a "file" part or a "text" field, plus optional "options" JSON.
func (h *Handlers) HandleProcess(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20) // headroom for multipart framing

	input, err := h.processInput(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := h.pipeline.Process(r.Context(), input)
	if err != nil {
		tErr := errors.As(err)
		if tErr == nil {
			tErr = errors.NewInternal(err)
		}
		body := errorBody(tErr)
		body["result"] = result
		renderJSON(w, tErr.Status, body)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

func (h *Handlers) processInput(r *http.Request) (ops.ProcessInput, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil && err != http.ErrNotMultipart {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return ops.ProcessInput{}, errors.NewPayloadTooLarge(h.cfg.MaxUploadBytes, r.ContentLength)
		}
		return ops.ProcessInput{}, errors.NewInvalidRequest("invalid form data")
	}

	input := ops.ProcessInput{}
	if raw := r.FormValue("options"); raw != "" {
		opts, err := vocab.ParseOptions([]byte(raw))
		if err != nil {
			return input, errors.NewInvalidRequest("options must be a JSON object")
		}
		input.Options = &opts
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
		if err != nil {
			return input, errors.NewInvalidRequest("could not read uploaded file")
		}
		input.Content = data
		input.Filename = header.Filename
		input.MimeType = header.Header.Get("Content-Type")
		input.FileType = extract.DetectFileType(input.MimeType, input.Filename)
	case r.FormValue("text") != "":
		input.Content = []byte(r.FormValue("text"))
		input.FileType = extract.FileText
	default:
		return input, errors.NewInvalidRequest("no file or text content provided")
	}
	return input, nil
}

// HandleConfirm handles POST /api/upload/confirm.
func (h *Handlers) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var input ops.ConfirmInput
	if err := decodeJSON(r, &input, h.cfg.MaxUploadBytes); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if input.Vocabulary == nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("vocabulary must be an array"))
		return
	}

	result, err := h.pipeline.Confirm(r.Context(), input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"message":    "Vocabulary saved successfully",
		"saved":      result.Saved,
		"replaced":   result.Replaced,
		"skipped":    result.Skipped,
		"total":      result.Total,
		"unresolved": result.Unresolved,
	})
}

// HandleDetect handles GET /api/detect?text=.
func (h *Handlers) HandleDetect(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if strings.TrimSpace(text) == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("text is required"))
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"language": extract.Detect(text)})
}

// HandleList handles GET /api/flashcards.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(r.Context(), h.store, ops.ListInput{
		Category: r.URL.Query().Get("category"),
		Limit:    parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:   parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleClear handles DELETE /api/flashcards.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Clear(r.Context(), h.store)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleCount handles GET /api/flashcards/count.
func (h *Handlers) HandleCount(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Count(r.Context(), h.store)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleAudit handles GET /api/flashcards/audit.
func (h *Handlers) HandleAudit(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Audit(r.Context(), h.store)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleExport handles GET /api/flashcards/export — an XLSX download.
// Nothing is written to disk.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	cards, err := ops.Cards(r.Context(), h.store, category)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	buf, err := ops.Workbook(cards)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	filename := ops.ExportFilename(category, time.Now())

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleUpload handles POST /api/upload — ready-made cards, no pipeline.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r, h.cfg.MaxUploadBytes)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	result, err := ops.Upload(r.Context(), h.store, data)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleImport handles POST /api/import-vocab?force=true with a JSON array
// of vocabulary entries.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	var items []ops.ImportItem
	if err := decodeJSON(r, &items, h.cfg.MaxUploadBytes); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if items == nil {
		items = []ops.ImportItem{}
	}

	result, err := ops.Import(r.Context(), h.store, h.cfg, ops.ImportInput{
		Items: items,
		Force: parseBoolParam(r, "force"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// readBody reads at most limit bytes of the request body.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, errors.NewInvalidRequest("could not read request body")
	}
	if int64(len(data)) > limit {
		return nil, errors.NewPayloadTooLarge(limit, int64(len(data)))
	}
	return data, nil
}

// decodeJSON decodes a size-limited JSON request body into v.
func decodeJSON(r *http.Request, v any, limit int64) error {
	data, err := readBody(r, limit)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
