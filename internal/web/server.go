package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/metrics"
	"github.com/hpungsan/tango/internal/ops"
)

//go:embed templates/*
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates the HTTP server for the JSON API and the browser pages.
func NewServer(pipeline *ops.Pipeline, cfg *config.Config, m *metrics.Metrics, log *slog.Logger, version, bind string, port int) (*http.Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	h := &Handlers{
		pipeline: pipeline,
		store:    pipeline.Store(),
		cfg:      cfg,
		log:      log,
		renderer: NewRenderer(templateSub, version),
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	timeoutBody := `{"error":{"code":"UPSTREAM_FAILURE","message":"processing timed out","status":503}}`

	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /flashcards", h.HandleFlashcardsPage)
	mux.HandleFunc("GET /flashcards/audit", h.HandleAuditPage)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	// Pipeline
	mux.Handle("POST /api/upload/process", http.TimeoutHandler(http.HandlerFunc(h.HandleProcess), timeout, timeoutBody))
	mux.HandleFunc("POST /api/upload/confirm", h.HandleConfirm)
	mux.HandleFunc("GET /api/detect", h.HandleDetect)

	// Store
	mux.HandleFunc("GET /api/flashcards", h.HandleList)
	mux.HandleFunc("DELETE /api/flashcards", h.HandleClear)
	mux.HandleFunc("GET /api/flashcards/count", h.HandleCount)
	mux.HandleFunc("GET /api/flashcards/audit", h.HandleAudit)
	mux.HandleFunc("GET /api/flashcards/export", h.HandleExport)
	mux.HandleFunc("POST /api/upload", h.HandleUpload)
	mux.HandleFunc("POST /api/import-vocab", h.HandleImport)

	mux.Handle("GET /metrics", m.Handler())

	if log == nil {
		log = slog.Default()
	}
	handler := Chain(RequestID, Logger(log), Recovery(log), securityHeaders)(mux)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log *slog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("http.listen", "addr", "http://"+srv.Addr)
	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("http.listen.all_interfaces", "addr", srv.Addr)
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("http.shutdown")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
