// Package httpapi exposes the invoice pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-invoice-reader/internal/invoice"
)

// DefaultMaxUploadSize is the multipart upload limit
const DefaultMaxUploadSize = 10 * 1024 * 1024

// uploadField is the multipart field carrying the PDF
const uploadField = "pdf"

// Extractor runs the invoice pipeline on a stored file
type Extractor interface {
	Extract(ctx context.Context, path string) (invoice.ExtractedInvoiceData, error)
}

// UploadResponse is the body of a successful upload
type UploadResponse struct {
	Success  bool                         `json:"success"`
	Data     invoice.ExtractedInvoiceData `json:"data"`
	FilePath string                       `json:"filePath"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Options configures the HTTP handler
type Options struct {
	UploadDir     string
	MaxUploadSize int64               // <= 0 means DefaultMaxUploadSize
	Gatherer      prometheus.Gatherer // nil disables /metrics
	Logger        *zap.Logger
}

// Handler serves the upload, health and metrics endpoints
type Handler struct {
	extractor Extractor
	opts      Options
	logger    *zap.Logger
	router    *mux.Router
}

// NewHandler builds the router
func NewHandler(extractor Extractor, opts Options) (*Handler, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}
	if opts.UploadDir == "" {
		return nil, fmt.Errorf("upload directory cannot be empty")
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Handler{extractor: extractor, opts: opts, logger: logger, router: mux.NewRouter()}

	h.router.HandleFunc("/api/invoices/upload", h.handleUpload).Methods(http.MethodPost)
	h.router.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	if opts.Gatherer != nil {
		h.router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.opts.MaxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large (max %d bytes)", h.opts.MaxUploadSize))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadSize)

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large (max %d bytes)", h.opts.MaxUploadSize))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			writeError(w, http.StatusBadRequest, "No file uploaded")
		default:
			h.logger.Warn("invalid upload", zap.Error(err))
			writeError(w, http.StatusBadRequest, "No file uploaded")
		}
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	path, err := h.store(file)
	if err != nil {
		h.logger.Error("failed to store upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	data, err := h.extractor.Extract(r.Context(), path)
	if err != nil {
		h.logger.Error("upload extraction failed", zap.String("path", path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{Success: true, Data: data, FilePath: path})
}

// store writes the upload to <UploadDir>/<uuid>.pdf
func (h *Handler) store(src io.Reader) (string, error) {
	if err := os.MkdirAll(h.opts.UploadDir, 0o750); err != nil {
		return "", fmt.Errorf("cannot create upload directory: %w", err)
	}

	path := filepath.Join(h.opts.UploadDir, uuid.NewString()+".pdf")
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// Serve runs an HTTP server on addr until ctx is cancelled, then shuts it
// down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
