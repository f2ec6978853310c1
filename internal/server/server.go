package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/formbridge/formbridge/internal/common"
	"github.com/formbridge/formbridge/internal/pipeline"
)

// Pipeline is the extraction entry point the HTTP layer drives.
type Pipeline interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// SchemaUploader persists uploaded schema documents.
type SchemaUploader interface {
	Upload(ctx context.Context, key string, document map[string]any) (string, error)
}

// JobExporter produces XLSX exports of past extraction runs.
type JobExporter interface {
	ExportJobsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error)
}

// Server owns the HTTP surface: extraction submissions, schema uploads and
// job exports.
type Server struct {
	pipeline Pipeline
	schemas  SchemaUploader
	exporter JobExporter
	logger   *slog.Logger
}

func New(p Pipeline, schemas SchemaUploader, exporter JobExporter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{pipeline: p, schemas: schemas, exporter: exporter, logger: logger}
}

// Router builds the chi mux with the standard middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleWelcome)
	r.Route("/api", func(r chi.Router) {
		r.Post("/extract/", s.handleExtract)
		r.Post("/upload-schema", s.handleUploadSchema)
		r.Get("/export", s.handleExport)
	})
	return r
}

func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"message": "document extraction service",
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("http.respond_failed", "error", err)
	}
}

// respondError maps pipeline failures onto status codes: client-caused
// failures (bad filename, unknown schema key, unprocessable document) get a
// 400 with the cause; everything else is a generic 500.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var procErr *common.ProcessingError
	switch {
	case errors.As(err, &procErr),
		errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrInvalidFilename),
		errors.Is(err, common.ErrValidation):
		s.logger.Warn("http.request_rejected", "path", r.URL.Path, "error", err)
		s.respondJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	default:
		s.logger.Error("http.request_failed", "path", r.URL.Path, "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}
}
