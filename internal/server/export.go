package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/formbridge/formbridge/internal/common"
)

// handleExport streams an XLSX workbook of extraction runs, optionally
// bounded by from/to query parameters (YYYY-MM-DD, inclusive).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	parseDate := func(name string) (*time.Time, error) {
		raw := strings.TrimSpace(r.URL.Query().Get(name))
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, common.NewAppError("HTTP_FORM",
				fmt.Sprintf("%s must be YYYY-MM-DD", name), common.ErrInvalidInput)
		}
		return &t, nil
	}

	from, err := parseDate("from")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	to, err := parseDate("to")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	xlsx, err := s.exporter.ExportJobsXLSX(r.Context(), from, to)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="extractions.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(xlsx); err != nil {
		s.logger.Warn("http.respond_failed", "error", err)
	}
}
