package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/formbridge/formbridge/internal/repository"
)

// Service is a tiny façade over the job store that produces XLSX bytes for
// extraction-run exports.
type Service struct {
	jobs   repository.JobStore
	logger *slog.Logger
}

func NewService(jobs repository.JobStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobsXLSX returns an XLSX workbook (as bytes) for the given date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all extraction jobs.
func (s *Service) ExportJobsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC); the upper bound gets end-of-day so
	// "to" is inclusive.
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}

	jobs, err := s.jobs.List(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query extraction jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Extractions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Submitted",
		"File",
		"Schema Key",
		"Case Type",
		"Case Sub Type",
		"User",
		"Status",
		"Result / Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, j := range jobs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if !j.CreatedAt.IsZero() {
			write(1, j.CreatedAt.Format("2006-01-02 15:04"))
		} else {
			write(1, "")
		}
		write(2, j.FileName)
		write(3, j.SchemaKey)
		write(4, j.CaseType)
		write(5, j.CaseSubType)
		write(6, j.UserID)
		write(7, string(j.Status))

		outcome := j.ErrorText
		if outcome == "" {
			outcome = string(j.ResultJSON)
		}
		write(8, truncate(outcome, 500))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 18) // submitted
	_ = f.SetColWidth(sheet, "B", "B", 44) // file
	_ = f.SetColWidth(sheet, "C", "C", 24) // schema key
	_ = f.SetColWidth(sheet, "D", "E", 20) // case type/subtype
	_ = f.SetColWidth(sheet, "F", "F", 24) // user
	_ = f.SetColWidth(sheet, "G", "G", 12) // status
	_ = f.SetColWidth(sheet, "H", "H", 80) // outcome

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(jobs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
