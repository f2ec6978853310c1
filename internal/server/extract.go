package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/formbridge/formbridge/internal/common"
	"github.com/formbridge/formbridge/internal/pipeline"
)

// Multipart uploads are read fully into memory; OCR providers want the raw
// bytes anyway. 32 MiB mirrors the provider's own document size ceiling.
const maxUploadBytes = 32 << 20

// extractResponse echoes the submission metadata alongside the extraction
// output so batch clients can correlate responses without extra state.
type extractResponse struct {
	DataSchemaKey     string         `json:"data_schema_key"`
	CaseType          string         `json:"case_type"`
	CaseSubType       string         `json:"case_sub_type"`
	UserID            string         `json:"user_id"`
	Timestamp         string         `json:"timestamp"`
	FormTextData      string         `json:"form_text_data"`
	ExtractedFormData map[string]any `json:"extracted_form_data"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, r, common.NewAppError("HTTP_MULTIPART", "parse multipart form", common.ErrInvalidInput))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, common.NewAppError("HTTP_MULTIPART", "missing file part", common.ErrInvalidInput))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.respondError(w, r, common.WrapError(err, "read upload"))
		return
	}
	if len(content) > maxUploadBytes {
		s.respondError(w, r, common.NewAppError("HTTP_MULTIPART", "file exceeds upload limit", common.ErrInvalidInput))
		return
	}

	field := func(name string) string { return strings.TrimSpace(r.FormValue(name)) }

	req := pipeline.Request{
		FileName:    header.Filename,
		Content:     content,
		SchemaKey:   field("data_schema_key"),
		CaseType:    field("case_type"),
		CaseSubType: field("case_sub_type"),
		UserID:      field("user_id"),
		Timestamp:   field("timestamp"),
	}
	v := common.NewValidator()
	v.Field("data_schema_key", req.SchemaKey, common.Required)
	v.Field("case_type", req.CaseType, common.MaxLength(128))
	v.Field("case_sub_type", req.CaseSubType, common.MaxLength(128))
	v.Field("user_id", req.UserID, common.MaxLength(128))
	if err := v.Error(); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Timestamp == "" {
		req.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	result, err := s.pipeline.Process(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, extractResponse{
		DataSchemaKey:     req.SchemaKey,
		CaseType:          req.CaseType,
		CaseSubType:       req.CaseSubType,
		UserID:            req.UserID,
		Timestamp:         req.Timestamp,
		FormTextData:      result.FormText,
		ExtractedFormData: result.Record,
	})
}
