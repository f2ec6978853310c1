package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/formbridge/formbridge/internal/common"
)

type uploadSchemaRequest struct {
	Key        string         `json:"key"`
	DataSchema map[string]any `json:"data_schema"`
}

func (s *Server) handleUploadSchema(w http.ResponseWriter, r *http.Request) {
	var req uploadSchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, common.NewAppError("HTTP_JSON", "decode request body", common.ErrInvalidInput))
		return
	}

	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		s.respondError(w, r, common.NewAppError("HTTP_FORM", "key is required", common.ErrInvalidInput))
		return
	}
	if len(req.DataSchema) == 0 {
		s.respondError(w, r, common.NewAppError("HTTP_FORM", "data_schema is required", common.ErrInvalidInput))
		return
	}

	location, err := s.schemas.Upload(r.Context(), req.Key, req.DataSchema)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"key":      req.Key,
		"location": location,
	})
}
