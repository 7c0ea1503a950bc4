package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/grounding-cli/internal/citation"
	"github.com/sells-group/grounding-cli/internal/grounding"
)

type annotateRequest struct {
	Text     *string         `json:"text"`
	Metadata json.RawMessage `json:"metadata"`
}

type reportRequest struct {
	Text      *string         `json:"text"`
	Citations json.RawMessage `json:"citations"`
}

type scoreRequest struct {
	Metadata json.RawMessage `json:"metadata"`
}

type textResponse struct {
	Text string `json:"text"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// metadataFrom decodes an optional metadata field. Absent metadata is empty.
func metadataFrom(raw json.RawMessage) (*grounding.Metadata, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &grounding.Metadata{}, nil
	}
	return grounding.DecodeMetadata(raw, grounding.FormatJSON)
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var req annotateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	md, err := metadataFrom(req.Metadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid metadata")
		return
	}

	out, err := s.processor.Process(r.Context(), *req.Text, md)
	if err != nil {
		s.log.Error("api: annotate failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "annotation failed")
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: out})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	m := citation.New()
	if len(req.Citations) > 0 && string(req.Citations) != "null" {
		var err error
		m, err = citation.Decode(req.Citations, grounding.FormatJSON)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid citations")
			return
		}
	}

	out, err := s.reporter.AssembleReport(r.Context(), m, *req.Text)
	if err != nil {
		s.log.Error("api: report failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "report assembly failed")
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: out})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !s.decode(w, r, &req) {
		return
	}
	md, err := metadataFrom(req.Metadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid metadata")
		return
	}
	writeJSON(w, http.StatusOK, grounding.Evaluate(md, s.threshold))
}
