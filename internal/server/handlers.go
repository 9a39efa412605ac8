package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/intygscan/internal/classify"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/pipeline"
	"github.com/MeKo-Tech/intygscan/internal/store"
	"github.com/MeKo-Tech/intygscan/internal/textnorm"
	"github.com/MeKo-Tech/intygscan/internal/version"
)

// maxJSONBody bounds /parse, /classify and /activities bodies.
const maxJSONBody = 4 << 20

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  version.Version,
		Time:     s.now().UTC().Format(time.RFC3339),
		Pipeline: s.pipeline.Info(),
		Memory:   pipeline.GetMemStats(),
	})
}

func (s *Server) kindsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	kinds := intyg.AllKinds()
	resp := KindsResponse{Kinds: make([]KindInfo, 0, len(kinds))}
	for _, k := range kinds {
		resp.Kinds = append(resp.Kinds, KindInfo{
			Kind:           k,
			Regime:         k.Regime(),
			Annex:          k.Annex(),
			HasDates:       k.HasDates(),
			Administrative: k.IsAdministrative(),
			Labels:         intyg.LabelsFor(k),
		})
	}
	resp.Count = len(resp.Kinds)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) classifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req ClassifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		s.writeErrorResponse(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	regime, err := intyg.ParseRegime(req.ExpectedRegime)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	res := classify.Classify(textnorm.Normalize(req.Text), nil, regime)
	scanRequestsTotal.WithLabelValues("classify", "success").Inc()
	s.writeJSON(w, http.StatusOK, ClassifyResponse{
		Kind:           res.Kind,
		Signals:        res.Signals,
		Regime:         res.Regime,
		RegimeMismatch: res.RegimeMismatch,
		Labels:         intyg.LabelsFor(res.Kind),
	})
}

// parseHandler analyzes an OCR result produced elsewhere, posted as scan
// JSON.
func (s *Server) parseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		s.writeErrorResponse(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	scan, err := ocr.DecodeScan(data)
	if err != nil {
		scanRequestsTotal.WithLabelValues("parse", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := s.pipelineFor(r.URL.Query().Get("expected_regime"), r.URL.Query().Get("check_overlap"))
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := p.ProcessScan(r.Context(), scan)
	if err != nil {
		scanRequestsTotal.WithLabelValues("parse", "error").Inc()
		s.writeProcessError(w, err)
		return
	}
	scanRequestsTotal.WithLabelValues("parse", "success").Inc()
	s.writeJSON(w, http.StatusOK, ScanResponse{Success: true, Result: res, CanSave: res.CanSave()})
}

// activitiesHandler lists (GET) or saves (POST an extracted record)
// activities.
func (s *Server) activitiesHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeErrorResponse(w, "Activity store not configured", http.StatusServiceUnavailable)
		return
	}
	switch r.Method {
	case http.MethodGet:
		hidden, _ := strconv.ParseBool(r.URL.Query().Get("include_hidden"))
		items, err := s.store.List(r.Context(), store.ListOptions{IncludeHidden: hidden})
		if err != nil {
			s.logger.Error("Listing activities failed", "error", err)
			s.writeErrorResponse(w, "Failed to list activities", http.StatusInternalServerError)
			return
		}
		if items == nil {
			items = []store.Activity{}
		}
		s.writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var rec intyg.Record
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&rec); err != nil {
			s.writeErrorResponse(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
		a, err := store.FromRecord(rec)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		saved, err := s.store.Save(r.Context(), a)
		if err != nil {
			s.logger.Error("Saving activity failed", "error", err)
			s.writeErrorResponse(w, "Failed to save activity", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, http.StatusCreated, saved)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// pipelineFor applies the per-request overrides. Empty values keep the
// server's settings.
func (s *Server) pipelineFor(expectedRegime, checkOverlap string) (*pipeline.Pipeline, error) {
	var o pipeline.Overrides
	if expectedRegime != "" {
		regime, err := intyg.ParseRegime(expectedRegime)
		if err != nil {
			return nil, err
		}
		o.ExpectedRegime = &regime
	}
	if checkOverlap != "" {
		v, err := strconv.ParseBool(checkOverlap)
		if err != nil {
			return nil, errors.New("check_overlap must be true or false")
		}
		o.CheckOverlap = &v
	}
	return s.pipeline.With(o), nil
}

// statusForError maps pipeline and upload errors to HTTP statuses.
func statusForError(err error) int {
	var imgErr *ocr.ImageError
	switch {
	case errors.Is(err, ocr.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ocr.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &imgErr):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrOCRTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, pipeline.ErrEmptyText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrOCRFailed):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrNoRecognizer):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeProcessError(w http.ResponseWriter, err error) {
	resp := ScanResponse{Error: err.Error()}
	if issue, ok := pipeline.IssueForError(err); ok {
		resp.Issue = &issue
	}
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("Scan request failed", "status", status, "error", err)
	}
	s.writeJSON(w, status, resp)
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ScanResponse{Success: false, Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}
