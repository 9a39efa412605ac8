package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// scanHandler runs the whole pipeline on an uploaded photo. The image is the
// multipart field "image"; "expected_regime" and "check_overlap" are
// optional form fields.
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, ok := s.readUpload(w, r)
	if !ok {
		scanRequestsTotal.WithLabelValues("scan", "error").Inc()
		return
	}

	p, err := s.pipelineFor(r.FormValue("expected_regime"), r.FormValue("check_overlap"))
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	start := time.Now()
	res, err := p.Process(ctx, data)
	duration := time.Since(start)
	scanDuration.WithLabelValues("scan").Observe(duration.Seconds())
	if err != nil {
		scanRequestsTotal.WithLabelValues("scan", "error").Inc()
		s.writeProcessError(w, err)
		return
	}
	scanRequestsTotal.WithLabelValues("scan", "success").Inc()
	s.logger.Info("Scan processed",
		"kind", res.Record.Kind.String(),
		"issues", len(res.Issues),
		"elapsed_ms", duration.Milliseconds())
	s.writeJSON(w, http.StatusOK, ScanResponse{Success: true, Result: res, CanSave: res.CanSave()})
}

// readUpload reads the "image" form file. On failure the response has been
// written and ok is false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := s.maxUploadMB << 20
	// Leave room for the multipart envelope and form fields.
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(strings.ToLower(err.Error()), "too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, false
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return nil, false
	}
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return nil, false
	}
	return data, true
}
