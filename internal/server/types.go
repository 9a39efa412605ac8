package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/pipeline"
	"github.com/MeKo-Tech/intygscan/internal/store"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    *pipeline.Pipeline
	store       *store.Store
	rateLimiter *RateLimiter
	logger      *slog.Logger
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	now         func() time.Time
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	// RequestsPerMinute limits requests per client IP on the scan
	// endpoints. Zero disables rate limiting.
	RequestsPerMinute int
	Logger            *slog.Logger
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Time     string            `json:"time"`
	Pipeline map[string]any    `json:"pipeline,omitempty"`
	Memory   pipeline.MemStats `json:"memory"`
}

// KindInfo describes one certificate kind for a review UI.
type KindInfo struct {
	Kind           intyg.Kind   `json:"kind"`
	Regime         intyg.Regime `json:"regime"`
	Annex          int          `json:"annex"`
	HasDates       bool         `json:"hasDates"`
	Administrative bool         `json:"administrative"`
	Labels         intyg.Labels `json:"labels"`
}

// KindsResponse is returned by /kinds.
type KindsResponse struct {
	Kinds []KindInfo `json:"kinds"`
	Count int        `json:"count"`
}

// ScanResponse wraps a pipeline result or the reason there is none.
type ScanResponse struct {
	Success bool             `json:"success"`
	Result  *pipeline.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
	// Issue is set when OCR failed in a way the user can retry.
	Issue *pipeline.Issue `json:"issue,omitempty"`
	// CanSave mirrors Result.CanSave for clients that do not inspect issues.
	CanSave bool `json:"canSave"`
}

// ClassifyRequest is the body of POST /classify.
type ClassifyRequest struct {
	Text           string `json:"text"`
	ExpectedRegime string `json:"expected_regime,omitempty"`
}

// ClassifyResponse is returned by POST /classify.
type ClassifyResponse struct {
	Kind           intyg.Kind   `json:"kind"`
	Signals        []string     `json:"signals"`
	Regime         intyg.Regime `json:"regime,omitempty"`
	RegimeMismatch bool         `json:"regimeMismatch"`
	Labels         intyg.Labels `json:"labels"`
}

// ErrNoPipeline is returned by NewServer without a pipeline.
var ErrNoPipeline = errors.New("server needs a pipeline")

// NewServer creates a server around p. st is optional; without it the
// activity endpoints answer 503.
func NewServer(config Config, p *pipeline.Pipeline, st *store.Store) (*Server, error) {
	if p == nil {
		return nil, ErrNoPipeline
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := config.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 10
	}
	timeout := time.Duration(config.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	origin := config.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	s := &Server{
		pipeline:    p,
		store:       st,
		logger:      logger,
		corsOrigin:  origin,
		maxUploadMB: maxUpload,
		timeout:     timeout,
		now:         time.Now,
	}
	if config.RequestsPerMinute > 0 {
		s.rateLimiter = NewRateLimiter(config.RequestsPerMinute, 0)
	}
	return s, nil
}

// Close releases server resources. The store is owned by the caller.
func (s *Server) Close() error {
	return s.pipeline.Close()
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/kinds", s.corsMiddleware(s.kindsHandler))
	mux.HandleFunc("/scan", s.corsMiddleware(s.rateLimitMiddleware(s.scanHandler)))
	mux.HandleFunc("/parse", s.corsMiddleware(s.rateLimitMiddleware(s.parseHandler)))
	mux.HandleFunc("/classify", s.corsMiddleware(s.classifyHandler))
	mux.HandleFunc("/activities", s.corsMiddleware(s.activitiesHandler))
	mux.HandleFunc("/ws/scan", s.rateLimitMiddleware(s.scanWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
