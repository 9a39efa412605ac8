package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intygscan_scans_total",
			Help: "Total number of analyzed scans",
		},
		[]string{"kind"},
	)

	issuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intygscan_issues_total",
			Help: "Total number of issues raised on scans",
		},
		[]string{"code"},
	)

	ocrDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intygscan_ocr_duration_seconds",
			Help:    "OCR call duration in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 15, 25, 50},
		},
	)
)
