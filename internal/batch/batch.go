// Package batch runs the certificate pipeline over many files: camera
// images go through OCR, saved scans (json, hOCR, TSV or plain text) skip it.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/intygscan/internal/pipeline"
)

// ErrNoInputs is returned when discovery finds nothing to process.
var ErrNoInputs = errors.New("no input files found")

// ProcessBatch discovers the inputs named by args and processes them with a
// pipeline built from b. Progress is drawn on progress when enabled.
func ProcessBatch(ctx context.Context, args []string, config *Config, b *pipeline.Builder, progress io.Writer) (*Result, error) {
	files, err := discoverFiles(args, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover input files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoInputs
	}

	jobs, skipped, err := loadJobs(files, config.ContinueOnError)
	if err != nil {
		return nil, fmt.Errorf("failed to load inputs: %w", err)
	}
	for _, s := range skipped {
		slog.Warn("Skipping input", "file", s.Path, "error", s.Error)
	}

	pl, err := buildPipeline(b, config, progress)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() {
		if err := pl.Close(); err != nil {
			slog.Warn("Error closing pipeline", "error", err)
		}
	}()

	res := &Result{
		Skipped:     skipped,
		WorkerCount: pl.Config().Parallel.MaxWorkers,
	}
	if len(jobs) == 0 {
		return res, nil
	}
	for _, j := range jobs {
		res.Paths = append(res.Paths, j.Name)
	}
	res.WorkerCount = min(res.WorkerCount, len(jobs))

	start := time.Now()
	results, err := pl.ProcessParallel(ctx, jobs)
	res.Duration = time.Since(start)
	res.Results = results
	if err != nil {
		return res, fmt.Errorf("batch processing interrupted: %w", err)
	}
	slog.Debug("Batch finished", "files", len(jobs), "skipped", len(skipped), "duration", res.Duration)
	return res, nil
}
