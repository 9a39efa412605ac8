package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/intygscan/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	Workers int

	// File discovery
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output
	Format     string
	OutputFile string

	// Progress
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration

	// ContinueOnError keeps going after a file fails to load. Failed scans
	// are always reported; this only governs unreadable inputs.
	ContinueOnError bool
}

// Result holds the result of batch processing.
type Result struct {
	Results     []pipeline.JobResult
	Paths       []string
	Skipped     []SkippedFile
	Duration    time.Duration
	WorkerCount int
}

// SkippedFile is an input that could not be turned into a job.
type SkippedFile struct {
	Path  string `json:"file"`
	Error string `json:"error"`
}

// Stats summarizes the run.
func (r *Result) Stats() pipeline.ParallelStats {
	return pipeline.CalculateParallelStats(r.Results, r.Duration, r.WorkerCount)
}

// Failed counts scans that produced no result plus skipped inputs.
func (r *Result) Failed() int {
	return r.Stats().Failed + len(r.Skipped)
}

// FormatResults formats the batch results as json, csv or text.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}
	_, err = fmt.Fprint(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", len(r.Paths)+len(r.Skipped))
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.Processed)
	_, _ = fmt.Fprintf(w, "  Unrecognized: %d\n", stats.Unrecognized)
	_, _ = fmt.Fprintf(w, "  Blocked: %d\n", stats.Blocked)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	_, _ = fmt.Fprintf(w, "  Skipped: %d\n", len(r.Skipped))
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f files/sec\n", stats.ThroughputPerSec)
}
