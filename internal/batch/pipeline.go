package batch

import (
	"io"

	"github.com/MeKo-Tech/intygscan/internal/pipeline"
)

// buildPipeline finishes a builder prepared by the caller with the batch
// worker count and progress reporting.
func buildPipeline(b *pipeline.Builder, config *Config, progress io.Writer) (*pipeline.Pipeline, error) {
	if b == nil {
		b = pipeline.NewBuilder()
	}
	b = b.WithParallelWorkers(config.Workers).
		WithProgressCallback(progressCallback(config, progress))
	return b.Build()
}

func progressCallback(config *Config, w io.Writer) pipeline.ProgressCallback {
	if !config.ShowProgress || config.Quiet || w == nil {
		return nil
	}
	cb := pipeline.NewConsoleProgressCallback(w, "Processing: ")
	if config.ProgressInterval > 0 {
		cb = cb.WithUpdateInterval(config.ProgressInterval)
	}
	return cb
}
