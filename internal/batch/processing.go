package batch

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/pipeline"
)

// loadJob turns a file into a pipeline job. Images are sent to OCR; saved
// scans skip it.
func loadJob(path string) (pipeline.Job, error) {
	if ocr.IsSupportedImage(path) {
		data, err := os.ReadFile(path) //nolint:gosec // G304: batch inputs are user-provided paths
		if err != nil {
			return pipeline.Job{}, fmt.Errorf("read image %s: %w", path, err)
		}
		return pipeline.Job{Name: path, Image: data}, nil
	}
	scan, err := ocr.LoadScanFile(path)
	if err != nil {
		return pipeline.Job{}, fmt.Errorf("load scan %s: %w", path, err)
	}
	return pipeline.Job{Name: path, Scan: scan}, nil
}

// loadJobs loads every path. With continueOnError, unreadable files are
// returned as skipped instead of failing the batch.
func loadJobs(paths []string, continueOnError bool) ([]pipeline.Job, []SkippedFile, error) {
	jobs := make([]pipeline.Job, 0, len(paths))
	var skipped []SkippedFile
	for _, p := range paths {
		job, err := loadJob(p)
		if err != nil {
			if !continueOnError {
				return nil, nil, err
			}
			skipped = append(skipped, SkippedFile{Path: p, Error: err.Error()})
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, skipped, nil
}
