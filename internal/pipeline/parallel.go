package pipeline

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/intygscan/internal/ocr"
)

// ParallelConfig holds configuration for processing many scans.
type ParallelConfig struct {
	MaxWorkers       int              // 0 = runtime.NumCPU()
	ProgressCallback ProgressCallback // optional
}

// DefaultParallelConfig returns one worker per CPU.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// Job is one input of ProcessParallel. Exactly one of Image and Scan is
// expected; Scan wins when both are set.
type Job struct {
	Name  string
	Image []byte
	Scan  *ocr.Result
}

// JobResult is the outcome of one Job.
type JobResult struct {
	Name     string        `json:"name"`
	Result   *Result       `json:"result,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration_ns"`
}

// ProcessParallel processes jobs with a worker pool and returns the
// outcomes in input order. Per-job failures are kept on the JobResult; the
// returned error is only set when ctx ends early.
func (p *Pipeline) ProcessParallel(ctx context.Context, jobs []Job) ([]JobResult, error) {
	if len(jobs) == 0 {
		return nil, errors.New("no scans provided")
	}
	cfg := p.cfg.Parallel
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(jobs))

	progress := cfg.ProgressCallback
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	progress.OnStart(len(jobs))
	defer progress.OnComplete()

	type indexed struct {
		i   int
		res JobResult
	}
	queue := make(chan int)
	out := make(chan indexed, len(jobs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				out <- indexed{i: i, res: p.runJob(ctx, jobs[i])}
			}
		}()
	}

	go func() {
		defer close(queue)
		for i := range jobs {
			select {
			case queue <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]JobResult, len(jobs))
	for i := range jobs {
		results[i].Name = jobs[i].Name
	}
	done := 0
	for r := range out {
		results[r.i] = r.res
		done++
		if r.res.Err != nil {
			progress.OnError(done, r.res.Err)
		}
		progress.OnProgress(done, len(jobs))
	}

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (p *Pipeline) runJob(ctx context.Context, job Job) JobResult {
	start := time.Now()
	var (
		res *Result
		err error
	)
	if job.Scan != nil {
		res, err = p.ProcessScan(ctx, job.Scan)
	} else {
		res, err = p.Process(ctx, job.Image)
	}
	if err != nil {
		p.logger.Debug("Scan failed", "name", job.Name, "error", err)
	}
	return JobResult{Name: job.Name, Result: res, Err: err, Duration: time.Since(start)}
}

// ParallelStats summarizes a ProcessParallel run.
type ParallelStats struct {
	Total            int           `json:"total"`
	Processed        int           `json:"processed"`
	Failed           int           `json:"failed"`
	Unrecognized     int           `json:"unrecognized"`
	Blocked          int           `json:"blocked"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats counts outcomes. Blocked results have at least one
// issue that prevents saving.
func CalculateParallelStats(results []JobResult, duration time.Duration, workerCount int) ParallelStats {
	st := ParallelStats{Total: len(results), WorkerCount: workerCount, TotalDuration: duration}
	for _, r := range results {
		switch {
		case r.Err != nil || r.Result == nil:
			st.Failed++
			continue
		case !r.Result.Classification.Recognized():
			st.Unrecognized++
		}
		st.Processed++
		if !r.Result.CanSave() {
			st.Blocked++
		}
	}
	if st.Processed > 0 && duration > 0 {
		st.ThroughputPerSec = float64(st.Processed) / duration.Seconds()
	}
	return st
}
