package cmd

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/intygscan/internal/batch"
	"github.com/MeKo-Tech/intygscan/internal/config"
	"github.com/MeKo-Tech/intygscan/internal/ocr"
)

// batchCmd represents the batch command for parallel processing.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Process many certificate photos and scans in parallel",
	Long: `Process many certificate files with a pool of workers.

Images (JPEG, PNG, WebP, BMP, TIFF, GIF) are sent to the OCR engine; saved
scans (.json, .hocr, .html, .tsv, .txt) are extracted directly.

Examples:
  intygscan batch scans/*.json
  intygscan batch photos/ --recursive --workers 8
  intygscan batch scans/ --format csv --output intyg.csv --stats`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config.
// Changed flags win over config values.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := &batch.Config{
		Workers:         cfg.Batch.Workers,
		Recursive:       cfg.Batch.Recursive,
		IncludePatterns: cfg.Batch.Include,
		ExcludePatterns: cfg.Batch.Exclude,
		ContinueOnError: cfg.Batch.ContinueOnError,
	}
	bc.Format, bc.OutputFile = outputSettings(cmd, cfg)

	if cmd.Flags().Changed("workers") {
		bc.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("recursive") {
		bc.Recursive, _ = cmd.Flags().GetBool("recursive")
	}
	if cmd.Flags().Changed("include") {
		bc.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	}
	if cmd.Flags().Changed("exclude") {
		bc.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	}
	if cmd.Flags().Changed("continue-on-error") {
		bc.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}

	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	bc.ShowStats, _ = cmd.Flags().GetBool("stats")
	bc.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")
	return bc
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	bc := configToBatchConfig(cfg, cmd)

	ocrCfg := cfg.ToOCRConfig()
	if cmd.Flags().Changed("engine") {
		ocrCfg.Engine, _ = cmd.Flags().GetString("engine")
	}
	// Saved scans need no engine; images fail one by one without it.
	var rec ocr.Recognizer
	if r, err := newRecognizer(ocrCfg); err != nil {
		slog.Warn("OCR engine unavailable, images will fail", "engine", ocrCfg.Engine, "error", err)
	} else {
		rec = r
	}

	st := maybeOpenStore(cmd, cfg)
	if st != nil {
		defer func() { _ = st.Close() }()
	}
	b, err := pipelineBuilder(cmd, cfg, rec, st)
	if err != nil {
		return err
	}

	result, err := batch.ProcessBatch(cmd.Context(), args, bc, b, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	if bc.ShowStats && !bc.Quiet {
		result.PrintStats(cmd.ErrOrStderr())
	}
	if failed := result.Failed(); failed > 0 && !bc.ContinueOnError {
		return fmt.Errorf("%d of %d files failed", failed, len(result.Paths)+len(result.Skipped))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("engine", "", "ocr engine: ocrspace, tesseract, docai")
	batchCmd.Flags().String("expected-regime", "", "regime you are applying under: 2015 or 2021")
	batchCmd.Flags().Bool("check-overlap", true, "compare periods against registered activities")
	addOutputFlags(batchCmd)

	batchCmd.Flags().IntP("workers", "w", 0, fmt.Sprintf("number of parallel workers (default: %d)", runtime.NumCPU()))
	batchCmd.Flags().BoolP("recursive", "r", false, "recursively scan directories")
	batchCmd.Flags().StringSlice("include", nil, "file patterns to include")
	batchCmd.Flags().StringSlice("exclude", nil, "file patterns to exclude")
	batchCmd.Flags().Bool("continue-on-error", false, "skip unreadable files and exit 0 when some files fail")

	batchCmd.Flags().Bool("progress", false, "show progress bar")
	batchCmd.Flags().Bool("quiet", false, "suppress progress output")
	batchCmd.Flags().Bool("stats", false, "show processing statistics")
	batchCmd.Flags().Duration("progress-interval", 500*time.Millisecond, "progress update interval")
}
