package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/intygscan/internal/config"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/pipeline"
	"github.com/MeKo-Tech/intygscan/internal/store"
)

// newRecognizer builds the OCR engine. Tests swap it for a fake.
var newRecognizer = ocr.New

// errBlocked is returned by --save when the result has blocking issues.
var errBlocked = errors.New("result has issues that block saving")

// addOutputFlags registers --format and --output.
func addOutputFlags(c *cobra.Command) {
	c.Flags().StringP("format", "f", "text", "output format: text, json, csv")
	c.Flags().StringP("output", "o", "", "output file (default: stdout)")
}

// addPipelineFlags registers the flags that shape one scan.
func addPipelineFlags(c *cobra.Command) {
	c.Flags().String("expected-regime", "", "regime you are applying under: 2015 or 2021")
	c.Flags().Bool("check-overlap", true, "compare the period against registered activities")
	c.Flags().Bool("save", false, "register the certificate as an activity when nothing blocks it")
}

// outputSettings resolves --format and --output against the config.
func outputSettings(cmd *cobra.Command, cfg *config.Config) (format, file string) {
	format, file = cfg.Output.Format, cfg.Output.File
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("output") {
		file, _ = cmd.Flags().GetString("output")
	}
	return strings.ToLower(format), file
}

// pipelineBuilder prepares a builder from the config and the pipeline flags.
// The store, when given, backs the overlap check.
func pipelineBuilder(cmd *cobra.Command, cfg *config.Config, rec ocr.Recognizer, st *store.Store) (*pipeline.Builder, error) {
	pcfg := cfg.ToPipelineConfig()
	if f := cmd.Flags().Lookup("expected-regime"); f != nil && f.Changed {
		regime, err := intyg.ParseRegime(f.Value.String())
		if err != nil {
			return nil, err
		}
		pcfg.ExpectedRegime = regime
	}
	if f := cmd.Flags().Lookup("check-overlap"); f != nil && f.Changed {
		pcfg.CheckOverlap, _ = cmd.Flags().GetBool("check-overlap")
	}

	b := pipeline.NewBuilder().WithConfig(pcfg).WithRecognizer(rec).WithLogger(slog.Default())
	if st != nil && pcfg.CheckOverlap {
		b = b.WithOverlapSource(st)
	}
	return b, nil
}

// openStore opens the configured activity store.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Path, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}

// readScan loads a saved scan, or plain text from stdin for "-".
func readScan(cmd *cobra.Command, path string) (*ocr.Result, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return &ocr.Result{Text: string(data)}, nil
	}
	return ocr.LoadScanFile(path)
}

// formatResult renders one result in the requested format.
func formatResult(name string, res *pipeline.Result, format string) (string, error) {
	switch format {
	case "json":
		return pipeline.ToJSON(res)
	case "csv":
		return pipeline.ToCSV([]pipeline.JobResult{{Name: name, Result: res}})
	case "", "text":
		return pipeline.ToPlainText(res)
	}
	return "", fmt.Errorf("unsupported format %q", format)
}

// writeOutput writes s to file, or to the command's stdout.
func writeOutput(cmd *cobra.Command, s, file string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	if file == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), s)
		return err
	}
	if err := os.WriteFile(file, []byte(s), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Results written to %s\n", file)
	return nil
}

// emitResult prints the result and, with --save, stores it.
func emitResult(cmd *cobra.Command, cfg *config.Config, st *store.Store, name string, res *pipeline.Result) error {
	format, file := outputSettings(cmd, cfg)
	out, err := formatResult(name, res, format)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, out, file); err != nil {
		return err
	}

	save, _ := cmd.Flags().GetBool("save")
	if !save {
		return nil
	}
	if !res.CanSave() {
		return errBlocked
	}
	if st == nil {
		if st, err = openStore(cmd.Context(), cfg); err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
	}
	return saveRecord(cmd, st, res.Record)
}

func saveRecord(cmd *cobra.Command, st *store.Store, rec intyg.Record) error {
	a, err := store.FromRecord(rec)
	if err != nil {
		return err
	}
	saved, err := st.Save(cmd.Context(), a)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Saved activity %s: %s\n", saved.ID, saved.Label)
	return nil
}

// reportProcessError prints the user-facing issue for OCR failures.
func reportProcessError(cmd *cobra.Command, err error) error {
	if is, ok := pipeline.IssueForError(err); ok {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "! %s: %s\n", is.Code, is.Message)
	}
	return err
}

// needsStore reports whether the command will read or write activities.
func needsStore(cmd *cobra.Command, cfg *config.Config) bool {
	check := cfg.Pipeline.CheckOverlap
	if f := cmd.Flags().Lookup("check-overlap"); f != nil && f.Changed {
		check, _ = cmd.Flags().GetBool("check-overlap")
	}
	save, _ := cmd.Flags().GetBool("save")
	return check || save
}

// maybeOpenStore opens the store when the command needs it. A store that
// cannot be opened only disables the overlap check.
func maybeOpenStore(cmd *cobra.Command, cfg *config.Config) *store.Store {
	if !needsStore(cmd, cfg) {
		return nil
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		slog.Warn("Overlap check disabled", "error", err)
		return nil
	}
	return st
}
