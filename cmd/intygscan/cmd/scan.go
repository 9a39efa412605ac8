package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/intygscan/internal/common"
	"github.com/MeKo-Tech/intygscan/internal/ocr"
)

// scanCmd runs OCR on a photo and extracts the certificate.
var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Recognize a certificate photo and extract its fields",
	Long: `Send a photo of a certificate to the configured OCR engine, then classify it
and extract its fields.

Supported formats: JPEG, PNG, WebP, BMP, TIFF, GIF

Examples:
  intygscan scan intyg.jpg
  intygscan scan intyg.jpg --engine tesseract --format json
  intygscan scan intyg.jpg --expected-regime 2021 --save`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runScanCommand,
}

func runScanCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	ocrCfg := cfg.ToOCRConfig()
	if cmd.Flags().Changed("engine") {
		ocrCfg.Engine, _ = cmd.Flags().GetString("engine")
	}
	if cmd.Flags().Changed("language") {
		ocrCfg.Language, _ = cmd.Flags().GetString("language")
	}

	data, err := ocr.LoadImageFile(args[0])
	if err != nil {
		return err
	}

	rec, err := newRecognizer(ocrCfg)
	if err != nil {
		return fmt.Errorf("failed to set up ocr engine %q: %w", ocrCfg.Engine, err)
	}

	st := maybeOpenStore(cmd, cfg)
	if st != nil {
		defer func() { _ = st.Close() }()
	}

	b, err := pipelineBuilder(cmd, cfg, rec, st)
	if err != nil {
		return err
	}
	p, err := b.WithLanguage(ocrCfg.Language).Build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	timer := common.NewNamedTimer("scan")
	res, err := p.Process(cmd.Context(), data)
	slog.Debug("Scan finished", timer.LogAttrs()...)
	if err != nil {
		return reportProcessError(cmd, err)
	}
	return emitResult(cmd, cfg, st, args[0], res)
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().String("engine", "", "ocr engine: ocrspace, tesseract, docai")
	scanCmd.Flags().String("language", "", "ocr language hint (default: swe)")
	addPipelineFlags(scanCmd)
	addOutputFlags(scanCmd)
}
