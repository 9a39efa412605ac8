package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// parseCmd extracts a certificate from OCR output saved earlier.
var parseCmd = &cobra.Command{
	Use:   "parse <scan-file|->",
	Short: "Extract a certificate from saved OCR output",
	Long: `Classify and extract a certificate from OCR output that is already on disk.

Accepted inputs are scan JSON ({"text", "words", "width", "height"}), hOCR,
Tesseract TSV and plain text. Use - to read plain text from stdin.

Examples:
  intygscan parse scan.json
  intygscan parse page.hocr --format json
  pbpaste | intygscan parse -`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		scan, err := readScan(cmd, args[0])
		if err != nil {
			return err
		}

		st := maybeOpenStore(cmd, cfg)
		if st != nil {
			defer func() { _ = st.Close() }()
		}
		b, err := pipelineBuilder(cmd, cfg, nil, st)
		if err != nil {
			return err
		}
		p, err := b.Build()
		if err != nil {
			return fmt.Errorf("failed to build pipeline: %w", err)
		}

		res, err := p.ProcessScan(cmd.Context(), scan)
		if err != nil {
			return reportProcessError(cmd, err)
		}
		return emitResult(cmd, cfg, st, args[0], res)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	addPipelineFlags(parseCmd)
	addOutputFlags(parseCmd)
}
