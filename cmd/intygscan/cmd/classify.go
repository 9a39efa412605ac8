package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/intygscan/internal/classify"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/textnorm"
)

// classifyCmd tells which certificate a text is without extracting fields.
var classifyCmd = &cobra.Command{
	Use:   "classify <scan-file|->",
	Short: "Tell which certificate kind a scan is",
	Long: `Normalize the OCR text and report the certificate kind, its regime and the
cues that decided it.

Examples:
  intygscan classify scan.json
  intygscan classify - --expected-regime 2021 < text.txt`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		scan, err := readScan(cmd, args[0])
		if err != nil {
			return err
		}

		expected := cfg.ToPipelineConfig().ExpectedRegime
		if cmd.Flags().Changed("expected-regime") {
			s, _ := cmd.Flags().GetString("expected-regime")
			if expected, err = intyg.ParseRegime(s); err != nil {
				return err
			}
		}

		res := classify.Classify(textnorm.Normalize(scan.Text), nil, expected)

		format, file := outputSettings(cmd, cfg)
		var out string
		switch format {
		case "json":
			b, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			out = string(b)
		case "", "text":
			out = classificationText(res)
		default:
			return fmt.Errorf("unsupported format %q", format)
		}
		return writeOutput(cmd, out, file)
	},
}

func classificationText(res classify.Result) string {
	var b strings.Builder
	if !res.Recognized() {
		b.WriteString("Kind:    (unrecognized)\n")
	} else {
		fmt.Fprintf(&b, "Kind:    %s\n", res.Kind)
		fmt.Fprintf(&b, "Form:    %s\n", intyg.LabelsFor(res.Kind).Title)
		fmt.Fprintf(&b, "Regime:  %s\n", res.Regime)
	}
	if res.RegimeMismatch {
		fmt.Fprintf(&b, "! expected regime %s\n", res.ExpectedRegime)
	}
	fmt.Fprintf(&b, "Signals: %s\n", strings.Join(res.Signals, ", "))
	return b.String()
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().String("expected-regime", "", "regime you are applying under: 2015 or 2021")
	classifyCmd.Flags().StringP("format", "f", "text", "output format: text, json")
	classifyCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
}
