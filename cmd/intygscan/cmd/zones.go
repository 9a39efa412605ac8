package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/intygscan/internal/classify"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/layout"
	"github.com/MeKo-Tech/intygscan/internal/textnorm"
)

// zonesCmd shows what each field rectangle of a template reads.
var zonesCmd = &cobra.Command{
	Use:   "zones <scan-file>",
	Short: "Print the text inside each field zone of a scan",
	Long: `Group the positioned words of a scan into the field zones of its template and
print the text found in each zone. Useful when tuning zones.yaml.

The scan must carry word positions (scan JSON, hOCR or Tesseract TSV). The
kind is detected unless --kind is given.

Examples:
  intygscan zones scan.json
  intygscan zones page.hocr --kind 2021-B9-KLIN --format json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		scan, err := readScan(cmd, args[0])
		if err != nil {
			return err
		}
		if len(scan.Words) == 0 {
			return errors.New("scan has no word positions")
		}

		var kind intyg.Kind
		if cmd.Flags().Changed("kind") {
			s, _ := cmd.Flags().GetString("kind")
			if kind, err = intyg.ParseKind(s); err != nil {
				return err
			}
		} else {
			kind = classify.Classify(textnorm.Normalize(scan.Text), nil, intyg.RegimeUnknown).Kind
		}

		zs, ok := layout.ZoneSetFor(kind)
		if !ok {
			return fmt.Errorf("no zone template for kind %q", kind.String())
		}
		fields := zs.Extract(scan.Words, scan.Size())

		format, _ := cmd.Flags().GetString("format")
		switch strings.ToLower(format) {
		case "json":
			b, err := json.MarshalIndent(map[string]any{"kind": kind, "zones": fields}, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, string(b), "")
		case "", "text":
			var b strings.Builder
			fmt.Fprintf(&b, "Kind: %s (%s)\n", kind, zs.Name)
			for _, name := range zs.FieldNames() {
				fmt.Fprintf(&b, "%-20s %s\n", name+":", strings.ReplaceAll(fields[name], "\n", " | "))
			}
			return writeOutput(cmd, b.String(), "")
		}
		return fmt.Errorf("unsupported format %q", format)
	},
}

func init() {
	rootCmd.AddCommand(zonesCmd)
	zonesCmd.Flags().String("kind", "", "certificate kind, e.g. 2021-B9-KLIN (default: detected)")
	zonesCmd.Flags().StringP("format", "f", "text", "output format: text, json")
}
