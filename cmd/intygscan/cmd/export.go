package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/intygscan/internal/store"
)

// exportCmd writes the activity timeline as a spreadsheet.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export registered activities to an Excel workbook",
	Long: `Write every registered activity, hidden ones included, to an .xlsx file
in timeline order.

Examples:
  intygscan export --output aktiviteter.xlsx`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("output")
		return withStore(cmd, func(st *store.Store) error {
			data, err := st.ExportXLSX(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to export activities: %w", err)
			}
			if err := os.WriteFile(file, data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", file, err)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Exported activities to %s\n", file)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "aktiviteter.xlsx", "output workbook")
}
