package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/intygscan/internal/dates"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/overlap"
	"github.com/MeKo-Tech/intygscan/internal/pipeline"
	"github.com/MeKo-Tech/intygscan/internal/store"
)

// errOverlap makes "activities check" exit non-zero on a conflict.
var errOverlap = errors.New("period overlaps registered activities")

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Manage registered courses and placements",
	Long: `Registered activities are the courses and placements a new certificate is
checked against for overlapping periods. They live in a sqlite file (--store).`,
}

var activitiesListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List registered activities",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		all, _ := cmd.Flags().GetBool("all")
		acts, err := st.List(cmd.Context(), store.ListOptions{IncludeHidden: all})
		if err != nil {
			return err
		}

		format, _ := outputSettings(cmd, cfg)
		if format == "json" {
			if acts == nil {
				acts = []store.Activity{}
			}
			b, err := json.MarshalIndent(acts, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, string(b), "")
		}
		if len(acts) == 0 {
			return writeOutput(cmd, "No activities registered.", "")
		}
		var sb strings.Builder
		tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tKIND\tLABEL\tSTART\tEND\tVISIBLE")
		for _, a := range acts {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", a.ID, a.Kind, a.Label, a.StartISO, a.EndISO, a.Visible)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		return writeOutput(cmd, sb.String(), "")
	},
}

var activitiesAddCmd = &cobra.Command{
	Use:   "add <scan-file|->",
	Short: "Register the certificate in a saved scan",
	Long: `Extract the certificate in a saved scan and register it as an activity.
Certificates with blocking issues (unknown dates, regime mismatch, overlap)
are refused unless --force is given.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		scan, err := readScan(cmd, args[0])
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		b, err := pipelineBuilder(cmd, cfg, nil, st)
		if err != nil {
			return err
		}
		p, err := b.Build()
		if err != nil {
			return err
		}
		res, err := p.ProcessScan(cmd.Context(), scan)
		if err != nil {
			return reportProcessError(cmd, err)
		}

		force, _ := cmd.Flags().GetBool("force")
		if !res.CanSave() && !force {
			printIssues(cmd, res.Issues)
			return errBlocked
		}
		return saveRecord(cmd, st, res.Record)
	},
}

var activitiesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a period against registered activities",
	Long: `Report the registered activities whose period intersects the given one.
Dates accept ISO (2024-01-15) and the compact forms printed on certificates
(240115, 20240115). Exits with status 1 when there is an overlap.

Examples:
  intygscan activities check --start 2024-01-15 --end 2024-03-31
  intygscan activities check --start 240115`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		startRaw, _ := cmd.Flags().GetString("start")
		endRaw, _ := cmd.Flags().GetString("end")
		certRaw, _ := cmd.Flags().GetString("certificate-date")

		var period intyg.Period
		var certDate string
		for _, f := range []struct {
			raw string
			dst *string
		}{{startRaw, &period.StartISO}, {endRaw, &period.EndISO}, {certRaw, &certDate}} {
			if f.raw == "" {
				continue
			}
			iso, err := dates.ParseDate(f.raw)
			if err != nil {
				return err
			}
			*f.dst = iso
		}
		if period.StartISO == "" && period.EndISO == "" && certDate == "" {
			return errors.New("give at least one of --start, --end or --certificate-date")
		}

		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		report, err := overlap.CheckSource(cmd.Context(), st, period, certDate)
		if err != nil {
			return err
		}

		format, _ := outputSettings(cmd, cfg)
		if format == "json" {
			b, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, string(b), ""); err != nil {
				return err
			}
		} else if report.HasOverlap {
			var sb strings.Builder
			sb.WriteString("Overlaps:\n")
			for _, item := range report.OverlappingItems {
				fmt.Fprintf(&sb, "  %s\n", item)
			}
			if err := writeOutput(cmd, sb.String(), ""); err != nil {
				return err
			}
		} else if err := writeOutput(cmd, "No overlap.", ""); err != nil {
			return err
		}

		if report.HasOverlap {
			return errOverlap
		}
		return nil
	},
}

var activitiesHideCmd = &cobra.Command{
	Use:          "hide <id>",
	Short:        "Hide an activity from lists and overlap checks",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(st *store.Store) error {
			visible, _ := cmd.Flags().GetBool("show")
			return st.SetVisible(cmd.Context(), args[0], visible)
		})
	},
}

var activitiesDeleteCmd = &cobra.Command{
	Use:          "delete <id>",
	Short:        "Delete an activity",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(st *store.Store) error {
			return st.Delete(cmd.Context(), args[0])
		})
	},
}

func withStore(cmd *cobra.Command, fn func(*store.Store) error) error {
	st, err := openStore(cmd.Context(), GetConfig())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return fn(st)
}

func printIssues(cmd *cobra.Command, issues []pipeline.Issue) {
	for _, is := range issues {
		if is.BlocksSave {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "! %s: %s\n", is.Code, is.Message)
		}
	}
}

func init() {
	rootCmd.AddCommand(activitiesCmd)
	activitiesCmd.AddCommand(activitiesListCmd, activitiesAddCmd, activitiesCheckCmd, activitiesHideCmd, activitiesDeleteCmd)

	activitiesListCmd.Flags().Bool("all", false, "include hidden activities")
	activitiesListCmd.Flags().StringP("format", "f", "text", "output format: text, json")

	activitiesAddCmd.Flags().String("expected-regime", "", "regime you are applying under: 2015 or 2021")
	activitiesAddCmd.Flags().Bool("check-overlap", true, "refuse certificates that overlap registered activities")
	activitiesAddCmd.Flags().Bool("force", false, "register even when issues would block saving")

	activitiesCheckCmd.Flags().String("start", "", "period start")
	activitiesCheckCmd.Flags().String("end", "", "period end")
	activitiesCheckCmd.Flags().String("certificate-date", "", "certificate date, used when the period is empty")
	activitiesCheckCmd.Flags().StringP("format", "f", "text", "output format: text, json")

	activitiesHideCmd.Flags().Bool("show", false, "make the activity visible again")
}
