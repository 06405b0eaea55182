package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/export"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and manage leads",
	Long:  "Commands for listing, summarizing, exporting, and marking leads as sent.",
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, err := leadFilterFlags(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		filter.Limit, filter.Offset = limit, offset

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if leads == nil {
				leads = []model.Lead{}
			}
			return enc.Encode(leads)
		}

		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}
		formatLeadsList(cmd.OutOrStdout(), leads)
		return nil
	},
}

// -- leads stats --

var leadsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lead counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.LeadStats(ctx)
		if err != nil {
			return eris.Wrap(err, "leads stats")
		}
		formatLeadStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

// -- leads export --

var leadsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads as CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		formatName, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}
		filter, err := leadFilterFlags(cmd)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := export.Collect(ctx, st, filter)
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" || output == "-" {
			return export.Write(cmd.OutOrStdout(), format, leads)
		}

		f, err := os.Create(output)
		if err != nil {
			return eris.Wrap(err, "leads export: create file")
		}
		if err := export.Write(f, format, leads); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrap(err, "leads export: close file")
		}
		fmt.Fprintf(os.Stderr, "Exported %d lead(s) to %s\n", len(leads), output)
		return nil
	},
}

// -- leads mark-sent --

var leadsMarkSentCmd = &cobra.Command{
	Use:   "mark-sent <lead-id>...",
	Short: "Mark leads as sent",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sent := model.LeadStatusSent
		for _, id := range args {
			err := st.UpdateLead(ctx, id, store.LeadUpdate{Status: &sent})
			if errors.Is(err, store.ErrNotUpdated) {
				return eris.Errorf("lead %s not found", id)
			}
			if err != nil {
				return eris.Wrapf(err, "mark lead %s sent", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s marked as sent\n", id)
		}
		return nil
	},
}

func leadFilterFlags(cmd *cobra.Command) (store.LeadFilter, error) {
	status, _ := cmd.Flags().GetString("status")
	search, _ := cmd.Flags().GetString("search")

	f := store.LeadFilter{Search: search}
	if status != "" && status != "all" {
		f.Status = model.LeadStatus(status)
		if !f.Status.Valid() {
			return f, eris.Errorf("invalid status %q (want sent, unsent or all)", status)
		}
	}
	return f, nil
}

func formatLeadsList(w io.Writer, leads []model.Lead) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tSTATUS\tMESSAGE\tCREATED")
	for _, l := range leads {
		name := model.Deref(l.Name)
		if name == "" {
			name = "-"
		}
		msg := "-"
		if l.HasMessage() {
			msg = truncate(*l.Message, 40)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID,
			name,
			l.Phone,
			l.Status,
			msg,
			l.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	tw.Flush() //nolint:errcheck
}

func formatLeadStats(w io.Writer, s *model.LeadStats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total:\t%d\n", s.Total)
	fmt.Fprintf(tw, "Sent:\t%d\n", s.Sent)
	fmt.Fprintf(tw, "Unsent:\t%d\n", s.Unsent)
	fmt.Fprintf(tw, "With message:\t%d\n", s.WithMessage)
	tw.Flush() //nolint:errcheck
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func init() {
	leadsListCmd.Flags().String("status", "", "filter by status (sent, unsent, all)")
	leadsListCmd.Flags().String("search", "", "phone or name substring")
	leadsListCmd.Flags().Int("limit", 50, "max leads to show")
	leadsListCmd.Flags().Int("offset", 0, "leads to skip")
	leadsListCmd.Flags().Bool("json", false, "print JSON instead of a table")

	leadsExportCmd.Flags().String("format", "csv", "export format (csv, xlsx)")
	leadsExportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	leadsExportCmd.Flags().String("status", "", "filter by status (sent, unsent, all)")
	leadsExportCmd.Flags().String("search", "", "phone or name substring")

	leadsCmd.AddCommand(leadsListCmd, leadsStatsCmd, leadsExportCmd, leadsMarkSentCmd)
	rootCmd.AddCommand(leadsCmd)
}
