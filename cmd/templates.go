package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/generate"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List built-in message templates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		templates, err := generate.Builtins()
		if err != nil {
			return err
		}
		formatTemplates(cmd.OutOrStdout(), templates)
		return nil
	},
}

func formatTemplates(w io.Writer, templates []generate.Template) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTEXT")
	for _, t := range templates {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Name, truncate(t.Text, 60))
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}
