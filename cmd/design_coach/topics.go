package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonathan/design-coach/internal/topics"
)

var topicsJSON bool

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the system design topic catalog",
	Args:  cobra.NoArgs,
	RunE:  runTopics,
}

func init() {
	topicsCmd.Flags().BoolVar(&topicsJSON, "json", false, "Print the catalog as JSON")
	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, _ []string) error {
	all, err := topics.All()
	if err != nil {
		return fmt.Errorf("failed to load topic catalog: %w", err)
	}
	if topicsJSON {
		return writeJSON(cmd, all)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, t := range all {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", t.Slug, t.Title)
	}
	return tw.Flush()
}
