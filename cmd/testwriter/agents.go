package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the pipeline stages and their execution policies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Stage\tName\tTier\tTimeout\tRetries\tConsumes\n")
		fmt.Fprintf(w, "-----\t----\t----\t-------\t-------\t--------\n")

		for _, d := range pipeline.DefaultDescriptors() {
			consumes := strings.Join(d.InputFields, ", ")
			if consumes == "" {
				consumes = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				d.Name, d.DisplayName, d.ModelTier, d.Timeout, d.MaxRetries, consumes)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}
