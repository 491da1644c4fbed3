package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knowledge-engine/resume-ranker/internal/search"
)

func newStopwordsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stopwords",
		Short: "List the words ignored when ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			words := search.Stopwords()
			if asJSON {
				return writeJSON(cmd, words)
			}
			for _, w := range words {
				fmt.Fprintln(cmd.OutOrStdout(), w)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
