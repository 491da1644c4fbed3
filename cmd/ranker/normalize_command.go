package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/knowledge-engine/resume-ranker/internal/search"
)

func newNormalizeCommand() *cobra.Command {
	var tokens bool

	cmd := &cobra.Command{
		Use:   "normalize [text...]",
		Short: "Show the normalized form of text, as used for ranking",
		Long:  "Normalize lowercases text, strips punctuation, digits and stopwords. With no arguments the text is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				input = string(data)
			}

			out := cmd.OutOrStdout()
			if tokens {
				for _, token := range search.Tokens(input) {
					fmt.Fprintln(out, token)
				}
				return nil
			}
			fmt.Fprintln(out, search.Normalize(input))
			return nil
		},
	}

	cmd.Flags().BoolVar(&tokens, "tokens", false, "Print one token per line")
	return cmd
}
