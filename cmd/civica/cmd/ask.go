package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newAskCmd creates the ask command.
func newAskCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ask <tenant-id> <question>",
		Short: "Answer a question from a tenant's documents",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID := args[0]
			question := strings.Join(args[1:], " ")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			answer, err := a.orchestrator.AnswerQuestion(cmd.Context(), tenantID, question)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(answer)
			}

			fmt.Fprintln(out, answer.Answer)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Încredere: %.0f%%\n", answer.Confidence*100)
			if answer.CacheType != "" {
				fmt.Fprintf(out, "Cache: %s (similaritate %.2f)\n", answer.CacheType, answer.Similarity)
			}
			for _, src := range answer.Sources {
				if src.Page > 0 {
					fmt.Fprintf(out, "  - %s, pagina %d (%.0f%%)\n",
						src.DocumentName, src.Page, src.Similarity*100)
				} else {
					fmt.Fprintf(out, "  - %s (%.0f%%)\n", src.DocumentName, src.Similarity*100)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the answer as JSON")
	return cmd
}
