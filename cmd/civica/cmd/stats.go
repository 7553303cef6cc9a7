package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newStatsCmd creates the stats command.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show corpus statistics per tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			tenants, err := a.store.ListTenants(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TENANT\tDOCUMENTS\tCHUNKS\tVECTORS")
			for _, t := range tenants {
				docs, err := a.store.CountDocuments(cmd.Context(), t.ID)
				if err != nil {
					return err
				}
				chunks, err := a.store.CountChunks(cmd.Context(), t.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\n",
					t.Name, docs, chunks, a.vectors.Count(t.ID))
			}
			return w.Flush()
		},
	}
}
