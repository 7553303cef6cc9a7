package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newCacheCmd creates the cache command group.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the semantic response cache",
	}
	cmd.AddCommand(newCacheClearCmd())
	cmd.AddCommand(newCacheFlushCmd())
	cmd.AddCommand(newCacheStatsCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <tenant-id>",
		Short: "Remove all cached answers for a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.cache.Clear(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared cache for tenant %s\n", args[0])
			return nil
		},
	}
}

func newCacheFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Remove all cached answers for every tenant",
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

			if err := a.cache.FlushAll(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache flushed")
			return nil
		},
	}
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
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

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a.cache.Stats())
		},
	}
}
