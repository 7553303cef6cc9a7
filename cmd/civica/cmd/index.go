package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// newIndexCmd creates the index command group.
func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage a tenant's document corpus",
	}
	cmd.AddCommand(newIndexAddCmd())
	cmd.AddCommand(newIndexRemoveCmd())
	return cmd
}

func newIndexAddCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <tenant-id> <file>",
		Short: "Ingest a text file into a tenant's corpus",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, path := args[0], args[1]

			text, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(path)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			doc, chunks, err := a.ingestor.IngestDocument(cmd.Context(), tenantID, name, string(text))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s as %s (%d chunks)\n", name, doc.ID, chunks)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Document name (defaults to the file name)")
	return cmd
}

func newIndexRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <tenant-id> <document-id>",
		Short: "Remove a document and its chunks from a tenant's corpus",
		Args:  cobra.ExactArgs(2),
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

			if err := a.ingestor.DeleteDocument(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed document %s\n", args[1])
			return nil
		},
	}
}
