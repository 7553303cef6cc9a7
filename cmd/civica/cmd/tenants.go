package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/civica-ai/civica/internal/store"
)

// newTenantsCmd creates the tenants command group.
func newTenantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Manage tenants",
	}
	cmd.AddCommand(newTenantsCreateCmd())
	cmd.AddCommand(newTenantsListCmd())
	cmd.AddCommand(newTenantsDeactivateCmd())
	return cmd
}

func newTenantsCreateCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tenant",
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

			if id == "" {
				id = uuid.NewString()
			}
			tenant := &store.Tenant{ID: id, Name: args[0], Active: true}
			if err := a.store.SaveTenant(cmd.Context(), tenant); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created tenant %s (%s)\n", tenant.Name, tenant.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Tenant ID (defaults to a new UUID)")
	return cmd
}

func newTenantsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tenants",
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
			fmt.Fprintln(w, "ID\tNAME\tACTIVE\tCREATED")
			for _, t := range tenants {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
					t.ID, t.Name, t.Active, t.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}

func newTenantsDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <tenant-id>",
		Short: "Deactivate a tenant (data is kept)",
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

			if err := a.store.DeactivateTenant(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated tenant %s\n", args[0])
			return nil
		},
	}
}
