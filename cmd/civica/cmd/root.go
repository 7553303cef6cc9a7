// Package cmd provides the CLI commands for Civica.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/civica-ai/civica/internal/config"
	"github.com/civica-ai/civica/internal/logging"
	"github.com/civica-ai/civica/pkg/version"
)

var (
	configPath     string
	dataDir        string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the civica CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "civica",
		Short: "Tenant-scoped question answering over municipal documents",
		Long: `Civica answers questions about Romanian fiscal legislation from
each municipality's own document corpus.

Retrieval is hybrid (keyword, semantic, and full-text rank fused into
one ranking) and answers are cached per tenant, with near-duplicate
questions served from the semantic cache.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("civica version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the data directory")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newTenantsCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(*cobra.Command, []string) error {
	logCfg := logging.Config{Level: "info", WriteToStderr: false}
	if debugMode {
		logCfg.Level = "debug"
		logCfg.FilePath = logging.DefaultLogPath()
	}
	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

// loadConfig layers flags over file and environment configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
