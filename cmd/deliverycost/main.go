package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/cli"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/config"
)

var (
	version = "0.1.0"

	configPath string
	tenantFlag string
	dryRun     bool
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "deliverycost",
		Short: "Attribute carrier delivery costs to catalog products",
		Long: `deliverycost turns carrier manifests into a per-unit delivery cost for
every product in the catalog.

Import a manifest to annotate orders with their carrier, then every product
gets the average cost of delivering one unit: from its own orders when it has
them, otherwise from its category or the whole catalog.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	// Ctrl-C cancels a run between write chunks
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file (falls back to environment variables)")
	rootCmd.PersistentFlags().StringVarP(&tenantFlag, "tenant", "t", "", "tenant to operate on (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	recalculateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and report without writing")
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "match and report without writing")

	rootCmd.AddCommand(recalculateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(carriersCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(serveCmd)
}

// openApp loads configuration and wires the application for one command
func openApp(system string) (*cli.App, string, error) {
	cfg := config.LoadOrEnvWithPath(configPath)
	if verbose {
		cfg.Observability.Logging.Level = "debug"
	}

	tenant := cfg.Tenant
	if tenantFlag != "" {
		tenant = tenantFlag
		cfg.Tenant = tenantFlag
	}

	app, err := cli.NewApp(cfg, system)
	if err != nil {
		return nil, "", err
	}
	return app, tenant, nil
}
