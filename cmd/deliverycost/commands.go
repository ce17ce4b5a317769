package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/costing"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/cli"
)

var (
	manifestFormat  string
	carrierInactive bool
	runsLimit       int
	servePort       int
)

var recalculateCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Recompute delivery costs from annotated orders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, tenant, err := openApp("costing")
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		cli.PrintHeader(out, "recalculate", tenant, dryRun)

		result, err := app.Service.Recalculate(cmd.Context(), tenant, costing.Options{DryRun: dryRun})
		if err != nil {
			return err
		}
		cli.PrintRecalculation(out, result.RunID, result.Report)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <manifest.csv|manifest.json|->",
	Short: "Annotate orders from a delivery manifest, then recalculate",
	Long: `Import a carrier manifest. Each row names an order number, a parcel
count and a carrier label. Rows are matched to orders (tolerating suffixes
such as 1001-REM), the matched orders are annotated with the normalized
carrier, and delivery costs are recomputed for the whole catalog.

Use "-" to read the manifest from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := cli.LoadManifest(args[0], manifestFormat, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("%s: manifest has no rows", args[0])
		}

		app, tenant, err := openApp("import")
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		cli.PrintHeader(out, "import", tenant, dryRun)

		result, err := app.Service.ImportManifest(cmd.Context(), tenant, rows, costing.Options{DryRun: dryRun})
		if err != nil {
			return err
		}
		cli.PrintImport(out, result.RunID, result.Report)
		return nil
	},
}

var carriersCmd = &cobra.Command{
	Use:   "carriers",
	Short: "Show or change carrier costs",
}

var carriersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List carriers and their cost per shipment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, tenant, err := openApp("carriers")
		if err != nil {
			return err
		}
		defer app.Close()

		carriers, err := app.Service.ListCarriers(cmd.Context(), tenant)
		if err != nil {
			return err
		}
		cli.PrintCarriers(cmd.OutOrStdout(), carriers)
		return nil
	},
}

var carriersSetCmd = &cobra.Command{
	Use:   "set <label> <cost>",
	Short: "Set the flat cost per shipment for a carrier",
	Long: `Set the flat cost per shipment for a carrier. The label is normalized,
so "Royal Mail 48" and "royal_mail" configure the same carrier. Parcel count
never multiplies this cost.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cost, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid cost %q: %w", args[1], err)
		}

		app, tenant, err := openApp("carriers")
		if err != nil {
			return err
		}
		defer app.Close()

		cc, err := app.Service.SetCarrierCost(cmd.Context(), tenant, args[0], cost, !carrierInactive)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %.2f per shipment, active=%t\n", cc.Name, cc.CarrierID, cc.CostPerShipment, cc.IsActive)
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent cost runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, tenant, err := openApp("runs")
		if err != nil {
			return err
		}
		defer app.Close()

		runs, err := app.Service.ListRuns(cmd.Context(), tenant, runsLimit)
		if err != nil {
			return err
		}
		cli.PrintRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := openApp("api")
		if err != nil {
			return err
		}
		defer app.Close()

		return cli.RunServe(app, servePort)
	},
}

func init() {
	importCmd.Flags().StringVar(&manifestFormat, "format", "", "manifest format: csv or json (default from file extension)")

	carriersSetCmd.Flags().BoolVar(&carrierInactive, "inactive", false, "store the cost but do not bill the carrier")
	carriersCmd.AddCommand(carriersListCmd)
	carriersCmd.AddCommand(carriersSetCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to show")

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config)")
}
