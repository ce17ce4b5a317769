package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/costing"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/service"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/storage"
)

const rule = "------------------------------------------------------------"

// PrintHeader prints the command banner
func PrintHeader(w io.Writer, command, tenant string, dryRun bool) {
	mode := "PRODUCTION"
	if dryRun {
		mode = "DRY-RUN"
	}
	fmt.Fprintf(w, "deliverycost %s: tenant %s (%s mode)\n\n", command, tenant, mode)
}

// PrintRecalculation prints the outcome of a recalculation pass
func PrintRecalculation(w io.Writer, runID string, r *costing.Report) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Run: %s\n", runID)
	fmt.Fprintf(w, "Orders: read=%d used=%d", r.OrdersRead, r.OrdersUsed)
	printCounts(w, " skipped", r.Skipped)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Products: read=%d with_evidence=%d\n", r.ProductsRead, r.SKUsWithEvidence)
	fmt.Fprintf(w, "Updated: direct=%d category=%d overall=%d override=%d\n",
		r.UpdatedDirect, r.UpdatedCategory, r.UpdatedOverall, r.Overridden)
	fmt.Fprintf(w, "Unchanged=%d NoValue=%d Written=%d\n", r.Unchanged, r.NoValue, r.Written)

	if len(r.UnconfiguredCarriers) > 0 {
		printCounts(w, "Unconfigured carriers", r.UnconfiguredCarriers)
		fmt.Fprintln(w)
	}
	if len(r.PlaceholdersCreated) > 0 {
		fmt.Fprintf(w, "Placeholder carriers created (set a cost): %s\n", strings.Join(r.PlaceholdersCreated, ", "))
	}
	if len(r.CategoryAverages) > 0 {
		fmt.Fprintln(w, "\nCategory averages:")
		for _, name := range sortedKeys(r.CategoryAverages) {
			fmt.Fprintf(w, "  %-30s %8.2f\n", name, r.CategoryAverages[name])
		}
	}
	if r.OverallAverage != nil {
		fmt.Fprintf(w, "Overall average: %.2f\n", *r.OverallAverage)
	}

	printSamples(w, "direct", r.Samples.Direct)
	printSamples(w, "category average", r.Samples.Category)
	printSamples(w, "overall average", r.Samples.Overall)
	printSamples(w, "override", r.Samples.Override)

	if r.DryRun {
		fmt.Fprintln(w, "\nDry run: nothing was written.")
	}
}

// PrintImport prints the outcome of a manifest import and its recalculation
func PrintImport(w io.Writer, runID string, r *costing.ImportReport) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Manifest: rows=%d matched=%d ambiguous=%d unmatched=%d excluded=%d annotated=%d\n",
		r.Rows, r.Matched, r.Ambiguous, r.Unmatched, r.Excluded, r.Annotated)
	if r.ParcelsDefaulted > 0 {
		fmt.Fprintf(w, "Rows with an unreadable parcel count (assumed 1): %d\n", r.ParcelsDefaulted)
	}
	if len(r.CarriersFound) > 0 {
		printCounts(w, "Carriers", r.CarriersFound)
		fmt.Fprintln(w)
	}

	for _, s := range r.AmbiguousSamples {
		fmt.Fprintf(w, "  ambiguous %-16s %-20s candidates: %s\n", s.OrderNumber, s.Carrier, strings.Join(s.Candidates, ", "))
	}
	for _, s := range r.UnmatchedSamples {
		fmt.Fprintf(w, "  unmatched %-16s %s\n", s.OrderNumber, s.Carrier)
	}
	for _, s := range r.ExcludedSamples {
		fmt.Fprintf(w, "  excluded  %-16s %s\n", s.OrderNumber, s.Carrier)
	}

	if r.Recalculation != nil {
		PrintRecalculation(w, runID, r.Recalculation)
	}
}

// PrintCarriers prints the carrier configuration table
func PrintCarriers(w io.Writer, carriers []service.CarrierView) {
	fmt.Fprintf(w, "%-12s %-22s %10s %-8s %s\n", "ID", "NAME", "COST", "ACTIVE", "STATUS")
	for _, c := range carriers {
		status := "not configured"
		switch {
		case c.Billable:
			status = "billable"
		case c.Configured && !c.IsActive:
			status = "inactive"
		case c.Configured:
			status = "needs cost"
		}
		fmt.Fprintf(w, "%-12s %-22s %10.2f %-8t %s\n", c.CarrierID, c.Name, c.CostPerShipment, c.IsActive, status)
	}
}

// PrintRuns prints recent cost runs, newest first
func PrintRuns(w io.Writer, runs []storage.CostRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s %-12s %-10s %-20s %7s %8s\n", "ID", "KIND", "STATUS", "STARTED", "ORDERS", "UPDATED")
	for _, r := range runs {
		kind := string(r.Kind)
		if r.DryRun {
			kind += "*"
		}
		fmt.Fprintf(w, "%-36s %-12s %-10s %-20s %7d %8d\n",
			r.ID, kind, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"), r.OrdersUsed, r.ProductsUpdated)
		if r.ErrorMessage != "" {
			fmt.Fprintf(w, "  error: %s\n", r.ErrorMessage)
		}
	}
}

func printCounts(w io.Writer, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	parts := make([]string, 0, len(counts))
	for _, k := range sortedKeys(counts) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	fmt.Fprintf(w, "%s: %s", label, strings.Join(parts, " "))
}

func printSamples(w io.Writer, label string, samples []costing.ChangeSample) {
	if len(samples) == 0 {
		return
	}
	fmt.Fprintf(w, "\nChanged (%s):\n", label)
	for _, s := range samples {
		old := "-"
		if s.Old != nil {
			old = fmt.Sprintf("%.2f", *s.Old)
		}
		fmt.Fprintf(w, "  %-20s %8s -> %8.2f", s.SKU, old, s.New)
		switch {
		case s.Carrier != "":
			fmt.Fprintf(w, "  via %s", s.Carrier)
		case s.Category != "":
			fmt.Fprintf(w, "  from %s", s.Category)
		case s.Rule != "":
			fmt.Fprintf(w, "  rule %s", s.Rule)
		}
		fmt.Fprintln(w)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
