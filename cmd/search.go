package cmd

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/lukman83/carizon/internal/api"
	"github.com/lukman83/carizon/internal/platform"
	"github.com/lukman83/carizon/internal/ui"
)

// Filter flags share their names with the REST query parameters so both
// surfaces validate criteria the same way.
var filterFlags = []struct {
	name, usage string
}{
	{"maker", "Maker, e.g. HYUNDAI"},
	{"model_group", "Model group, e.g. GRANDEUR"},
	{"model", "Model name"},
	{"trim", "Trim"},
	{"grade", "Grade"},
	{"color", "Exterior color"},
	{"fuel", "Fuel type"},
	{"transmission", "Transmission"},
	{"region", "Region"},
	{"price_min", "Minimum price in KRW"},
	{"price_max", "Maximum price in KRW"},
	{"mileage_min", "Minimum mileage in km"},
	{"mileage_max", "Maximum mileage in km"},
	{"year_min", "Earliest model year"},
	{"year_max", "Latest model year"},
	{"platform", "Only vehicles listed on these platforms (comma separated)"},
	{"sort", "Sort: price_asc, price_desc, mileage_asc, year_desc"},
}

var searchCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Search vehicles and compare platform prices",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearch,
}

func init() {
	for _, ff := range filterFlags {
		searchCmd.Flags().String(ff.name, "", ff.usage)
	}
	searchCmd.Flags().Int("page", 0, "Page index, starting at 0")
	searchCmd.Flags().Int("size", 0, "Vehicles per page (default from config)")
	searchCmd.Flags().String("format", "json", "Output format: json, table")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	if len(args) == 1 {
		q.Set("q", args[0])
	}
	for _, ff := range filterFlags {
		if cmd.Flags().Changed(ff.name) {
			v, _ := cmd.Flags().GetString(ff.name)
			q.Set(ff.name, v)
		}
	}
	criteria, err := api.ParseCriteria(q)
	if err != nil {
		return err
	}
	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("size")
	format, _ := cmd.Flags().GetString("format")

	svc, cleanup, err := buildService(contextOf(cmd))
	if err != nil {
		return err
	}
	defer cleanup()

	spin := ui.NewSpinner(cmd.ErrOrStderr())
	spin.Start(fmt.Sprintf("Loading vehicles from %s...", svc.SourceName()))
	ctx := platform.WithProgress(contextOf(cmd), spin.Update)
	result, err := svc.Search(ctx, criteria, page, size)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if format == "table" {
		printVehiclesTable(cmd.OutOrStdout(), result)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
