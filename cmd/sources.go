package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/carizon/internal/platform"
	"github.com/lukman83/carizon/internal/ui"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List listing platforms with price statistics",
	RunE:  runSources,
}

func init() {
	sourcesCmd.Flags().String("format", "json", "Output format: json, table")
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	svc, cleanup, err := buildService(contextOf(cmd))
	if err != nil {
		return err
	}
	defer cleanup()

	spin := ui.NewSpinner(cmd.ErrOrStderr())
	spin.Start("Collecting platform statistics...")
	ctx := platform.WithProgress(contextOf(cmd), spin.Update)
	stats, err := svc.Sources(ctx)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("sources failed: %w", err)
	}

	if format == "table" {
		printSourcesTable(cmd.OutOrStdout(), stats)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), stats)
}
