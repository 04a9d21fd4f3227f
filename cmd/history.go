package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/carizon/internal/platform"
	"github.com/lukman83/carizon/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show a vehicle's price history",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().String("platform", "", "Only this platform's price checks")
	historyCmd.Flags().String("format", "json", "Output format: json, table")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("platform")
	format, _ := cmd.Flags().GetString("format")

	svc, cleanup, err := buildService(contextOf(cmd))
	if err != nil {
		return err
	}
	defer cleanup()

	spin := ui.NewSpinner(cmd.ErrOrStderr())
	spin.Start(fmt.Sprintf("Loading price history for %s...", args[0]))
	ctx := platform.WithProgress(contextOf(cmd), spin.Update)
	points, err := svc.History(ctx, args[0], source)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("history failed: %w", err)
	}

	if format == "table" {
		printHistoryTable(cmd.OutOrStdout(), points)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), points)
}
