package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/carizon/internal/platform"
	"github.com/lukman83/carizon/internal/ui"
)

var detailCmd = &cobra.Command{
	Use:   "detail <id>",
	Short: "Show one vehicle with per-platform price comparison",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetail,
}

func init() {
	detailCmd.Flags().String("format", "json", "Output format: json, table")
	rootCmd.AddCommand(detailCmd)
}

func runDetail(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	svc, cleanup, err := buildService(contextOf(cmd))
	if err != nil {
		return err
	}
	defer cleanup()

	spin := ui.NewSpinner(cmd.ErrOrStderr())
	spin.Start(fmt.Sprintf("Looking up %s...", args[0]))
	ctx := platform.WithProgress(contextOf(cmd), spin.Update)
	detail, err := svc.Detail(ctx, args[0])
	spin.Stop()
	if err != nil {
		return fmt.Errorf("detail failed: %w", err)
	}

	if format == "table" {
		printDetail(cmd.OutOrStdout(), detail)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), detail)
}
