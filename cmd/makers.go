package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/carizon/internal/platform"
	"github.com/lukman83/carizon/internal/ui"
)

var makersCmd = &cobra.Command{
	Use:   "makers [query]",
	Short: "List vehicle makers",
	Long:  "List makers in the snapshot with vehicle counts, optionally filtered by a substring.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMakers,
}

func init() {
	makersCmd.Flags().String("format", "json", "Output format: json, table")
	rootCmd.AddCommand(makersCmd)
}

func runMakers(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	svc, cleanup, err := buildService(contextOf(cmd))
	if err != nil {
		return err
	}
	defer cleanup()

	spin := ui.NewSpinner(cmd.ErrOrStderr())
	spin.Start("Loading makers...")
	ctx := platform.WithProgress(contextOf(cmd), spin.Update)
	makers, err := svc.Makers(ctx, query)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("makers failed: %w", err)
	}

	if format == "table" {
		printMakersTable(cmd.OutOrStdout(), makers)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), makers)
}
