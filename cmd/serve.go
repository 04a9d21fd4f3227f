package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	mcpserver "github.com/lukman83/carizon/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP stdio server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := buildService(contextOf(cmd))
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting Carizon MCP server on stdio (source: %s)...\n", svc.SourceName())

	if err := mcpserver.Serve(svc); err != nil {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}
