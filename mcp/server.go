package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/carizon/internal/market"
)

const (
	serverName    = "carizon"
	serverVersion = "1.0.0"
)

func newMCPServer(svc *market.Service) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)
	registerTools(s, svc)
	return s
}

// Serve starts the MCP stdio server with all tools registered.
func Serve(svc *market.Service) error {
	return server.ServeStdio(newMCPServer(svc))
}
