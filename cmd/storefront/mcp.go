package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront/internal/handler"
)

// runMCP serves the storefront tools over stdio for a local agent.
// stdout carries the protocol, so nothing else may print there.
func runMCP(args []string) {
	fs := newFlagSet("mcp", "[options]")
	parse(fs, args)

	ctx, a, done := setup()
	defer done()

	server := handler.New(a, a.Logger()).NewMCPServer()
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		fatal("MCP server: %v", err)
	}
}
