package server

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tmc/langchaingo/tools"
)

// MCPServer publishes the engine's tool surface over the Model Context
// Protocol so external agents can drive the same primitives the planner uses.
type MCPServer struct {
	inner  *server.MCPServer
	listen string
}

func newMCPServer(listen string, toolList []tools.Tool) *MCPServer {
	inner := server.NewMCPServer(
		"grapebot",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	for _, tool := range toolList {
		inner.AddTool(
			mcp.NewTool(tool.Name(),
				mcp.WithDescription(tool.Description()),
				mcp.WithString("input",
					mcp.Required(),
					mcp.Description("Tool input, JSON object or bare string"),
				),
			),
			adaptToolHandler(tool),
		)
	}

	return &MCPServer{
		inner:  inner,
		listen: listen,
	}
}

func adaptToolHandler(tool tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := request.RequireString("input")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		output, err := tool.Call(ctx, input)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(output), nil
	}
}

func (m *MCPServer) Run(ctx context.Context) {
	if m.listen == "" {
		return
	}

	httpServer := server.NewStreamableHTTPServer(m.inner)

	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	slog.Info("MCP server listening", "addr", m.listen)

	if err := httpServer.Start(m.listen); err != nil {
		slog.Error("MCP server stopped", "error", err)
	}
}
