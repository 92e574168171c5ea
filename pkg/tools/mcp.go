package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPTransport selects how RegisterMCPServer reaches an external tool
// server.
type MCPTransport int

const (
	MCPTransportStdio MCPTransport = iota
	MCPTransportStreamableHTTP
)

// MCPServerConfig describes one external tool server to import, e.g. a
// CRM or core-banking bridge exposed over MCP rather than implemented
// in-process.
type MCPServerConfig struct {
	Name      string
	Transport MCPTransport
	Command   string // stdio: space-separated executable + args
	URL       string // streamable-http: endpoint address
	Timeout   time.Duration
}

// RegisterMCPServer connects to an external MCP tool server and imports
// its catalog into the registry, proxying each discovered tool's
// invocation through the same Invoke path (timeout, history, schema
// validation on the caller's output schema if one was separately
// declared).
func (r *Registry) RegisterMCPServer(ctx context.Context, cfg MCPServerConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("mcp server config must have a non-empty name")
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "agentcore", Version: "1.0.0"}, nil)

	var transport mcpsdk.Transport
	switch cfg.Transport {
	case MCPTransportStdio:
		parts := strings.Fields(cfg.Command)
		if len(parts) == 0 {
			return fmt.Errorf("mcp server %q: stdio transport requires a non-empty command", cfg.Name)
		}
		cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
		transport = &mcpsdk.CommandTransport{Command: cmd}
	case MCPTransportStreamableHTTP:
		if cfg.URL == "" {
			return fmt.Errorf("mcp server %q: streamable-http transport requires a URL", cfg.Name)
		}
		transport = &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}
	default:
		return fmt.Errorf("mcp server %q: unknown transport", cfg.Name)
	}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("mcp server %q: connect: %w", cfg.Name, err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return fmt.Errorf("mcp server %q: list tools: %w", cfg.Name, err)
		}
		name := tool.Name
		r.Register(Definition{
			Name:        name,
			Description: tool.Description,
			Timeout:     timeout,
			Category:    "mcp:" + cfg.Name,
		}, mcpProxyHandler(session, name))
	}

	return nil
}

// mcpProxyHandler turns one remote MCP tool into a local Handler by
// calling it over the existing session on every invocation.
func mcpProxyHandler(session *mcpsdk.ClientSession, toolName string) Handler {
	return func(ctx context.Context, args map[string]any) (Result, error) {
		out, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
			Name:      toolName,
			Arguments: args,
		})
		if err != nil {
			return Result{}, err
		}
		if out.IsError {
			return Result{}, fmt.Errorf("mcp tool %q returned an error result", toolName)
		}

		content := make([]Content, 0, len(out.Content))
		for _, c := range out.Content {
			if tc, ok := c.(*mcpsdk.TextContent); ok {
				content = append(content, Content{Type: ContentText, Text: tc.Text})
			}
		}
		return Result{Content: content}, nil
	}
}
