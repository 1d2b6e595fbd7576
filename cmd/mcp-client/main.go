package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
)

var (
	serverBin string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "mcp-client",
	Short:         "Call the persona-prompt MCP server over stdio",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaultBin := os.Getenv("MCP_SERVER_BIN")
	if defaultBin == "" {
		defaultBin = "mcp-server"
	}
	rootCmd.PersistentFlags().StringVar(&serverBin, "server", defaultBin, "server binary to spawn (env MCP_SERVER_BIN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall call timeout")

	rootCmd.AddCommand(listCmd, promptCmd, overrideCmd, previewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// callTool spawns the server, performs the initialize handshake and calls one tool.
func callTool(ctx context.Context, name string, args map[string]any) error {
	// --- MCP クライアントの起動（サーバープロセスを spawn） ---
	c, err := client.NewStdioMCPClient(serverBin, os.Environ())
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// --- Initialize ハンドシェイク ---
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "persona-prompt-client",
		Version: "0.1.0",
	}

	initResult, err := c.Initialize(ctx, initReq)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Connected to: %s %s\n", initResult.ServerInfo.Name, initResult.ServerInfo.Version)

	toolReq := mcp.CallToolRequest{}
	toolReq.Params.Name = name
	toolReq.Params.Arguments = args

	result, err := c.CallTool(ctx, toolReq)
	if err != nil {
		return fmt.Errorf("tool call failed: %w", err)
	}

	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			if result.IsError {
				return fmt.Errorf("%s: %s", name, tc.Text)
			}
			fmt.Println(tc.Text)
		}
	}
	if result.IsError {
		return fmt.Errorf("%s failed", name)
	}
	return nil
}
