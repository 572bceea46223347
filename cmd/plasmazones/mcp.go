package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plasmazones/plasmazones/internal/logging"
	"github.com/plasmazones/plasmazones/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP tools on stdio",
	Long: `Start an MCP server on stdio. The tools list, create and assign layouts,
switch the tiling mode and trigger shortcut actions by talking to the
running daemon over its IPC socket.

Example:
  claude mcp add plasmazones -- plasmazones mcp serve`,
	Args: noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		// stdout carries the protocol; logs go to stderr.
		log := logging.NewFromEnv()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return mcp.NewServer(client(), log).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.AddCommand(mcpServeCmd)
}
