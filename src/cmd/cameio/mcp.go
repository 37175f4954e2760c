package main

import (
	"os"

	"github.com/spf13/cobra"

	"cameio-cli/src/mcp"
	"cameio-cli/src/prompt"
	"cameio-cli/src/store"
	"cameio-cli/src/ui"
)

var mcpFlags sessionFlags

// mcpCmd serves build service tools over MCP on stdio
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve build status, versions and build history to MCP clients over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol
		checker = nil
		printer = ui.NewPrinter(os.Stderr, os.Stderr)

		dash, err := newDashboard()
		if err != nil {
			return err
		}
		history, err := openHistory(cmd.Context())
		if err != nil {
			return err
		}

		cfg := mcp.Config{
			Dashboard: dash,
			Sessions:  newSessions(dash, &mcpFlags, &prompt.StaticPrompter{}),
			History:   history,
			Version:   version,
			Log:       log,
		}
		if dir, err := workDir(); err == nil {
			if project, err := store.RequireProject(dir); err == nil {
				cfg.Project = project
			}
		}

		log.Info("mcp server starting")
		return mcp.NewServer(cfg).Run(cmd.Context(), os.Stdin, os.Stdout)
	},
}

func init() {
	addSessionFlags(mcpCmd, &mcpFlags)
	rootCmd.AddCommand(mcpCmd)
}
