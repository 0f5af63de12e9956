package main

import (
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/common"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	logger := common.InitLogger(config)
	if logFile := common.GetLogFilePath(logger); logFile != "" {
		common.InstallCrashHandler(filepath.Dir(logFile))
	}

	deps := newToolDeps(config, logger)
	mcpServer := newMCPServer(deps)

	logger.Info().
		Str("gitlab_url", deps.client.InstanceURL()).
		Bool("authenticated", deps.client.HasToken()).
		Int("rate_limit", config.RateLimit.RequestsPerMinute).
		Str("version", common.GetFullVersion()).
		Msg("Starting CERN GitLab MCP server")

	// Blocks until stdin closes
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
		return err
	}
	return nil
}
