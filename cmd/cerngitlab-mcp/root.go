package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/common"
)

var (
	// configFlag is the CLI --config flag value
	configFlag    string
	gitlabURLFlag string
	logLevelFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "cerngitlab-mcp",
	Short: "Read-only MCP server for CERN GitLab",
	Long: `cerngitlab-mcp exposes CERN GitLab to MCP clients over stdio: project and
code search, file and release retrieval, and project inspection (build
systems, dependency manifests and CI pipelines). Every operation is read-only.

Running without a subcommand is the same as "serve".`,
	Version:       common.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.SetVersionTemplate("cerngitlab-mcp version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Config file (default: $CERNGITLAB_CONFIG or "+common.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&gitlabURLFlag, "gitlab-url", "",
		"GitLab instance URL, overrides the config file and environment")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: trace, debug, info, warn, error")
}

// loadConfig resolves configuration.
// Precedence: flags > environment > .env > config file > defaults
func loadConfig() (*common.Config, error) {
	if err := common.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	path := configFlag
	if path == "" {
		path = os.Getenv("CERNGITLAB_CONFIG")
	}
	if path == "" {
		path = common.DefaultConfigPath
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	config, err := common.LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	common.ApplyFlagOverrides(config, gitlabURLFlag, logLevelFlag)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
