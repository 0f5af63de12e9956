package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test connectivity to the configured GitLab instance",
	Long: `Queries the instance version and prints the connection status as JSON,
the same payload the test_connectivity tool returns. Exits non-zero when the
instance cannot be reached.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	deps := newToolDeps(config, arbor.NewLogger())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := config.CallTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	status := deps.connectivity(ctx)
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if status.Status != statusConnected {
		return fmt.Errorf("cannot reach %s: %s", status.GitLabURL, status.Error)
	}
	return nil
}
