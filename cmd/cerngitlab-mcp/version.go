package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version, build and commit",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", common.ServerName, common.GetFullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
