package main

import (
	"fmt"
	"os"

	"github.com/MohamedElashri/cerngitlab-mcp/internal/common"
)

func main() {
	defer common.RecoverWithCrashFile()

	rootCmd.Version = common.LoadVersionFromFile()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
