package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "replkit",
	Short: "Incremental REPL load coordinator",
	Long: `replkit coordinates a long-lived interactive compiler REPL for a project,
loading files incrementally and rebuilding changed library dependencies
before they go stale.

It also manages the auxiliary builds (lint tools, search index) that run
alongside the REPL at project startup.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
