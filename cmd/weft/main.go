package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "weft <command>",
	Short: "Budget-aware work queue orchestrator",
	Long: `weft resolves a queue of dependent work items into a safe execution
plan, runs it under a shared budget, and watches for unproductive spirals.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
