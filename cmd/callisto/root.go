package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// defaultConfigFile is tried when --config is not given; a missing
// default file falls back to built-in defaults instead of failing.
const defaultConfigFile = "config.yaml"

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "callisto",
	Short: "Callisto - telemetry sidecar for completions APIs",
	Long: `Callisto is a telemetry sidecar for OpenAI-compatible completions servers.

It fronts a single upstream with a transparent reverse proxy, providing:
  - Byte-identical request/response passthrough, streaming included
  - Normalized token usage extraction from JSON and SSE responses
  - Fan-out telemetry: structured logs, Prometheus metrics, SQLite
    persistence, per-model usage ledger
  - Model alias resolution with hot reload
  - Optional supervision of the upstream process

For more information, visit: https://github.com/mercator-hq/callisto`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
