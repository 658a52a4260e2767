package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/aliases"
	"mercator-hq/callisto/pkg/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the configuration file and the models file it references.

Checks that the config parses, that every field passes validation, and
that the models file (when configured) parses and contains no empty
aliases. Exits non-zero on the first problem found.

Examples:
  # Validate the default config
  callisto validate

  # Validate a specific config
  callisto validate --config /etc/callisto/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating configuration: %s\n", cfgFile)

	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}
	fmt.Println("✓ Configuration valid")

	if cfg.Aliases.Path != "" {
		lookup, err := aliases.LoadFile(cfg.Aliases.Path)
		if err != nil {
			return cli.NewConfigError("aliases.path", err.Error())
		}
		fmt.Printf("✓ Models file valid (%d aliases)\n", len(lookup))
	}

	fmt.Printf("\nListen address: %s\n", cfg.Server.ListenAddress)
	fmt.Printf("Upstream:       %s\n", cfg.Upstream.BaseURL)
	fmt.Printf("Telemetry:      %s\n", enabledWord(cfg.Telemetry.Enabled))
	fmt.Printf("Launcher:       %s\n", enabledWord(cfg.Launcher.Enabled))

	return nil
}

func enabledWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
