/*
Package cli provides command-line utilities shared by the callisto
command.

Output Formatting:

Command results render as text, JSON, or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

CSV output requires the result type to implement CSVRecorder; the other
formats accept any value.

Error Types:

ConfigError and CommandError give subcommands a uniform failure surface:

	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	sigChan := cli.WaitForShutdown()
	select {
	case <-sigChan:
		// shut down
	}
*/
package cli
