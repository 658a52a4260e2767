package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/ledger"
)

var usageFlags struct {
	since  string
	format string
	output string
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Report accumulated token usage",
	Long: `Report per-day, per-model token usage from the ledger sink.

Reads the ledger database written by a running sidecar. The sidecar does
not need to be running; the ledger can be inspected at any time.

Examples:
  # All recorded usage
  callisto usage

  # Usage since a date
  callisto usage --since 2026-08-01

  # Machine-readable output
  callisto usage --format json
  callisto usage --format csv --output usage.csv`,
	RunE: runUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.Flags().StringVar(&usageFlags.since, "since", "", "only include days on or after this date (YYYY-MM-DD)")
	usageCmd.Flags().StringVarP(&usageFlags.format, "format", "f", "text", "output format (text, json, csv)")
	usageCmd.Flags().StringVarP(&usageFlags.output, "output", "o", "", "write output to file instead of stdout")
}

func runUsage(cmd *cobra.Command, args []string) error {
	switch usageFlags.format {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, csv)", usageFlags.format)
	}

	var since time.Time
	if usageFlags.since != "" {
		parsed, err := time.Parse("2006-01-02", usageFlags.since)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, usageFlags.since)
		}
		if err != nil {
			return fmt.Errorf("invalid --since value %q (want YYYY-MM-DD)", usageFlags.since)
		}
		since = parsed
	}

	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	ledgerPath := cfg.Telemetry.Sinks.Ledger.Path
	if ledgerPath == "" {
		return cli.NewConfigError("telemetry.sinks.ledger.path", "usage ledger is not configured")
	}

	// A missing database means nothing has been recorded yet. Opening it
	// would create an empty file, so report emptiness instead.
	var rows []ledger.Row
	if _, err := os.Stat(ledgerPath); err == nil {
		store, err := ledger.NewStore(ledger.Config{
			Path:        ledgerPath,
			BusyTimeout: cfg.Telemetry.Sinks.Ledger.BusyTimeout,
		})
		if err != nil {
			return cli.NewCommandError("usage", fmt.Errorf("failed to open usage ledger: %w", err))
		}
		defer store.Close()

		rows, err = store.TotalsSince(context.Background(), since)
		if err != nil {
			return cli.NewCommandError("usage", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cli.NewCommandError("usage", err)
	}

	report := newUsageReport(usageFlags.since, rows)

	out := os.Stdout
	if usageFlags.output != "" {
		f, err := os.Create(usageFlags.output)
		if err != nil {
			return cli.NewCommandError("usage", fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		out = f
	}

	formatter := cli.NewFormatter(cli.OutputFormat(usageFlags.format))
	return formatter.FormatTo(out, report)
}

// usageRow is one (day, model) aggregate in the report.
type usageRow struct {
	Day              string `json:"day"`
	Model            string `json:"model"`
	Requests         int64  `json:"requests"`
	Errors           int64  `json:"errors"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	ReasoningTokens  int64  `json:"reasoning_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
}

// usageTotals sums every row in the report.
type usageTotals struct {
	Requests         int64 `json:"requests"`
	Errors           int64 `json:"errors"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	ReasoningTokens  int64 `json:"reasoning_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// usageReport is the ledger rendered for output. It implements
// fmt.Stringer for text output and cli.CSVRecorder for CSV output.
type usageReport struct {
	Since  string      `json:"since,omitempty"`
	Rows   []usageRow  `json:"rows"`
	Totals usageTotals `json:"totals"`
}

func newUsageReport(since string, rows []ledger.Row) *usageReport {
	report := &usageReport{
		Since: since,
		Rows:  make([]usageRow, 0, len(rows)),
	}

	for _, row := range rows {
		report.Rows = append(report.Rows, usageRow{
			Day:              row.Day,
			Model:            row.Model,
			Requests:         row.Requests,
			Errors:           row.Errors,
			PromptTokens:     row.PromptTokens,
			CompletionTokens: row.CompletionTokens,
			ReasoningTokens:  row.ReasoningTokens,
			TotalTokens:      row.TotalTokens,
		})
	}

	total := ledger.Sum(rows)
	report.Totals = usageTotals{
		Requests:         total.Requests,
		Errors:           total.Errors,
		PromptTokens:     total.PromptTokens,
		CompletionTokens: total.CompletionTokens,
		ReasoningTokens:  total.ReasoningTokens,
		TotalTokens:      total.TotalTokens,
	}

	return report
}

func (r *usageReport) String() string {
	if len(r.Rows) == 0 {
		return "No usage recorded."
	}

	var b strings.Builder
	if r.Since != "" {
		fmt.Fprintf(&b, "Usage since %s\n\n", r.Since)
	}

	fmt.Fprintf(&b, "%-12s %-30s %10s %8s %10s %12s %10s %10s\n",
		"DAY", "MODEL", "REQUESTS", "ERRORS", "PROMPT", "COMPLETION", "REASONING", "TOTAL")
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "%-12s %-30s %10d %8d %10d %12d %10d %10d\n",
			row.Day, row.Model, row.Requests, row.Errors,
			row.PromptTokens, row.CompletionTokens, row.ReasoningTokens, row.TotalTokens)
	}

	fmt.Fprintf(&b, "\n%-12s %-30s %10d %8d %10d %12d %10d %10d",
		"TOTAL", "", r.Totals.Requests, r.Totals.Errors,
		r.Totals.PromptTokens, r.Totals.CompletionTokens, r.Totals.ReasoningTokens, r.Totals.TotalTokens)

	return b.String()
}

func (r *usageReport) CSVHeader() []string {
	return []string{"day", "model", "requests", "errors", "prompt_tokens", "completion_tokens", "reasoning_tokens", "total_tokens"}
}

func (r *usageReport) CSVRows() [][]string {
	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		rows = append(rows, []string{
			row.Day,
			row.Model,
			strconv.FormatInt(row.Requests, 10),
			strconv.FormatInt(row.Errors, 10),
			strconv.FormatInt(row.PromptTokens, 10),
			strconv.FormatInt(row.CompletionTokens, 10),
			strconv.FormatInt(row.ReasoningTokens, 10),
			strconv.FormatInt(row.TotalTokens, 10),
		})
	}
	return rows
}
