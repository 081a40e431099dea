package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"estimategenie/edgerelay/pkg/cli"
	"estimategenie/edgerelay/pkg/relay"
)

var probeFlags struct {
	output string
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe every upstream once and print the health report",
	Long: `Probe every configured upstream concurrently, exactly as the health
endpoint does, and print the report. No listener is started.

Exit code 1 means at least one upstream is not healthy.

Examples:
  edgerelay probe
  edgerelay probe -o text --config config.yaml`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVarP(&probeFlags.output, "output", "o", "json", "output format (text, json)")
}

// probeReport renders a health report as a table in text output.
type probeReport struct {
	relay.HealthReport
}

func (p probeReport) String() string {
	names := make([]string, 0, len(p.Services))
	for name := range p.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s (%s)\n", p.Status, p.Timestamp.Format(time.RFC3339))
	for _, name := range names {
		fmt.Fprintf(&b, "  %-16s %-12s %s\n", name, p.Services[name], p.URLs[name])
	}
	return strings.TrimRight(b.String(), "\n")
}

func runProbe(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(probeFlags.output)
	if err != nil {
		return cli.NewConfigError("output", err.Error())
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Telemetry.Logging)
	if err != nil {
		return err
	}

	rl, err := relay.New(cfg, relay.NewHTTPClient(nil), relay.WithLogger(logger))
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	report := rl.Prober().Probe(cmd.Context())

	var out any = report
	if format == cli.FormatText {
		out = probeReport{report}
	}
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	if !report.Healthy() {
		return cli.NewExitError(1, "relay is degraded")
	}
	return nil
}
