package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"estimategenie/edgerelay/pkg/cli"
	"estimategenie/edgerelay/pkg/relay"
)

var validateFlags struct {
	output string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and print the route table",
	Long: `Load and validate the configuration, then print the resolved route
table in match order (longest prefix first).

Examples:
  edgerelay validate --config config.yaml
  edgerelay validate -o json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "text", "output format (text, json)")
}

// routeSummary is one row of the resolved route table.
type routeSummary struct {
	Name     string `json:"name"`
	Prefix   string `json:"prefix"`
	Upstream string `json:"upstream"`
	Target   string `json:"target"`
}

type validateResult struct {
	Valid       bool           `json:"valid"`
	HealthPaths []string       `json:"health_paths"`
	Routes      []routeSummary `json:"routes"`
}

func (v validateResult) String() string {
	var b strings.Builder
	b.WriteString("✓ Configuration valid\n")
	fmt.Fprintf(&b, "\nHealth paths: %s\n", strings.Join(v.HealthPaths, ", "))
	b.WriteString("\nRoutes:\n")
	for _, r := range v.Routes {
		fmt.Fprintf(&b, "  %-24s %-20s -> %s (%s)\n", r.Name, r.Prefix, r.Upstream, r.Target)
	}
	return strings.TrimRight(b.String(), "\n")
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.output)
	if err != nil {
		return cli.NewConfigError("output", err.Error())
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rl, err := relay.New(cfg, http.DefaultClient)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	result := validateResult{
		Valid:       true,
		HealthPaths: cfg.Health.Paths,
		Routes:      summarizeRoutes(rl.Routes()),
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result)
}

func summarizeRoutes(table *relay.RouteTable) []routeSummary {
	routes := table.Routes()
	out := make([]routeSummary, 0, len(routes))
	for _, r := range routes {
		out = append(out, routeSummary{
			Name:     r.Name,
			Prefix:   r.Prefix,
			Upstream: r.Upstream.Name,
			Target:   r.Upstream.URL(r.Rewrite(r.Prefix), "").String(),
		})
	}
	return out
}
