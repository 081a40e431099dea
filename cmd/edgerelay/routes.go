package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/spf13/cobra"

	"estimategenie/edgerelay/pkg/cli"
	"estimategenie/edgerelay/pkg/relay"
)

var routesFlags struct {
	path   string
	output string
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Show how a request path is classified",
	Long: `Resolve a request path against the configuration without sending
any traffic. The path may carry a query string, which is appended to the
upstream URL unchanged.

Exit code 1 means the path matches no route and would be answered with 404.

Examples:
  edgerelay routes --path /api/v1/quotes?page=2
  edgerelay routes --path /api/orchestrate/jobs -o json`,
	RunE: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)

	routesCmd.Flags().StringVarP(&routesFlags.path, "path", "p", "", "request path to resolve (required)")
	routesCmd.Flags().StringVarP(&routesFlags.output, "output", "o", "text", "output format (text, json)")
	_ = routesCmd.MarkFlagRequired("path")
}

type routeResolution struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	Route    string `json:"route,omitempty"`
	Upstream string `json:"upstream,omitempty"`
	Target   string `json:"target,omitempty"`
}

func (r routeResolution) String() string {
	if r.Kind == relay.RouteHealth {
		return fmt.Sprintf("%s -> health probe", r.Path)
	}
	return fmt.Sprintf("%s -> %s via route %s (%s)", r.Path, r.Upstream, r.Route, r.Target)
}

func runRoutes(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(routesFlags.output)
	if err != nil {
		return cli.NewConfigError("output", err.Error())
	}

	target, err := url.ParseRequestURI(routesFlags.path)
	if err != nil {
		return cli.NewConfigError("path", fmt.Sprintf("invalid request path %q: %v", routesFlags.path, err))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rl, err := relay.New(cfg, http.DefaultClient)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	res := routeResolution{Path: routesFlags.path}
	if slices.Contains(cfg.Health.Paths, target.Path) {
		res.Kind = relay.RouteHealth
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), res)
	}

	route, rewritten, err := rl.Routes().Match(target.EscapedPath())
	if errors.Is(err, relay.ErrRouteNotFound) {
		return cli.NewExitError(1, err.Error())
	}
	if err != nil {
		return cli.NewCommandError("routes", err)
	}

	res.Kind = "forward"
	res.Route = route.Name
	res.Upstream = route.Upstream.Name
	res.Target = route.Upstream.URL(rewritten, target.RawQuery).String()
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), res)
}
