package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"estimategenie/edgerelay/pkg/cli"
	"estimategenie/edgerelay/pkg/config"
	"estimategenie/edgerelay/pkg/telemetry/logging"
)

// defaultEnvFile is loaded when present unless --env-file names another file.
const defaultEnvFile = ".env"

var (
	// Global flags
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "edgerelay",
	Short: "Edge relay - stateless HTTP reverse proxy for the API origins",
	Long: `Edgerelay sits at the edge in front of the backend API and the
orchestration service. It:
  - Answers CORS preflight requests without contacting an origin
  - Reports the health of every origin on /health and /api/health
  - Forwards /api/orchestrate* to the orchestrator and /api/v1* to the backend,
    stripping the /api prefix
  - Returns 404 "API endpoint not found" for anything else

Configuration comes from an optional YAML file, an optional dotenv file, and
EDGERELAY_* environment variables, in increasing order of precedence.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx := cli.SetupSignalHandler()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

// exitCode prints err and maps it to a process exit status. An ExitError
// keeps its own code.
func exitCode(err error, w io.Writer) int {
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintln(w, exitErr.Message)
		}
		return exitErr.Code
	}
	fmt.Fprintln(w, "Error:", err)
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and environment only when empty)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file loaded before environment overrides")
}

// loadConfig loads the dotenv file, then the configuration with environment
// overrides. The default dotenv file is optional; one named on the command
// line must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	optional := !cmd.Flags().Changed("env-file")
	if err := config.LoadEnvFile(envFile, optional); err != nil {
		return nil, cli.NewConfigError("env-file", err.Error())
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg, nil
}

// newLogger builds the process logger from configuration and installs it as
// the slog default. Logs go to stderr so command output stays parseable.
func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	logger, err := logging.New(cfg, os.Stderr)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return logger, nil
}
