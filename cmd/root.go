package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	logLevel   string
	logFormat  string
	configPath   string
	otlpEndpoint string

	telem *telemetry
)

var rootCmd = &cobra.Command{
	Use:   "copicake-flow",
	Short: "Copicake image rendering on the SFlowG workflow engine",
	Long: `copicake-flow runs YAML-defined flows with the Copicake plugin enabled.

Flows can call copicake.create and copicake.get to render images from
Copicake templates. The image and verify commands call the API directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(logLevel, logFormat)
		if err != nil {
			return err
		}

		telem, err = setupTelemetry(cmd.Context(), otlpEndpoint)
		if err != nil {
			return err
		}
		if telem != nil {
			l = slog.New(newMirrorHandler(l.Handler(), telem.handler()))
		}
		slog.SetDefault(l)
		return nil
	},
}

// Execute runs the root command and flushes telemetry on the way out.
func Execute() error {
	err := rootCmd.Execute()

	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdown)
	defer cancel()
	if serr := telem.Shutdown(ctx); serr != nil {
		slog.Warn("Telemetry shutdown failed", "error", serr)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to flow-config.yaml (default ./flow-config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP/gRPC collector URL for traces, metrics and logs, e.g. http://localhost:4317 (default $OTEL_EXPORTER_OTLP_ENDPOINT)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(verifyCmd)
}

// newLogger builds the process logger. Logs go to stderr so command output
// on stdout stays machine readable.
func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}
