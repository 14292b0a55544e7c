package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/timekeepco/timekeep/internal/config"
	"github.com/timekeepco/timekeep/internal/logging"
)

// Execute runs the timekeep command line and exits non-zero on failure.
func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel  string
	logFormat string
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	return logging.NewWithWriter(w, config.LoggingConfig{
		Level:  o.logLevel,
		Format: o.logFormat,
	})
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "timekeep",
		Short:        "Reconcile TAR and ECB service code exports",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: text|json")

	cmd.AddCommand(
		compareCmd(opts),
		datagenCmd(),
		runsCmd(opts),
	)
	return cmd
}
