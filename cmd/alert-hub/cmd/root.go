package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alert-hub/internal/config"
	"github.com/oshokin/alert-hub/internal/logger"
	"github.com/oshokin/alert-hub/internal/service/server"
	"github.com/oshokin/alert-hub/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// envFiles are dotenv files loaded before settings.
	envFiles []string

	// rootCmd represents the base command for running the alert hub.
	rootCmd = &cobra.Command{
		Use:   "alert-hub [listen-address]",
		Short: "Aggregate alerts from configured sources and dispatch responses.",
		Long: `Starts the alert hub: every configured source is merged behind one provider,
changes are fanned out to listeners and rule-based responders act on actionable alerts.

Alerts are served over gRPC on the configured server address. The port from
server_addr is used unless a listen address is passed as an argument
(e.g., :9090, 0.0.0.0:8080). Environment variables prefixed with ALERT_HUB_
override file settings and may be supplied through dotenv files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if err := config.LoadDotEnv(envFiles...); err != nil {
				logger.Errorf(ctx, "Failed to load environment files: %v", err)

				return err
			}

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
			})
		},
	}
)

// Execute runs the alert-hub CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringSliceVarP(&envFiles, "env-file", "e", []string{".env"}, "dotenv files to load")
}
