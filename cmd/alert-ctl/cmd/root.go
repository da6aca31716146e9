package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/alert-hub/internal/config"
	"github.com/oshokin/alert-hub/internal/domain/alert"
	client "github.com/oshokin/alert-hub/internal/service/client"
	"github.com/oshokin/alert-hub/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the address from the configuration file.
	serverAddress string

	// rootCmd represents the base command for talking to an alert hub.
	rootCmd = &cobra.Command{
		Use:   "alert-ctl",
		Short: "Inspect and respond to alerts held by an alert hub.",
		Long: `Talks to a running alert hub over gRPC.

Alerts can be listed, shown with their history, raised on a managed source and
responded to. The server address comes from the configuration file unless
--server is given, in which case no configuration file is needed.`,
		SilenceUsage: true,
	}
)

// Execute runs the alert-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runWith wires signal handling and options into a subcommand body.
func runWith(fn func(ctx context.Context, opts *client.Options) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return fn(ctx, &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
	})
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <alert-id>",
		Short: "Show an alert with its history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, opts *client.Options) error {
				return client.Get(ctx, opts, args[0])
			})
		},
	}
}

func newListCmd() *cobra.Command {
	var (
		since   time.Duration
		afterID string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts changed recently.",
		Long: `Lists alerts whose latest change is newer than --since ago.
With --after-id only alerts changed after that alert are listed.
Without either flag every alert is listed.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}

			return runWith(func(ctx context.Context, opts *client.Options) error {
				return client.List(ctx, opts, from, afterID)
			})
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "only alerts changed within this duration")
	cmd.Flags().StringVar(&afterID, "after-id", "", "only alerts changed after this alert")
	cmd.MarkFlagsMutuallyExclusive("since", "after-id")

	return cmd
}

func newRespondCmd() *cobra.Command {
	var content string

	cmd := &cobra.Command{
		Use:   "respond <alert-id> <in-progress|handle|unhandle|clear>",
		Short: "Respond to an actionable alert.",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runWith(func(ctx context.Context, opts *client.Options) error {
				return client.Respond(ctx, opts, args[0], args[1], content)
			})
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "note recorded with the response (defaults to user@host)")

	return cmd
}

func newRaiseCmd() *cobra.Command {
	var (
		raise client.RaiseOptions
		level string
		note  string
	)

	cmd := &cobra.Command{
		Use:   "raise",
		Short: "Raise an alert on a managed source.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			parsed, err := alert.ParseLevel(level)
			if err != nil {
				return err
			}

			raise.Level = parsed
			if note != "" {
				raise.Content = note
			}

			return runWith(func(ctx context.Context, opts *client.Options) error {
				return client.Raise(ctx, opts, &raise)
			})
		},
	}

	cmd.Flags().StringVar(&raise.Source, "source", "", "name of the source that stores the alert")
	cmd.Flags().StringVar(&raise.Type, "type", "", "classification URI of the alert")
	cmd.Flags().StringVar(&raise.Description, "description", "", "human-readable text")
	cmd.Flags().StringVar(&level, "level", alert.LevelWarning.String(), "severity: info, warning, minor, major, critical or fatal")
	cmd.Flags().BoolVar(&raise.Actionable, "actionable", false, "allow responders to act on the alert")
	cmd.Flags().StringVar(&note, "content", "", "payload of the creation event")

	for _, name := range []string{"source", "type"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	return cmd
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "alert hub address, overrides configuration")

	rootCmd.AddCommand(newGetCmd(), newListCmd(), newRespondCmd(), newRaiseCmd())
}
