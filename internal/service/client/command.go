package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	api "github.com/oshokin/alert-hub/internal/api/grpc/alert"
	"github.com/oshokin/alert-hub/internal/config"
	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
	"github.com/oshokin/alert-hub/internal/service/common"
)

// Options configures how commands reach the server and where they print.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Out receives command output; stdout when nil.
	Out io.Writer

	// now is the reference time for relative timestamps.
	now func() time.Time
}

// RaiseOptions describes a new alert.
type RaiseOptions struct {
	Source string
	alert.Params
}

// Get prints one alert with its history.
func Get(ctx context.Context, opts *Options, id string) error {
	return withClient(ctx, opts, func(ctx context.Context, c *common.Client) error {
		view, err := c.GetAlert(ctx, id)
		if err != nil {
			return err
		}

		writeDetails(opts.out(), view, opts.clock())

		return nil
	})
}

// List prints alerts changed after since, or after the alert sinceID when it
// is set.
func List(ctx context.Context, opts *Options, since time.Time, sinceID string) error {
	return withClient(ctx, opts, func(ctx context.Context, c *common.Client) error {
		var (
			views []*api.View
			err   error
		)

		if sinceID != "" {
			views, err = c.ListAlertsSince(ctx, sinceID)
		} else {
			views, err = c.ListAlerts(ctx, since)
		}

		if err != nil {
			return err
		}

		writeTable(opts.out(), views, opts.clock())

		return nil
	})
}

// Respond applies action to an alert. Without explicit content the local
// actor is recorded.
func Respond(ctx context.Context, opts *Options, id, action, content string) error {
	return withClient(ctx, opts, func(ctx context.Context, c *common.Client) error {
		var payload any

		switch {
		case content != "":
			payload = content
		default:
			if actor, err := common.DetectActor(); err == nil {
				payload = "by " + actor.String()
			}
		}

		applied, err := c.RespondTo(ctx, id, action, payload)
		if err != nil {
			return err
		}

		if !applied {
			_, _ = fmt.Fprintf(opts.out(), "%s: nothing to respond to\n", id)

			return nil
		}

		_, _ = fmt.Fprintf(opts.out(), "%s: %s\n", id, action)

		return nil
	})
}

// Raise creates an alert and prints its ID.
func Raise(ctx context.Context, opts *Options, raise *RaiseOptions) error {
	return withClient(ctx, opts, func(ctx context.Context, c *common.Client) error {
		id, err := c.RaiseAlert(ctx, raise.Source, raise.Params)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(opts.out(), id)

		return nil
	})
}

// withClient loads settings, connects and runs fn.
func withClient(ctx context.Context, opts *Options, fn func(context.Context, *common.Client) error) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alert-ctl")

	serverAddress, timeout, err := resolveServer(opts)
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Connected to alert server", "server_address", serverAddress)

	return fn(ctx, client)
}

// resolveServer picks the server address and timeout. An explicit address
// works without a settings file.
func resolveServer(opts *Options) (string, time.Duration, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err == nil {
		address := cfg.ServerAddress
		if opts.ServerAddress != "" {
			address = opts.ServerAddress
		}

		return address, cfg.Timeout, nil
	}

	if opts.ServerAddress != "" {
		return opts.ServerAddress, config.DefaultTimeout, nil
	}

	return "", 0, err
}

func (o *Options) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}

	return o.Out
}

func (o *Options) clock() time.Time {
	if o.now == nil {
		return time.Now()
	}

	return o.now()
}

// writeTable prints one line per alert.
func writeTable(w io.Writer, views []*api.View, now time.Time) {
	if len(views) == 0 {
		_, _ = fmt.Fprintln(w, "no alerts")

		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tLEVEL\tSTATE\tTYPE\tCHANGED")

	for _, v := range views {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Level, v.State, v.Type, relative(v.LatestChange(), now))
	}

	_ = tw.Flush()
}

// writeDetails prints one alert and its history.
func writeDetails(w io.Writer, v *api.View, now time.Time) {
	var b strings.Builder

	fmt.Fprintf(&b, "ID:          %s\n", v.ID)
	fmt.Fprintf(&b, "Type:        %s\n", v.Type)
	fmt.Fprintf(&b, "Level:       %s\n", v.Level)
	fmt.Fprintf(&b, "State:       %s\n", v.State)
	fmt.Fprintf(&b, "Actionable:  %t\n", v.Actionable)

	if v.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", v.Description)
	}

	b.WriteString("History:\n")

	for _, ev := range v.Events {
		fmt.Fprintf(&b, "  %-12s %s", ev.State, relative(ev.ChangeTime, now))

		if ev.Content != nil && ev.Content != "" {
			fmt.Fprintf(&b, "  %v", ev.Content)
		}

		b.WriteByte('\n')
	}

	_, _ = io.WriteString(w, b.String())
}

func relative(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	return humanize.RelTime(t, now, "ago", "from now")
}
