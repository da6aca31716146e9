//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/alert-hub/internal/api/grpc/alert"
	"github.com/oshokin/alert-hub/internal/config"
	"github.com/oshokin/alert-hub/internal/domain/alert"
)

// Client wraps the gRPC AlertService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the alert server.
	conn *grpc.ClientConn
	// api is the AlertService client.
	api api.AlertServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errIDRequired is returned when an alert ID is not provided.
	errIDRequired = errors.New("alert id must be provided")
)

// Dial establishes a gRPC connection to the alert server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alert server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewAlertServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetAlert fetches one alert by composite ID.
func (c *Client) GetAlert(ctx context.Context, id string) (*api.View, error) {
	if id == "" {
		return nil, errIDRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetAlert(callCtx, wrapperspb.String(id))
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}

	view := new(api.View)
	if err = api.FromStruct(resp, view); err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}

	return view, nil
}

// ListAlerts fetches alerts changed after since; the zero time lists all.
func (c *Client) ListAlerts(ctx context.Context, since time.Time) ([]*api.View, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request := new(timestamppb.Timestamp)
	if !since.IsZero() {
		request = timestamppb.New(since)
	}

	resp, err := c.api.ListAlerts(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	return api.FromList(resp)
}

// ListAlertsSince fetches alerts changed after the given alert.
func (c *Client) ListAlertsSince(ctx context.Context, id string) ([]*api.View, error) {
	if id == "" {
		return nil, errIDRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ListAlertsSince(callCtx, wrapperspb.String(id))
	if err != nil {
		return nil, fmt.Errorf("list alerts since %s: %w", id, err)
	}

	return api.FromList(resp)
}

// RespondTo asks the server to apply action to an alert. It reports whether
// the action ran.
func (c *Client) RespondTo(ctx context.Context, id, action string, content any) (bool, error) {
	if id == "" {
		return false, errIDRequired
	}

	request, err := api.ToStruct(api.RespondRequest{
		ID:      id,
		Action:  action,
		Content: content,
	})
	if err != nil {
		return false, fmt.Errorf("respond to alert: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.RespondTo(callCtx, request)
	if err != nil {
		return false, fmt.Errorf("respond to alert: %w", err)
	}

	return resp.GetValue(), nil
}

// RaiseAlert creates an alert in the named source and returns its composite ID.
func (c *Client) RaiseAlert(ctx context.Context, source string, params alert.Params) (string, error) {
	request, err := api.ToStruct(api.RaiseRequest{
		Source: source,
		Params: params,
	})
	if err != nil {
		return "", fmt.Errorf("raise alert: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.RaiseAlert(callCtx, request)
	if err != nil {
		return "", fmt.Errorf("raise alert: %w", err)
	}

	return resp.GetValue(), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
