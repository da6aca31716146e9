package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"
	"google.golang.org/grpc"

	api "github.com/oshokin/alert-hub/internal/api/grpc/alert"
	"github.com/oshokin/alert-hub/internal/config"
	"github.com/oshokin/alert-hub/internal/listener/logging"
	"github.com/oshokin/alert-hub/internal/listener/webhook"
	"github.com/oshokin/alert-hub/internal/logger"
	"github.com/oshokin/alert-hub/internal/metrics"
	"github.com/oshokin/alert-hub/internal/provider"
	"github.com/oshokin/alert-hub/internal/repository/memory"
	"github.com/oshokin/alert-hub/internal/repository/sqlstore"
	"github.com/oshokin/alert-hub/internal/repository/state"
	"github.com/oshokin/alert-hub/internal/repository/timeline"
	"github.com/oshokin/alert-hub/internal/responder"
	"github.com/oshokin/alert-hub/internal/version"
)

// Options controls the alert-hub process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
}

var (
	// ErrNoServerAddress indicates missing server configuration.
	ErrNoServerAddress = errors.New("no server address configured")
	// ErrNoSources indicates that no alert source is configured.
	ErrNoSources = errors.New("no alert sources configured")
)

// metricsShutdownTimeout bounds the graceful stop of the metrics endpoint.
const metricsShutdownTimeout = 5 * time.Second

// Run starts the alert service and blocks until context is canceled or the
// gRPC server stops.
//
//nolint:funlen // Linear assembly of the process.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alert-hub")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyLogLevel(ctx, settings.LogLevel)

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	if len(settings.Sources) == 0 {
		return ErrNoSources
	}

	pipeline, err := assemble(ctx, settings)
	if err != nil {
		return err
	}

	defer pipeline.close(ctx)

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterAlertServiceServer(grpcServer, api.NewServer(pipeline.service))

	var background conc.WaitGroup

	defer background.Wait()

	serveCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	pipeline.startBackground(serveCtx, &background)

	if settings.MetricsAddress != "" {
		metricsServer := &http.Server{
			Addr:              settings.MetricsAddress,
			Handler:           metricsMux(pipeline.metrics),
			ReadHeaderTimeout: settings.Timeout,
		}

		background.Go(func() {
			serveMetrics(serveCtx, metricsServer)
		})
	}

	background.Go(func() {
		watchSettings(serveCtx, opts.ConfigPath)
	})

	logger.InfoKV(ctx, "Alert hub listening",
		"listen_address", listenAddress,
		"metrics_address", settings.MetricsAddress,
		"sources", len(settings.Sources),
		"version", version.Short())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-serveCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err = grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		stopBackground()
		<-done

		return fmt.Errorf("serve gRPC: %w", err)
	}

	stopBackground()
	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// hub is the assembled alert pipeline.
type hub struct {
	provider  *provider.Provider
	service   *service
	metrics   *metrics.Metrics
	timelines []*timeline.Source
	closers   []func() error
}

// assemble builds the provider, its observers and its sources from settings.
func assemble(ctx context.Context, settings *config.Config) (*hub, error) {
	m := metrics.New()

	var listenerExec provider.Executor = provider.NewPool()
	if settings.ListenerPoolSize > 0 {
		listenerExec = provider.NewBoundedPool(settings.ListenerPoolSize)
	}

	p := provider.New(
		provider.WithListenerExecutor(listenerExec),
		provider.WithResponderExecutor(provider.NewSerial()),
		provider.WithErrorHandler(m.ObserveError),
	)

	m.Track(p)
	p.AddListener(m)

	if settings.AuditLog != nil {
		level, _ := logger.ParseLogLevel(settings.AuditLog.Level)
		p.AddListener(logging.New(level, settings.AuditLog.Escalation()))
	}

	for _, hook := range settings.Webhooks {
		p.AddListener(webhook.New(hook))
	}

	if len(settings.Responders) > 0 {
		p.AddResponder(responder.NewRuleResponder(settings.Responders...))
	}

	h := &hub{
		provider: p,
		service:  newService(p),
		metrics:  m,
	}

	for _, src := range settings.Sources {
		if err := h.addSource(ctx, src); err != nil {
			h.close(ctx)

			return nil, fmt.Errorf("source %q: %w", src.Name, err)
		}

		logger.InfoKV(ctx, "Alert source registered", "source", src.Name, "kind", src.Kind)
	}

	return h, nil
}

// addSource opens src and registers it with the provider.
func (h *hub) addSource(ctx context.Context, src config.Source) error {
	switch src.Kind {
	case config.SourceMemory:
		mgr := memory.New(src.Name)

		if src.StateFile != "" {
			closeFn, err := restoreMemory(ctx, mgr, state.NewFileRepository(src.StateFile))
			if err != nil {
				return err
			}

			h.closers = append(h.closers, closeFn)
		}

		key, err := h.provider.AddManager(mgr)
		if err != nil {
			return err
		}

		h.service.addRaiser(key, mgr)
	case config.SourceSQL:
		mgr, err := sqlstore.Open(ctx, src.Driver, src.DSN, src.Name)
		if err != nil {
			return err
		}

		h.closers = append(h.closers, mgr.Close)

		key, err := h.provider.AddManager(mgr)
		if err != nil {
			return err
		}

		h.service.addRaiser(key, mgr)
	case config.SourceTimeline:
		feed, err := timeline.Dial(ctx, src.Name, src.URL)
		if err != nil {
			return err
		}

		h.closers = append(h.closers, feed.Close)

		if _, err = h.provider.AddSource(feed); err != nil {
			return err
		}

		h.timelines = append(h.timelines, feed)
	default:
		return fmt.Errorf("unknown source kind %q", src.Kind)
	}

	return nil
}

// restoreMemory loads the stored snapshot of mgr, if any, and returns a
// closer that stores it again.
func restoreMemory(ctx context.Context, mgr *memory.Manager, repo state.Repository) (func() error, error) {
	snapshot, err := repo.Load(ctx)

	switch {
	case errors.Is(err, state.ErrNotFound):
		logger.DebugKV(ctx, "No stored alerts", "source", mgr.Name())
	case err != nil:
		return nil, err
	default:
		mgr.Restore(snapshot.Records()...)
		logger.InfoKV(ctx, "Stored alerts restored",
			"source", mgr.Name(),
			"alerts", len(snapshot.Alerts),
			"saved_at", snapshot.SavedAt)
	}

	return func() error {
		return repo.Save(context.WithoutCancel(ctx), state.Capture(mgr.Name(), mgr.Snapshot(), time.Now()))
	}, nil
}

// startBackground forwards timeline events into the pipeline until ctx ends.
func (h *hub) startBackground(ctx context.Context, wg *conc.WaitGroup) {
	for _, feed := range h.timelines {
		wg.Go(func() {
			if err := feed.Forward(ctx, h.provider); err != nil {
				logger.ErrorKV(ctx, "Timeline forwarding stopped", "source", feed.SourceKey(), "error", err)
			}
		})
	}
}

// close drains the pipeline and releases sources.
func (h *hub) close(ctx context.Context) {
	h.provider.Close()

	var errs error
	for _, closeFn := range h.closers {
		errs = multierr.Append(errs, closeFn())
	}

	if errs != nil {
		logger.ErrorKV(ctx, "Failed to close alert sources", "error", errs)
	}
}

// metricsMux routes /metrics to the registry.
func metricsMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	return mux
}

// serveMetrics runs srv until ctx is canceled.
func serveMetrics(ctx context.Context, srv *http.Server) {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.InfoKV(ctx, "Metrics endpoint listening", "address", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorKV(ctx, "Metrics endpoint failed", "error", err)
	}
}

// watchSettings applies log level changes from the settings file.
func watchSettings(ctx context.Context, path string) {
	err := config.Watch(ctx, path, func(cfg *config.Config) {
		applyLogLevel(ctx, cfg.LogLevel)
	})
	if err != nil {
		logger.WarnKV(ctx, "Settings will not be reloaded", "error", err)
	}
}

// applyLogLevel sets the global log level when s names one.
func applyLogLevel(ctx context.Context, s string) {
	if s == "" {
		return
	}

	level, ok := logger.ParseLogLevel(s)
	if !ok {
		return
	}

	if level != logger.Level() {
		logger.SetLevel(level)
		logger.InfoKV(ctx, "Log level changed", "level", level.String())
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
