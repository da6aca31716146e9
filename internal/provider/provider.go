package provider

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
)

// Provider aggregates alerts from registered sources and dispatches them to
// listeners and responders.
type Provider struct {
	// registry holds the source and manager tables.
	registry *registry
	// observers holds listeners and responders.
	observers observers
	// pending holds alerts waiting for the next responder drain.
	pending *pendingQueue
	// lastSeen is the watermark of the push pipeline. Concurrent batches
	// overwrite it without coordination; the last one to finish wins.
	lastSeen atomic.Pointer[time.Time]

	// listenerExec runs pipeline and listener batches.
	listenerExec Executor
	// responderExec runs responder drains one at a time.
	responderExec Executor
	// clock supplies the initial watermark.
	clock clock.Clock
	// onError receives failures from asynchronous dispatch.
	onError func(error)
}

// Option configures a Provider.
type Option func(*Provider)

// WithListenerExecutor replaces the default unbounded listener pool.
func WithListenerExecutor(exec Executor) Option {
	return func(p *Provider) {
		if exec != nil {
			p.listenerExec = exec
		}
	}
}

// WithResponderExecutor replaces the default single-worker responder executor.
// Responders are only guaranteed not to run concurrently when the replacement
// is itself serial.
func WithResponderExecutor(exec Executor) Option {
	return func(p *Provider) {
		if exec != nil {
			p.responderExec = exec
		}
	}
}

// WithClock sets the clock used for the initial watermark.
func WithClock(c clock.Clock) Option {
	return func(p *Provider) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithErrorHandler registers fn to receive combined listener and responder
// failures of each asynchronous batch. fn runs on executor goroutines.
func WithErrorHandler(fn func(error)) Option {
	return func(p *Provider) {
		p.onError = fn
	}
}

// New creates a provider. The watermark starts at the clock's current time,
// so alerts that changed before construction are not pushed to listeners.
func New(opts ...Option) *Provider {
	p := &Provider{
		registry: newRegistry(),
		pending:  newPendingQueue(),
		clock:    clock.New(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.listenerExec == nil {
		p.listenerExec = NewPool()
	}

	if p.responderExec == nil {
		p.responderExec = NewSerial()
	}

	now := p.clock.Now()
	p.lastSeen.Store(&now)

	return p
}

// AddListener registers l. Adding the same listener twice has no effect.
func (p *Provider) AddListener(l Listener) {
	p.observers.addListener(l)
}

// AddResponder registers r. Adding the same responder twice makes it run
// twice per alert.
func (p *Provider) AddResponder(r Responder) {
	p.observers.addResponder(r)
}

// AddSource registers src and returns its source key. Registering a source
// whose key is already taken replaces the previous entry.
func (p *Provider) AddSource(src Source) (string, error) {
	key, err := sourceKeyOf(src)
	if err != nil {
		return "", err
	}

	p.registry.putSource(key, src)

	return key, nil
}

// AddManager registers mgr as a source and a manager, and subscribes the
// provider to its pushes.
func (p *Provider) AddManager(mgr Manager) (string, error) {
	key, err := sourceKeyOf(mgr)
	if err != nil {
		return "", err
	}

	p.registry.putManager(key, mgr)
	mgr.AddReceiver(p)

	return key, nil
}

// Resolve turns identity text or a CompositeID into a CompositeID.
func (p *Provider) Resolve(value any) (CompositeID, error) {
	switch v := value.(type) {
	case string:
		return Decode(v, p.registry.table())
	case CompositeID:
		return v, nil
	case *CompositeID:
		if v == nil {
			return CompositeID{}, fmt.Errorf("%w: nil identity", alert.ErrInvalidIdentity)
		}

		return *v, nil
	default:
		return CompositeID{}, fmt.Errorf("%w: unsupported identity type %T", alert.ErrInvalidIdentity, value)
	}
}

// LastSeen returns the current push watermark.
func (p *Provider) LastSeen() time.Time {
	return *p.lastSeen.Load()
}

// PendingResponses returns how many alerts wait for the next responder drain.
func (p *Provider) PendingResponses() int {
	return p.pending.len()
}

// Close waits for scheduled listener and responder work to finish and stops
// the responder worker.
func (p *Provider) Close() {
	p.listenerExec.Close()
	p.responderExec.Close()
	// Responder drains may have scheduled more listener batches.
	p.listenerExec.Close()
}

// report logs an asynchronous failure and hands it to the error handler.
func (p *Provider) report(ctx context.Context, message string, err error) {
	if err == nil {
		return
	}

	logger.ErrorKV(ctx, message, "error", err)

	if p.onError != nil {
		p.onError(err)
	}
}

func sourceKeyOf(src Source) (string, error) {
	if src == nil {
		return "", fmt.Errorf("%w: nil source", alert.ErrInvalidIdentity)
	}

	key := SourceKey(src)
	if _, keyed := src.(Keyed); key == "" && !keyed {
		return "", fmt.Errorf("%w: source %T must be a pointer or implement Keyed", alert.ErrInvalidIdentity, src)
	}

	if !validSourceKey(key) {
		return "", fmt.Errorf("%w: source key %q must be non-empty and contain no %q",
			alert.ErrInvalidIdentity, key, separator)
	}

	return key, nil
}
