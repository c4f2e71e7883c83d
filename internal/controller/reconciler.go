package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/proxysync/internal/balancer"
	"github.com/imamik/proxysync/internal/classifier"
	"github.com/imamik/proxysync/internal/observation"
	"github.com/imamik/proxysync/internal/registry"
	"github.com/imamik/proxysync/internal/util/retry"
)

// Event roles.
const (
	roleProxy   = "proxy"
	roleBackend = "backend"
)

// Event results.
const (
	resultRegistered   = "registered"
	resultDeregistered = "deregistered"
	resultOnline       = "online"
	resultOffline      = "offline"
	resultUnhealthy    = "unhealthy"
	resultCancelled    = "cancelled"
	resultSkipped      = "skipped"
	resultNoop         = "noop"
	resultError        = "error"
)

// Balancer operations.
const (
	opExists = "exists"
	opAdd    = "add"
	opRemove = "remove"
	opReload = "reload"
)

// Reconciler applies pod observations to the registry and the proxy
// configuration. Observations are handled one at a time; Handle and Run
// must not be called concurrently.
type Reconciler struct {
	classifier *classifier.Classifier
	prober     Prober
	syncer     Syncer
	registry   *registry.Registry
	tracker    *probeTracker

	retryOpts []retry.Option

	// enableMetrics controls whether Prometheus metrics are recorded.
	enableMetrics bool

	// pendingReload is set when the configuration changed but the reload
	// that should follow did not succeed.
	pendingReload bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithMetrics enables or disables Prometheus metrics recording.
func WithMetrics(enable bool) Option {
	return func(r *Reconciler) {
		r.enableMetrics = enable
	}
}

// WithRetryOptions configures the backoff used for remote operations.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(r *Reconciler) {
		r.retryOpts = append(r.retryOpts, opts...)
	}
}

// WithRegistry sets the registry the reconciler works on.
func WithRegistry(reg *registry.Registry) Option {
	return func(r *Reconciler) {
		r.registry = reg
	}
}

// NewReconciler creates a reconciler with an empty registry and the proxy offline.
func NewReconciler(c *classifier.Classifier, p Prober, s Syncer, opts ...Option) (*Reconciler, error) {
	if c == nil {
		return nil, errors.New("classifier cannot be nil")
	}
	if p == nil {
		return nil, errors.New("prober cannot be nil")
	}
	if s == nil {
		return nil, errors.New("syncer cannot be nil")
	}

	r := &Reconciler{
		classifier:    c,
		prober:        p,
		syncer:        s,
		registry:      registry.New(),
		tracker:       newProbeTracker(),
		enableMetrics: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Registry returns the registry the reconciler works on.
func (r *Reconciler) Registry() *registry.Registry {
	return r.registry
}

// CancelProbe aborts the probe running for the pod identified by key, or
// makes the next probe for it fail immediately. It is safe to call from
// any goroutine.
func (r *Reconciler) CancelProbe(key string) {
	r.tracker.cancel(key)
}

// Run handles observations until events is closed or ctx is done.
// Failures are logged and do not stop the loop.
func (r *Reconciler) Run(ctx context.Context, events <-chan observation.Observation) error {
	logger := log.FromContext(ctx)
	logger.Info("reconciler started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("reconciler stopped")
			return nil
		case obs, ok := <-events:
			if !ok {
				logger.Info("event stream drained, reconciler stopped")
				return nil
			}
			if err := r.Handle(ctx, obs); err != nil {
				logger.Error(err, "failed to handle pod event",
					"namespace", obs.Namespace,
					"pod", obs.Name,
					"kind", obs.Kind,
				)
			}
		}
	}
}

// Handle applies one observation. A pod that is both the proxy and a
// backend is handled in both roles, the proxy role first.
func (r *Reconciler) Handle(ctx context.Context, obs observation.Observation) error {
	if obs.Terminating() {
		defer r.tracker.clear(obs.Key())
	}

	class := r.classifier.Classify(obs)
	if !class.Relevant() {
		return nil
	}

	logger := log.FromContext(ctx).WithValues(
		"namespace", obs.Namespace,
		"pod", obs.Name,
		"kind", obs.Kind,
	)
	ctx = log.IntoContext(ctx, logger)

	var errs []error
	if class.Proxy {
		errs = append(errs, r.observe(ctx, roleProxy, obs, r.handleProxy))
	}
	if class.Backend {
		errs = append(errs, r.observe(ctx, roleBackend, obs, r.handleBackend))
	}
	return errors.Join(errs...)
}

// observe runs one role handler and records its outcome.
func (r *Reconciler) observe(ctx context.Context, role string, obs observation.Observation,
	handler func(context.Context, observation.Observation) (string, error)) error {
	start := time.Now()
	result, err := handler(ctx, obs)
	if err != nil {
		result = resultError
		err = fmt.Errorf("%s %s/%s: %w", role, obs.Namespace, obs.Name, err)
	}
	r.recordEvent(role, result, time.Since(start).Seconds())
	r.recordState()
	return err
}

// handleProxy tracks the proxy state and resynchronizes the configuration
// when the proxy becomes available.
func (r *Reconciler) handleProxy(ctx context.Context, obs observation.Observation) (string, error) {
	logger := log.FromContext(ctx)

	if obs.Terminating() {
		return r.setProxyOffline(ctx, "proxy pod terminating"), nil
	}
	if gap := obs.Missing(); gap != "" {
		logger.Info("proxy pod not initialized, skipping", "missing", gap)
		return resultSkipped, nil
	}
	status := r.classifier.ProxyStatus(obs)
	if status == nil {
		logger.Info("proxy pod reports no status for the proxy container",
			"container", r.classifier.ProxyContainerName())
		return r.setProxyOffline(ctx, "proxy container missing"), nil
	}
	if !observation.IsActive(obs, status) {
		return r.setProxyOffline(ctx, "proxy not ready"), nil
	}

	if r.registry.ProxyOnline() {
		logger.V(1).Info("proxy modified")
		if r.pendingReload {
			if err := r.reload(ctx); err != nil {
				return "", err
			}
		}
		return resultNoop, nil
	}

	if err := r.resync(ctx); err != nil {
		r.recordResync(resultError)
		return "", fmt.Errorf("resync failed, proxy stays offline: %w", err)
	}
	r.recordResync("success")
	return resultOnline, nil
}

func (r *Reconciler) setProxyOffline(ctx context.Context, reason string) string {
	if r.registry.SetProxyOnline(false) {
		log.FromContext(ctx).Info("proxy offline", "reason", reason)
		return resultOffline
	}
	log.FromContext(ctx).V(1).Info("proxy still offline", "reason", reason)
	return resultNoop
}

// resync adds every registered backend missing from the proxy
// configuration, reloads once if anything changed and marks the proxy
// online. The proxy stays offline when any step fails.
func (r *Reconciler) resync(ctx context.Context) error {
	logger := log.FromContext(ctx)
	entries := r.registry.Entries()
	logger.Info("proxy available, resynchronizing backends", "backends", len(entries))

	added := 0
	for _, e := range entries {
		present, err := r.exists(ctx, e.Address, e.Port)
		if err != nil {
			return err
		}
		if present {
			logger.V(1).Info("backend already configured", "address", e.Address, "port", e.Port)
			continue
		}
		if err := r.remote(ctx, opAdd, func(ctx context.Context) error {
			return r.syncer.AddMember(ctx, e.Address, e.Port)
		}); err != nil {
			return fmt.Errorf("failed to add backend %s: %w", e.Address, err)
		}
		r.pendingReload = true
		added++
		logger.Info("backend restored", "address", e.Address, "port", e.Port,
			"backendNamespace", e.Namespace, "backendPod", e.PodName)
	}

	if r.pendingReload {
		if err := r.reload(ctx); err != nil {
			return err
		}
	}

	r.registry.SetProxyOnline(true)
	logger.Info("proxy online", "backends", len(entries), "added", added)
	return nil
}

// handleBackend walks the backend state machine for one observation.
func (r *Reconciler) handleBackend(ctx context.Context, obs observation.Observation) (string, error) {
	logger := log.FromContext(ctx).WithValues("address", obs.Address)
	ctx = log.IntoContext(ctx, logger)

	if gap := obs.Missing(); gap != "" {
		logger.Info("backend pod not initialized, skipping", "missing", gap)
		return resultSkipped, nil
	}

	container, status, _ := r.classifier.BackendContainer(obs)
	active := observation.IsActive(obs, status)
	entry, registered := r.registry.Get(obs.Address)

	switch {
	case registered && active:
		logger.V(1).Info("backend already registered", "port", entry.Port)
		return resultNoop, nil
	case registered:
		if err := r.deregister(ctx, entry); err != nil {
			return "", err
		}
		return resultDeregistered, nil
	case obs.Terminating():
		logger.V(1).Info("backend pod terminating, ignoring")
		return resultNoop, nil
	case !active:
		logger.Info("backend pod not ready")
		return resultSkipped, nil
	}

	if len(container.Ports) == 0 {
		logger.Info("backend container declares no port, skipping", "container", container.Name)
		return resultSkipped, nil
	}
	port := container.Ports[0]

	probeCtx, done := r.tracker.start(ctx, obs.Key())
	start := time.Now()
	res := r.prober.Probe(probeCtx, obs.Address, port)
	done()

	switch {
	case res.Cancelled:
		r.recordProbe(resultCancelled, time.Since(start).Seconds())
		logger.Info("backend probe cancelled, not registering", "port", port, "result", res.String())
		return resultCancelled, nil
	case !res.Healthy:
		r.recordProbe(resultUnhealthy, time.Since(start).Seconds())
		logger.Info("backend did not respond, not registering", "port", port, "result", res.String())
		return resultUnhealthy, nil
	}
	r.recordProbe("healthy", time.Since(start).Seconds())

	if err := r.register(ctx, registry.Entry{
		Address:   obs.Address,
		Port:      port,
		Namespace: obs.Namespace,
		PodName:   obs.Name,
	}); err != nil {
		return "", err
	}
	return resultRegistered, nil
}

// register adds the backend to the proxy configuration when the proxy is
// online, then commits the entry.
func (r *Reconciler) register(ctx context.Context, e registry.Entry) error {
	logger := log.FromContext(ctx)

	var reloadErr error
	if r.registry.ProxyOnline() {
		present, err := r.exists(ctx, e.Address, e.Port)
		if err != nil {
			return err
		}
		if present {
			logger.V(1).Info("backend already configured, skipping add", "port", e.Port)
		} else {
			if err := r.remote(ctx, opAdd, func(ctx context.Context) error {
				return r.syncer.AddMember(ctx, e.Address, e.Port)
			}); err != nil {
				return fmt.Errorf("failed to add backend: %w", err)
			}
			r.pendingReload = true
		}
		if r.pendingReload {
			reloadErr = r.reload(ctx)
		}
	} else {
		logger.Info("proxy offline, deferring configuration until resync")
	}

	// The member line is in place even when the reload failed.
	r.registry.Put(e)
	logger.Info("backend registered", "port", e.Port)
	return reloadErr
}

// deregister removes the backend from the proxy configuration when the
// proxy is online, then drops the entry.
func (r *Reconciler) deregister(ctx context.Context, e registry.Entry) error {
	logger := log.FromContext(ctx)

	var reloadErr error
	if r.registry.ProxyOnline() {
		if err := r.remote(ctx, opRemove, func(ctx context.Context) error {
			return r.syncer.RemoveMember(ctx, e.Address, e.Port)
		}); err != nil {
			return fmt.Errorf("failed to remove backend: %w", err)
		}
		r.pendingReload = true
		reloadErr = r.reload(ctx)
	}

	// The member line is gone even when the reload failed.
	r.registry.Delete(e.Address)
	logger.Info("backend deregistered", "port", e.Port)
	return reloadErr
}

func (r *Reconciler) exists(ctx context.Context, address string, port int32) (bool, error) {
	var present bool
	err := r.remote(ctx, opExists, func(ctx context.Context) error {
		var err error
		present, err = r.syncer.Exists(ctx, address, port)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to look up backend %s: %w", address, err)
	}
	return present, nil
}

// reload reloads the proxy and keeps the pending flag until one succeeds.
func (r *Reconciler) reload(ctx context.Context) error {
	if err := r.remote(ctx, opReload, r.syncer.Reload); err != nil {
		r.pendingReload = true
		return fmt.Errorf("failed to reload proxy: %w", err)
	}
	r.pendingReload = false
	log.FromContext(ctx).Info("proxy reloaded")
	return nil
}

// remote runs one balancer operation with retries. Invalid members are
// not retried.
func (r *Reconciler) remote(ctx context.Context, operation string, fn func(context.Context) error) error {
	logger := log.FromContext(ctx)

	opts := make([]retry.Option, 0, len(r.retryOpts)+1)
	opts = append(opts, retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		logger.Info("balancer operation failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"delay", delay,
			"error", err.Error(),
		)
	}))
	opts = append(opts, r.retryOpts...)

	err := retry.WithExponentialBackoff(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, balancer.ErrInvalidMember) {
			return retry.Fatal(err)
		}
		return err
	}, opts...)

	if err != nil {
		r.recordBalancerOperation(operation, resultError)
		return err
	}
	r.recordBalancerOperation(operation, "success")
	return nil
}
