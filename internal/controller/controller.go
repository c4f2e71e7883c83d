package controller

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/proxysync/internal/observation"
)

const defaultBufferSize = 256

// Controller runs a Source and a Reconciler connected by an ordered
// buffered channel. It implements manager.Runnable.
type Controller struct {
	source     *Source
	reconciler *Reconciler
	bufferSize int
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithBufferSize sets how many observations may queue between the watch
// and the reconciler. The watch blocks once the buffer is full.
func WithBufferSize(n int) ControllerOption {
	return func(c *Controller) {
		if n >= 0 {
			c.bufferSize = n
		}
	}
}

// NewController creates a controller feeding pods watched in namespace to
// the reconciler. Terminating pods cancel the reconciler's probes.
func NewController(watcher PodWatcher, namespace string, r *Reconciler, opts ...ControllerOption) *Controller {
	c := &Controller{
		source:     NewSource(watcher, namespace, r),
		reconciler: r,
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start runs until ctx is done or the pod watch fails.
func (c *Controller) Start(ctx context.Context) error {
	ctx = log.IntoContext(ctx, log.FromContext(ctx).WithName("proxysync"))
	events := make(chan observation.Observation, c.bufferSize)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		return c.source.Run(ctx, events)
	})
	g.Go(func() error {
		return c.reconciler.Run(ctx, events)
	})
	return g.Wait()
}

// NeedLeaderElection reports that the controller runs without leader election.
func (c *Controller) NeedLeaderElection() bool {
	return false
}

// ReadyCheck reports whether the pod watch is established.
func (c *Controller) ReadyCheck(req *http.Request) error {
	return c.source.ReadyCheck(req)
}
