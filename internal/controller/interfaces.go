package controller

import (
	"context"

	"k8s.io/apimachinery/pkg/watch"

	"github.com/imamik/proxysync/internal/probe"
)

// Prober checks that a backend answers before it is registered.
type Prober interface {
	Probe(ctx context.Context, address string, port int32) probe.Result
}

// Syncer edits the member list of the proxy's balancer configuration.
// It is implemented by balancer.Synchronizer.
type Syncer interface {
	// Exists reports whether the member line is present.
	Exists(ctx context.Context, address string, port int32) (bool, error)

	// AddMember inserts the member line without checking for duplicates.
	AddMember(ctx context.Context, address string, port int32) error

	// RemoveMember deletes the member line. Removing an absent line is a no-op.
	RemoveMember(ctx context.Context, address string, port int32) error

	// Reload gracefully restarts the proxy so it picks up the configuration.
	Reload(ctx context.Context) error
}

// PodWatcher opens a watch over pods. It is implemented by k8s.Client.
type PodWatcher interface {
	WatchPods(ctx context.Context, namespace string) (watch.Interface, error)
}

// ProbeCanceller aborts the probe running for a pod.
type ProbeCanceller interface {
	CancelProbe(key string)
}
