package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/proxysync/internal/observation"
)

// ErrEventStreamClosed is returned when the pod watch ends on its own.
var ErrEventStreamClosed = errors.New("pod event stream closed")

// Source converts a pod watch into observations.
type Source struct {
	watcher   PodWatcher
	namespace string
	canceller ProbeCanceller

	connected atomic.Bool
}

// NewSource creates a source watching pods in namespace, or in all
// namespaces when it is empty. The canceller, if non-nil, is told about
// every pod observed terminating before the observation is delivered.
func NewSource(watcher PodWatcher, namespace string, canceller ProbeCanceller) *Source {
	return &Source{
		watcher:   watcher,
		namespace: namespace,
		canceller: canceller,
	}
}

// Run delivers observations to out in watch order until ctx is done.
// Delivery blocks; no observation is dropped. Run returns
// ErrEventStreamClosed when the watch ends before ctx is done.
func (s *Source) Run(ctx context.Context, out chan<- observation.Observation) error {
	logger := log.FromContext(ctx).WithValues("watchNamespace", s.namespace)

	w, err := s.watcher.WatchPods(ctx, s.namespace)
	if err != nil {
		return fmt.Errorf("failed to watch pods: %w", err)
	}
	defer w.Stop()

	s.connected.Store(true)
	defer s.connected.Store(false)
	logger.Info("watching pods")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.ResultChan():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrEventStreamClosed
			}

			obs, ok := s.convert(ctx, ev)
			if !ok {
				continue
			}
			if obs.Terminating() && s.canceller != nil {
				s.canceller.CancelProbe(obs.Key())
			}

			select {
			case out <- obs:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// convert turns a watch event into an observation. Events without a pod
// snapshot are logged and skipped.
func (s *Source) convert(ctx context.Context, ev watch.Event) (observation.Observation, bool) {
	logger := log.FromContext(ctx)

	if ev.Type == watch.Bookmark {
		return observation.Observation{}, false
	}
	if ev.Type == watch.Error {
		logger.Error(apierrors.FromObject(ev.Object), "pod watch reported an error, skipping event")
		return observation.Observation{}, false
	}

	kind, ok := observation.KindFromWatch(ev.Type)
	if !ok {
		logger.Info("unknown watch event type, skipping", "type", ev.Type)
		return observation.Observation{}, false
	}

	pod, ok := ev.Object.(*corev1.Pod)
	if !ok {
		logger.Info("watch event does not carry a pod, skipping",
			"type", ev.Type,
			"object", fmt.Sprintf("%T", ev.Object),
		)
		return observation.Observation{}, false
	}

	return observation.FromPod(kind, pod), true
}

// Connected reports whether the pod watch is established.
func (s *Source) Connected() bool {
	return s.connected.Load()
}

// ReadyCheck is a healthz.Checker reporting whether the pod watch is established.
func (s *Source) ReadyCheck(_ *http.Request) error {
	if !s.Connected() {
		return errors.New("pod event stream not connected")
	}
	return nil
}
