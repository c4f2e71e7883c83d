package k8s

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/tools/cache"
	watchtools "k8s.io/client-go/tools/watch"
)

// WatchPods lists the pods in namespace, or in all namespaces when it is
// empty, and then follows changes from the list's resource version.
//
// Every listed pod is delivered first as an Added event. Dropped watch
// connections are re-established transparently. The returned watch closes
// when ctx is done, when it is stopped, or when the resource version has
// expired and a fresh list is required.
func (c *Client) WatchPods(ctx context.Context, namespace string) (watch.Interface, error) {
	pods := c.clientset.CoreV1().Pods(namespace)

	list, err := pods.List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	rw, err := watchtools.NewRetryWatcherWithContext(ctx, list.ResourceVersion, &cache.ListWatch{
		WatchFuncWithContext: func(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error) {
			opts.AllowWatchBookmarks = true
			return pods.Watch(ctx, opts)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watch pods from resource version %q: %w", list.ResourceVersion, err)
	}

	out := make(chan watch.Event)
	proxy := watch.NewProxyWatcher(out)

	send := func(ev watch.Event) bool {
		select {
		case out <- ev:
			return true
		case <-proxy.StopChan():
			return false
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(out)
		defer rw.Stop()

		for i := range list.Items {
			if !send(watch.Event{Type: watch.Added, Object: &list.Items[i]}) {
				return
			}
		}

		for {
			select {
			case ev, ok := <-rw.ResultChan():
				if !ok || !send(ev) {
					return
				}
			case <-proxy.StopChan():
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return proxy, nil
}
