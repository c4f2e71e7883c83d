package controller

import (
	"context"
	"sync"
)

// probeTracker lets the source abort a probe the reconciler is running.
//
// A cancelled key stays marked until the reconciler has processed the
// observation that caused it, so a probe started in between is cancelled
// as soon as it begins.
type probeTracker struct {
	mu        sync.Mutex
	inflight  map[string]context.CancelFunc
	cancelled map[string]struct{}
}

func newProbeTracker() *probeTracker {
	return &probeTracker{
		inflight:  make(map[string]context.CancelFunc),
		cancelled: make(map[string]struct{}),
	}
}

// start returns the context a probe for key must run under. The returned
// function releases it and must be called once the probe returns.
func (t *probeTracker) start(ctx context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	if _, ok := t.cancelled[key]; ok {
		cancel()
	} else {
		t.inflight[key] = cancel
	}
	t.mu.Unlock()

	return ctx, func() {
		t.mu.Lock()
		delete(t.inflight, key)
		t.mu.Unlock()
		cancel()
	}
}

// cancel aborts the probe running for key and marks the key.
func (t *probeTracker) cancel(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cancel, ok := t.inflight[key]; ok {
		cancel()
	}
	t.cancelled[key] = struct{}{}
}

// clear removes the mark for key.
func (t *probeTracker) clear(key string) {
	t.mu.Lock()
	delete(t.cancelled, key)
	t.mu.Unlock()
}

// marked reports whether key is marked.
func (t *probeTracker) marked(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.cancelled[key]
	return ok
}
