package controller

import (
	"context"
	"net"
	"slices"
	"strconv"
	"sync"

	"github.com/imamik/proxysync/internal/probe"
)

// MockSyncer models the member lines of a balancer configuration.
// The Func fields inject failures; when they return nil the modelled
// configuration is updated as the real synchronizer would.
type MockSyncer struct {
	mu sync.Mutex

	lines []string

	// Configurable failures
	ExistsFunc       func(ctx context.Context, address string, port int32) error
	AddMemberFunc    func(ctx context.Context, address string, port int32) error
	RemoveMemberFunc func(ctx context.Context, address string, port int32) error
	ReloadFunc       func(ctx context.Context) error

	// Call tracking
	ExistsCalls       []string
	AddMemberCalls    []string
	RemoveMemberCalls []string
	ReloadCalls       int
}

// newMockSyncer creates a syncer whose configuration already holds members.
func newMockSyncer(members ...string) *MockSyncer {
	return &MockSyncer{lines: slices.Clone(members)}
}

func memberKey(address string, port int32) string {
	return net.JoinHostPort(address, strconv.Itoa(int(port)))
}

func (m *MockSyncer) Exists(ctx context.Context, address string, port int32) (bool, error) {
	m.mu.Lock()
	m.ExistsCalls = append(m.ExistsCalls, memberKey(address, port))
	m.mu.Unlock()

	if m.ExistsFunc != nil {
		if err := m.ExistsFunc(ctx, address, port); err != nil {
			return false, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.lines, memberKey(address, port)), nil
}

func (m *MockSyncer) AddMember(ctx context.Context, address string, port int32) error {
	m.mu.Lock()
	m.AddMemberCalls = append(m.AddMemberCalls, memberKey(address, port))
	m.mu.Unlock()

	if m.AddMemberFunc != nil {
		if err := m.AddMemberFunc(ctx, address, port); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Members are inserted right after the balancer anchor.
	m.lines = append([]string{memberKey(address, port)}, m.lines...)
	return nil
}

func (m *MockSyncer) RemoveMember(ctx context.Context, address string, port int32) error {
	m.mu.Lock()
	m.RemoveMemberCalls = append(m.RemoveMemberCalls, memberKey(address, port))
	m.mu.Unlock()

	if m.RemoveMemberFunc != nil {
		if err := m.RemoveMemberFunc(ctx, address, port); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := memberKey(address, port)
	m.lines = slices.DeleteFunc(m.lines, func(l string) bool { return l == key })
	return nil
}

func (m *MockSyncer) Reload(ctx context.Context) error {
	m.mu.Lock()
	m.ReloadCalls++
	m.mu.Unlock()

	if m.ReloadFunc != nil {
		return m.ReloadFunc(ctx)
	}
	return nil
}

// Members returns the modelled member lines in configuration order.
func (m *MockSyncer) Members() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.lines)
}

// Mutations returns the number of add and remove calls issued.
func (m *MockSyncer) Mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.AddMemberCalls) + len(m.RemoveMemberCalls)
}

// ResetCalls clears call tracking and keeps the modelled configuration.
func (m *MockSyncer) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExistsCalls = nil
	m.AddMemberCalls = nil
	m.RemoveMemberCalls = nil
	m.ReloadCalls = 0
}

// MockProber is a mock implementation of Prober for testing.
type MockProber struct {
	mu sync.Mutex

	ProbeFunc func(ctx context.Context, address string, port int32) probe.Result

	Calls []string
}

func (m *MockProber) Probe(ctx context.Context, address string, port int32) probe.Result {
	m.mu.Lock()
	m.Calls = append(m.Calls, memberKey(address, port))
	m.mu.Unlock()

	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx, address, port)
	}
	return probe.Result{Healthy: true, Attempts: 1, LastStatus: 200}
}

// CallCount returns the number of probes issued.
func (m *MockProber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
