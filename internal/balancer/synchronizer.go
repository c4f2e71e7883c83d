package balancer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	utilexec "k8s.io/client-go/util/exec"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const defaultTimeout = 30 * time.Second

// grepNoMatch is the grep exit status for "no line selected".
const grepNoMatch = 1

// ErrTimeout is returned when a remote command does not finish in time.
var ErrTimeout = errors.New("remote command timed out")

// Executor runs a command inside the proxy container.
// A non-zero exit status must surface as a client-go util/exec.ExitError.
type Executor interface {
	Exec(ctx context.Context, command []string, stdout, stderr io.Writer) error
}

// Config holds Synchronizer configuration.
type Config struct {
	// ConfigPath is the balancer configuration file inside the proxy container.
	ConfigPath string
	// Binary is the httpd control binary used for reloads.
	Binary string
	// Timeout bounds every remote command.
	// If zero, defaultTimeout is used.
	Timeout time.Duration
}

// Synchronizer mutates the balancer member list through an Executor.
type Synchronizer struct {
	exec     Executor
	commands Commands
	timeout  time.Duration
}

// NewSynchronizer creates a Synchronizer.
func NewSynchronizer(exec Executor, cfg Config) (*Synchronizer, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if cfg.ConfigPath == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	if cfg.Binary == "" {
		return nil, fmt.Errorf("binary cannot be empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Synchronizer{
		exec:     exec,
		commands: Commands{ConfigPath: cfg.ConfigPath, Binary: cfg.Binary},
		timeout:  timeout,
	}, nil
}

// Exists reports whether the member line for address:port is present.
func (s *Synchronizer) Exists(ctx context.Context, address string, port int32) (bool, error) {
	m, err := NewMember(address, port)
	if err != nil {
		return false, err
	}

	err = s.run(ctx, "exists", s.commands.Exists(m))
	if err == nil {
		return true, nil
	}
	if code, ok := exitStatus(err); ok && code == grepNoMatch {
		return false, nil
	}
	return false, fmt.Errorf("failed to check member %s: %w", m, err)
}

// AddMember inserts the member line after the balancer anchor.
// It does not check for an existing line.
func (s *Synchronizer) AddMember(ctx context.Context, address string, port int32) error {
	m, err := NewMember(address, port)
	if err != nil {
		return err
	}
	if err := s.run(ctx, "add", s.commands.Add(m)); err != nil {
		return fmt.Errorf("failed to add member %s: %w", m, err)
	}
	return nil
}

// RemoveMember deletes the member line. Removing an absent member is a no-op.
func (s *Synchronizer) RemoveMember(ctx context.Context, address string, port int32) error {
	m, err := NewMember(address, port)
	if err != nil {
		return err
	}
	if err := s.run(ctx, "remove", s.commands.Remove(m)); err != nil {
		return fmt.Errorf("failed to remove member %s: %w", m, err)
	}
	return nil
}

// Reload gracefully restarts httpd so it re-reads its configuration.
func (s *Synchronizer) Reload(ctx context.Context) error {
	if err := s.run(ctx, "reload", s.commands.Reload()); err != nil {
		return fmt.Errorf("failed to reload proxy: %w", err)
	}
	return nil
}

// run executes a command under the configured timeout.
func (s *Synchronizer) run(ctx context.Context, op string, command []string) error {
	logger := log.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	logger.V(1).Info("running remote command", "operation", op, "command", command)

	err := s.exec.Exec(ctx, command, &stdout, &stderr)
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, op, s.timeout)
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}

// exitStatus extracts the exit status of a remote command.
func exitStatus(err error) (int, bool) {
	var exitErr utilexec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), true
	}
	return 0, false
}
