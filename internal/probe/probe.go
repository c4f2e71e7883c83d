// Package probe checks that a backend answers HTTP before it is registered.
//
// A probe issues up to a fixed number of GET requests started on a fixed
// interval schedule, and succeeds on the first 200 response. Connection failures and other
// status codes consume the same attempt budget. Cancelling the context
// aborts the probe immediately.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	defaultAttempts = 10
	defaultInterval = 1 * time.Second
	defaultTimeout  = 1 * time.Second

	// maxDrain bounds how much of a response body is read before closing.
	maxDrain = 64 << 10
)

// Config holds probe configuration.
type Config struct {
	// Attempts is the number of requests issued before giving up.
	// If zero, defaultAttempts is used.
	Attempts int

	// Interval is the delay between the starts of two attempts.
	// If zero, defaultInterval is used.
	Interval time.Duration

	// Timeout bounds a single request. It is capped at Interval.
	// If zero, defaultTimeout is used.
	Timeout time.Duration

	// Client is the HTTP client used for requests.
	// If nil, a client without redirects following is created.
	Client *http.Client
}

// Result describes the outcome of a probe.
type Result struct {
	// Healthy is true when an attempt got a 200 response.
	Healthy bool
	// Attempts is the number of requests issued.
	Attempts int
	// LastStatus is the status code of the last response, 0 if none.
	LastStatus int
	// LastErr is the transport error of the last attempt, if any.
	LastErr error
	// Cancelled is true when the context ended the probe early.
	Cancelled bool
}

// Prober probes backend HTTP endpoints.
type Prober struct {
	attempts int
	interval time.Duration
	timeout  time.Duration
	client   *http.Client
}

// New creates a prober, applying defaults for unset fields.
func New(cfg Config) *Prober {
	p := &Prober{
		attempts: cfg.Attempts,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		client:   cfg.Client,
	}
	if p.attempts <= 0 {
		p.attempts = defaultAttempts
	}
	if p.interval <= 0 {
		p.interval = defaultInterval
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	p.timeout = min(p.timeout, p.interval)
	if p.client == nil {
		p.client = &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return p
}

// URL returns the endpoint probed for a backend.
func URL(address string, port int32) string {
	return "http://" + net.JoinHostPort(address, strconv.Itoa(int(port))) + "/"
}

// errAttemptsExhausted ends the poll once the attempt budget is spent.
var errAttemptsExhausted = errors.New("probe attempts exhausted")

// Probe checks the backend at address:port. Attempts start every interval
// regardless of how long the previous one took, so the probe returns
// after roughly attempts*interval at most.
func (p *Prober) Probe(ctx context.Context, address string, port int32) Result {
	url := URL(address, port)
	logger := log.FromContext(ctx).WithValues("url", url)

	var res Result
	err := wait.PollUntilContextCancel(ctx, p.interval, true, func(ctx context.Context) (bool, error) {
		res.Attempts++
		res.LastStatus, res.LastErr = p.get(ctx, url)
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if res.LastErr == nil && res.LastStatus == http.StatusOK {
			return true, nil
		}

		logger.V(1).Info("probe attempt failed",
			"attempt", res.Attempts,
			"maxAttempts", p.attempts,
			"status", res.LastStatus,
			"error", errString(res.LastErr),
		)

		if res.Attempts >= p.attempts {
			return false, errAttemptsExhausted
		}
		return false, nil
	})

	switch {
	case err == nil:
		res.Healthy = true
	case errors.Is(err, errAttemptsExhausted):
	default:
		res.Cancelled = true
	}
	return res
}

// get issues one request and returns the response status.
func (p *Prober) get(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	return resp.StatusCode, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// String makes Result satisfy the fmt.Stringer interface.
func (r Result) String() string {
	switch {
	case r.Healthy:
		return fmt.Sprintf("healthy after %d attempt(s)", r.Attempts)
	case r.Cancelled:
		return fmt.Sprintf("cancelled after %d attempt(s)", r.Attempts)
	case r.LastErr != nil:
		return fmt.Sprintf("unreachable after %d attempt(s): %v", r.Attempts, r.LastErr)
	default:
		return fmt.Sprintf("status %d after %d attempt(s)", r.LastStatus, r.Attempts)
	}
}
