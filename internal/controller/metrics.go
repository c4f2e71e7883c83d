package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// Event metrics
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proxysync",
			Subsystem: "controller",
			Name:      "events_total",
			Help:      "Total number of handled pod events by role and result",
		},
		[]string{"role", "result"},
	)

	eventDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "proxysync",
			Subsystem: "controller",
			Name:      "event_duration_seconds",
			Help:      "Duration of pod event handling in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"role"},
	)

	// State metrics
	backendsRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "proxysync",
			Name:      "backends_registered",
			Help:      "Number of backends currently registered",
		},
	)

	proxyOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "proxysync",
			Name:      "proxy_online",
			Help:      "Whether the proxy is online (1) or not (0)",
		},
	)

	// Probe metrics
	probeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proxysync",
			Name:      "probe_total",
			Help:      "Total number of backend probes by result",
		},
		[]string{"result"},
	)

	probeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "proxysync",
			Name:      "probe_duration_seconds",
			Help:      "Duration of backend probes in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	// Balancer metrics
	balancerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proxysync",
			Subsystem: "balancer",
			Name:      "operations_total",
			Help:      "Total number of remote balancer operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	balancerResyncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proxysync",
			Subsystem: "balancer",
			Name:      "resyncs_total",
			Help:      "Total number of full resynchronizations by result",
		},
		[]string{"result"},
	)
)

func init() {
	// Register metrics with controller-runtime's registry
	metrics.Registry.MustRegister(
		eventsTotal,
		eventDuration,
		backendsRegistered,
		proxyOnline,
		probeTotal,
		probeDuration,
		balancerOperationsTotal,
		balancerResyncsTotal,
	)
}

// recordEventMetric records a handled event.
func recordEventMetric(role, result string, duration float64) {
	eventsTotal.WithLabelValues(role, result).Inc()
	eventDuration.WithLabelValues(role).Observe(duration)
}

// recordStateMetric records the registry size and proxy state.
func recordStateMetric(backends int, online bool) {
	backendsRegistered.Set(float64(backends))
	if online {
		proxyOnline.Set(1)
	} else {
		proxyOnline.Set(0)
	}
}

// recordProbeMetric records a finished probe.
func recordProbeMetric(result string, duration float64) {
	probeTotal.WithLabelValues(result).Inc()
	probeDuration.Observe(duration)
}

// recordBalancerOperationMetric records a remote balancer operation.
func recordBalancerOperationMetric(operation, result string) {
	balancerOperationsTotal.WithLabelValues(operation, result).Inc()
}

// recordResyncMetric records a full resynchronization.
func recordResyncMetric(result string) {
	balancerResyncsTotal.WithLabelValues(result).Inc()
}

// Metrics helper methods that check enableMetrics before recording.

func (r *Reconciler) recordEvent(role, result string, duration float64) {
	if r.enableMetrics {
		recordEventMetric(role, result, duration)
	}
}

func (r *Reconciler) recordState() {
	if r.enableMetrics {
		recordStateMetric(r.registry.Len(), r.registry.ProxyOnline())
	}
}

func (r *Reconciler) recordProbe(result string, duration float64) {
	if r.enableMetrics {
		recordProbeMetric(result, duration)
	}
}

func (r *Reconciler) recordBalancerOperation(operation, result string) {
	if r.enableMetrics {
		recordBalancerOperationMetric(operation, result)
	}
}

func (r *Reconciler) recordResync(result string) {
	if r.enableMetrics {
		recordResyncMetric(result)
	}
}
