// Package handlers implements the logic behind the proxysync commands.
package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/imamik/proxysync/internal/balancer"
	"github.com/imamik/proxysync/internal/classifier"
	"github.com/imamik/proxysync/internal/config"
	"github.com/imamik/proxysync/internal/controller"
	"github.com/imamik/proxysync/internal/k8s"
	"github.com/imamik/proxysync/internal/probe"
	"github.com/imamik/proxysync/internal/util/retry"
)

// Default listen addresses.
const (
	DefaultMetricsAddr = ":8080"
	DefaultProbeAddr   = ":8081"
)

// Function variables for dependency injection in tests.
var (
	// loadConfigFile loads config from file.
	loadConfigFile = config.LoadFile

	// getRESTConfig resolves the cluster connection from --kubeconfig,
	// KUBECONFIG or the in-cluster service account.
	getRESTConfig = ctrl.GetConfig

	// newManager creates the controller-runtime manager.
	newManager = func(cfg *rest.Config, opts manager.Options) (manager.Manager, error) {
		return ctrl.NewManager(cfg, opts)
	}
)

// RunOptions holds the flags of the run command.
type RunOptions struct {
	ConfigPath  string
	MetricsAddr string
	ProbeAddr   string
}

// SetupLogger installs the controller-runtime logger. Development mode is
// used when DEBUG=true or stderr is a terminal.
func SetupLogger(opts zap.Options) {
	if os.Getenv("DEBUG") == "true" || isatty.IsTerminal(os.Stderr.Fd()) {
		opts.Development = true
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
}

// Run starts the controller and blocks until ctx is done or the pod watch
// ends.
//
// Bootstrap failures such as an invalid configuration or an unreachable
// API server are returned before anything is started.
func Run(ctx context.Context, opts RunOptions) error {
	setupLog := ctrl.Log.WithName("setup")

	cfg, err := loadConfigFile(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	restCfg, err := getRESTConfig()
	if err != nil {
		return fmt.Errorf("failed to get kubeconfig: %w", err)
	}

	client, err := k8s.NewClientFromConfig(restCfg)
	if err != nil {
		return err
	}
	serverVersion, err := client.Ping()
	if err != nil {
		return err
	}
	setupLog.Info("connected to cluster", "version", serverVersion)

	c, err := buildController(cfg, client)
	if err != nil {
		return err
	}

	mgr, err := newManager(restCfg, manager.Options{
		Metrics: metricsserver.Options{
			BindAddress: opts.MetricsAddr,
		},
		HealthProbeBindAddress: opts.ProbeAddr,
		LeaderElection:         false,
	})
	if err != nil {
		return fmt.Errorf("unable to create manager: %w", err)
	}

	if err := mgr.Add(c); err != nil {
		return fmt.Errorf("unable to add controller: %w", err)
	}
	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", c.ReadyCheck); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}

	setupLog.Info("starting proxysync",
		"proxy", cfg.Proxy.Namespace+"/"+cfg.Proxy.PodName,
		"watchNamespace", cfg.Watch.Namespace,
		"backendImage", cfg.Backend.ImagePattern)
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("problem running manager: %w", err)
	}
	return nil
}

// buildController assembles the classifier, prober, synchronizer and
// reconciler described by cfg.
func buildController(cfg *config.Config, client *k8s.Client) (*controller.Controller, error) {
	cls, err := classifier.New(classifier.Config{
		ProxyPodName:        cfg.Proxy.PodName,
		ProxyNamespace:      cfg.Proxy.Namespace,
		ProxyContainerName:  cfg.Proxy.ContainerName,
		BackendImagePattern: cfg.Backend.ImagePattern,
		BackendLabels:       cfg.Backend.Labels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	prober := probe.New(probe.Config{
		Attempts: cfg.Probe.Attempts,
		Interval: cfg.Probe.Interval,
		Timeout:  cfg.Probe.Timeout,
	})

	executor := client.ContainerExecutor(cfg.Proxy.Namespace, cfg.Proxy.PodName, cfg.Proxy.ContainerName)
	syncer, err := balancer.NewSynchronizer(executor, balancer.Config{
		ConfigPath: cfg.Proxy.ConfigPath,
		Binary:     cfg.Proxy.Binary,
		Timeout:    cfg.Exec.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create synchronizer: %w", err)
	}

	r, err := controller.NewReconciler(cls, prober, syncer,
		controller.WithRetryOptions(
			retry.WithMaxRetries(cfg.Exec.Retries),
			retry.WithInitialDelay(cfg.Exec.RetryDelay),
		))
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciler: %w", err)
	}

	return controller.NewController(client, cfg.Watch.Namespace, r,
		controller.WithBufferSize(cfg.Watch.BufferSize)), nil
}
