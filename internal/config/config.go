package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "proxysync.yaml"

// Default values.
const (
	DefaultProxyPodName       = "httpd"
	DefaultProxyNamespace     = "default"
	DefaultProxyContainerName = "httpd"
	DefaultProxyBinary        = "/usr/local/apache2/bin/httpd"
	DefaultProxyConfigPath    = "/usr/local/apache2/conf/balancer/proxy_balancer.conf"
	DefaultBackendImage       = "tomcat:.*"

	DefaultWatchBufferSize = 256

	DefaultProbeAttempts = 10
	DefaultProbeInterval = 1 * time.Second
	DefaultProbeTimeout  = 1 * time.Second

	DefaultExecTimeout    = 30 * time.Second
	DefaultExecRetries    = 3
	DefaultExecRetryDelay = 500 * time.Millisecond
)

// Config holds the controller configuration.
type Config struct {
	Proxy   ProxyConfig   `yaml:"proxy"`
	Backend BackendConfig `yaml:"backend"`
	Watch   WatchConfig   `yaml:"watch"`
	Probe   ProbeConfig   `yaml:"probe"`
	Exec    ExecConfig    `yaml:"exec"`
}

// ProxyConfig identifies the reverse proxy pod and its balancer file.
type ProxyConfig struct {
	PodName       string `yaml:"podName"`
	Namespace     string `yaml:"namespace"`
	ContainerName string `yaml:"containerName"`
	Binary        string `yaml:"binary"`
	ConfigPath    string `yaml:"configPath"`
}

// BackendConfig describes which pods are backends.
type BackendConfig struct {
	// ImagePattern is a regular expression matched against the whole image.
	ImagePattern string `yaml:"imagePattern"`
	// Labels must all be present on a backend pod.
	Labels map[string]string `yaml:"labels"`
}

// WatchConfig scopes the pod watch.
type WatchConfig struct {
	// Namespace restricts the watch. Empty watches all namespaces.
	Namespace string `yaml:"namespace"`
	// BufferSize is the number of observations queued ahead of the reconciler.
	BufferSize int `yaml:"bufferSize"`
}

// ProbeConfig configures the backend HTTP probe.
type ProbeConfig struct {
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ExecConfig configures remote commands in the proxy container.
type ExecConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retryDelay"`
}

// Default returns the configuration used for unset fields.
func Default() *Config {
	return &Config{
		Proxy: ProxyConfig{
			PodName:       DefaultProxyPodName,
			Namespace:     DefaultProxyNamespace,
			ContainerName: DefaultProxyContainerName,
			Binary:        DefaultProxyBinary,
			ConfigPath:    DefaultProxyConfigPath,
		},
		Backend: BackendConfig{
			ImagePattern: DefaultBackendImage,
		},
		Watch: WatchConfig{
			BufferSize: DefaultWatchBufferSize,
		},
		Probe: ProbeConfig{
			Attempts: DefaultProbeAttempts,
			Interval: DefaultProbeInterval,
			Timeout:  DefaultProbeTimeout,
		},
		Exec: ExecConfig{
			Timeout:    DefaultExecTimeout,
			Retries:    DefaultExecRetries,
			RetryDelay: DefaultExecRetryDelay,
		},
	}
}

// LoadFile reads, defaults, overrides from the environment and validates
// the configuration in path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document on top of the defaults.
// Both the current layout and the legacy flat layout are accepted.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	if isLegacy(raw) {
		return parseLegacy(data)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
