package handlers

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
)

// Validate loads the configuration at configPath and prints the effective
// settings to w.
func Validate(w io.Writer, configPath string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	watchNamespace := cfg.Watch.Namespace
	if watchNamespace == "" {
		watchNamespace = "(all)"
	}

	fmt.Fprintf(w, "Configuration %s is valid\n\n", configPath)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Proxy pod:\t%s/%s\n", cfg.Proxy.Namespace, cfg.Proxy.PodName)
	fmt.Fprintf(tw, "Proxy container:\t%s\n", cfg.Proxy.ContainerName)
	fmt.Fprintf(tw, "Balancer file:\t%s\n", cfg.Proxy.ConfigPath)
	fmt.Fprintf(tw, "Control binary:\t%s\n", cfg.Proxy.Binary)
	fmt.Fprintf(tw, "Backend image:\t%s\n", cfg.Backend.ImagePattern)
	for _, k := range slices.Sorted(maps.Keys(cfg.Backend.Labels)) {
		fmt.Fprintf(tw, "Backend label:\t%s=%s\n", k, cfg.Backend.Labels[k])
	}
	fmt.Fprintf(tw, "Watch namespace:\t%s\n", watchNamespace)
	fmt.Fprintf(tw, "Watch buffer:\t%d\n", cfg.Watch.BufferSize)
	fmt.Fprintf(tw, "Probe:\t%d attempts, every %s, timeout %s\n", cfg.Probe.Attempts, cfg.Probe.Interval, cfg.Probe.Timeout)
	fmt.Fprintf(tw, "Exec:\ttimeout %s, %d retries from %s\n", cfg.Exec.Timeout, cfg.Exec.Retries, cfg.Exec.RetryDelay)
	return tw.Flush()
}
