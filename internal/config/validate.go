package config

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/validation"
)

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, c.validateProxy()...)
	errs = append(errs, c.validateBackend()...)
	errs = append(errs, c.validateWatch()...)
	errs = append(errs, c.validateProbe()...)
	errs = append(errs, c.validateExec()...)
	return errors.Join(errs...)
}

func (c *Config) validateProxy() []error {
	var errs []error
	p := c.Proxy

	if p.PodName == "" {
		errs = append(errs, fmt.Errorf("proxy.podName is required"))
	} else if msgs := validation.IsDNS1123Subdomain(p.PodName); len(msgs) > 0 {
		errs = append(errs, fmt.Errorf("proxy.podName %q is invalid: %s", p.PodName, strings.Join(msgs, "; ")))
	}

	if p.Namespace == "" {
		errs = append(errs, fmt.Errorf("proxy.namespace is required"))
	} else if msgs := validation.IsDNS1123Label(p.Namespace); len(msgs) > 0 {
		errs = append(errs, fmt.Errorf("proxy.namespace %q is invalid: %s", p.Namespace, strings.Join(msgs, "; ")))
	}

	if p.ContainerName == "" {
		errs = append(errs, fmt.Errorf("proxy.containerName is required"))
	} else if msgs := validation.IsDNS1123Label(p.ContainerName); len(msgs) > 0 {
		errs = append(errs, fmt.Errorf("proxy.containerName %q is invalid: %s", p.ContainerName, strings.Join(msgs, "; ")))
	}

	if !path.IsAbs(p.Binary) {
		errs = append(errs, fmt.Errorf("proxy.binary must be an absolute path, got %q", p.Binary))
	}
	if !path.IsAbs(p.ConfigPath) {
		errs = append(errs, fmt.Errorf("proxy.configPath must be an absolute path, got %q", p.ConfigPath))
	}
	return errs
}

func (c *Config) validateBackend() []error {
	var errs []error
	b := c.Backend

	if b.ImagePattern == "" {
		errs = append(errs, fmt.Errorf("backend.imagePattern is required"))
	} else if _, err := regexp.Compile(b.ImagePattern); err != nil {
		errs = append(errs, fmt.Errorf("backend.imagePattern is not a valid regular expression: %w", err))
	}

	if _, err := labels.ValidatedSelectorFromSet(b.Labels); err != nil {
		errs = append(errs, fmt.Errorf("backend.labels: %w", err))
	}
	return errs
}

func (c *Config) validateWatch() []error {
	var errs []error
	w := c.Watch

	if w.Namespace != "" {
		if msgs := validation.IsDNS1123Label(w.Namespace); len(msgs) > 0 {
			errs = append(errs, fmt.Errorf("watch.namespace %q is invalid: %s", w.Namespace, strings.Join(msgs, "; ")))
		} else if w.Namespace != c.Proxy.Namespace {
			errs = append(errs, fmt.Errorf("proxy namespace %q is outside the watched namespace %q", c.Proxy.Namespace, w.Namespace))
		}
	}
	if w.BufferSize < 0 {
		errs = append(errs, fmt.Errorf("watch.bufferSize must not be negative, got %d", w.BufferSize))
	}
	return errs
}

func (c *Config) validateProbe() []error {
	var errs []error
	p := c.Probe

	if p.Attempts < 1 {
		errs = append(errs, fmt.Errorf("probe.attempts must be at least 1, got %d", p.Attempts))
	}
	if p.Interval <= 0 {
		errs = append(errs, fmt.Errorf("probe.interval must be positive, got %s", p.Interval))
	}
	if p.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("probe.timeout must be positive, got %s", p.Timeout))
	}
	if p.Interval > 0 && p.Timeout > p.Interval {
		errs = append(errs, fmt.Errorf("probe.timeout %s must not exceed probe.interval %s", p.Timeout, p.Interval))
	}
	return errs
}

func (c *Config) validateExec() []error {
	var errs []error
	e := c.Exec

	if e.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("exec.timeout must be positive, got %s", e.Timeout))
	}
	if e.Retries < 0 {
		errs = append(errs, fmt.Errorf("exec.retries must not be negative, got %d", e.Retries))
	}
	if e.RetryDelay <= 0 {
		errs = append(errs, fmt.Errorf("exec.retryDelay must be positive, got %s", e.RetryDelay))
	}
	return errs
}
