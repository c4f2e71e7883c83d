// Package k8s provides the Kubernetes client used to watch pods and to run
// commands inside the proxy container.
package k8s

import (
	"fmt"
	"net/url"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
)

// Client wraps Kubernetes API operations needed by the controller.
type Client struct {
	clientset kubernetes.Interface
	config    *rest.Config

	// newExecutor opens a remote command stream for an exec URL.
	newExecutor func(config *rest.Config, u *url.URL) (remotecommand.Executor, error)
}

// NewClientFromConfig creates a new Kubernetes client from a REST config.
func NewClientFromConfig(config *rest.Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("rest config cannot be nil")
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return &Client{
		clientset:   clientset,
		config:      config,
		newExecutor: newStreamExecutor,
	}, nil
}

// Ping checks that the API server is reachable and returns its version.
func (c *Client) Ping() (string, error) {
	info, err := c.clientset.Discovery().ServerVersion()
	if err != nil {
		return "", fmt.Errorf("failed to reach API server: %w", err)
	}
	return info.GitVersion, nil
}
