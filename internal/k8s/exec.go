package k8s

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/httpstream"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
)

// Exec runs command in a container and streams its output.
// A non-zero exit status is reported as a k8s.io/client-go/util/exec.ExitError.
func (c *Client) Exec(ctx context.Context, namespace, pod, container string, command []string, stdout, stderr io.Writer) error {
	req := c.clientset.CoreV1().RESTClient().Post().
		Namespace(namespace).
		Resource("pods").
		Name(pod).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: container,
			Command:   command,
			Stdout:    stdout != nil,
			Stderr:    stderr != nil,
		}, scheme.ParameterCodec)

	executor, err := c.newExecutor(c.config, req.URL())
	if err != nil {
		return fmt.Errorf("failed to create executor for %s/%s: %w", namespace, pod, err)
	}

	return executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: stdout,
		Stderr: stderr,
	})
}

// newStreamExecutor prefers the WebSocket protocol and falls back to SPDY
// when the API server cannot upgrade the connection.
func newStreamExecutor(config *rest.Config, u *url.URL) (remotecommand.Executor, error) {
	spdy, err := remotecommand.NewSPDYExecutor(config, http.MethodPost, u)
	if err != nil {
		return nil, err
	}
	websocket, err := remotecommand.NewWebSocketExecutor(config, http.MethodGet, u.String())
	if err != nil {
		return nil, err
	}
	return remotecommand.NewFallbackExecutor(websocket, spdy, func(err error) bool {
		return httpstream.IsUpgradeFailure(err) || httpstream.IsHTTPSProxyError(err)
	})
}

// ContainerExecutor runs commands in one fixed container.
// It implements balancer.Executor.
type ContainerExecutor struct {
	client    *Client
	namespace string
	pod       string
	container string
}

// ContainerExecutor returns an executor bound to a container of a pod.
func (c *Client) ContainerExecutor(namespace, pod, container string) *ContainerExecutor {
	return &ContainerExecutor{
		client:    c,
		namespace: namespace,
		pod:       pod,
		container: container,
	}
}

// Exec runs command in the bound container.
func (e *ContainerExecutor) Exec(ctx context.Context, command []string, stdout, stderr io.Writer) error {
	return e.client.Exec(ctx, e.namespace, e.pod, e.container, command, stdout, stderr)
}
