// Package classifier decides which role a pod plays for the controller.
//
// A pod is the proxy when its identity matches the configured proxy pod,
// and a backend when one of its containers runs the backend image and it
// carries every required label. The two checks are independent; a pod may
// match both.
package classifier

import (
	"fmt"
	"regexp"

	"k8s.io/apimachinery/pkg/labels"

	"github.com/imamik/proxysync/internal/observation"
)

// Config holds the classification rules.
type Config struct {
	// ProxyPodName is the name of the singleton proxy pod.
	ProxyPodName string
	// ProxyNamespace restricts the proxy match to one namespace. Empty matches any.
	ProxyNamespace string
	// ProxyContainerName is the container running the proxy inside the proxy pod.
	ProxyContainerName string
	// BackendImagePattern is a regular expression that must match a whole container image.
	BackendImagePattern string
	// BackendLabels must all be present on a backend pod. Empty skips the check.
	BackendLabels map[string]string
}

// Classification is the outcome of classifying one observation.
type Classification struct {
	Proxy   bool
	Backend bool
}

// Relevant reports whether the observation concerns the controller at all.
func (c Classification) Relevant() bool { return c.Proxy || c.Backend }

// Classifier classifies observations against compiled rules.
type Classifier struct {
	cfg      Config
	image    *regexp.Regexp
	selector labels.Selector
}

// New compiles the classification rules.
func New(cfg Config) (*Classifier, error) {
	if cfg.ProxyPodName == "" {
		return nil, fmt.Errorf("proxy pod name cannot be empty")
	}
	if cfg.BackendImagePattern == "" {
		return nil, fmt.Errorf("backend image pattern cannot be empty")
	}

	image, err := regexp.Compile("^(?:" + cfg.BackendImagePattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("invalid backend image pattern %q: %w", cfg.BackendImagePattern, err)
	}

	return &Classifier{
		cfg:      cfg,
		image:    image,
		selector: labels.SelectorFromSet(cfg.BackendLabels),
	}, nil
}

// Classify reports whether the observation is the proxy pod, a backend pod, both or neither.
func (c *Classifier) Classify(obs observation.Observation) Classification {
	return Classification{
		Proxy:   c.IsProxy(obs),
		Backend: c.IsBackend(obs),
	}
}

// IsProxy reports whether the observation is the configured proxy pod.
func (c *Classifier) IsProxy(obs observation.Observation) bool {
	if obs.Name != c.cfg.ProxyPodName {
		return false
	}
	return c.cfg.ProxyNamespace == "" || obs.Namespace == c.cfg.ProxyNamespace
}

// IsBackend reports whether the observation runs the backend image and
// carries the required labels.
func (c *Classifier) IsBackend(obs observation.Observation) bool {
	if _, ok := c.backendContainer(obs); !ok {
		return false
	}
	// An empty selector matches everything.
	return c.selector.Matches(labels.Set(obs.Labels))
}

// BackendContainer returns the first declared container running the
// backend image and its status. The status is nil when it has not been
// reported yet.
func (c *Classifier) BackendContainer(obs observation.Observation) (observation.Container, *observation.ContainerStatus, bool) {
	container, ok := c.backendContainer(obs)
	if !ok {
		return observation.Container{}, nil, false
	}
	return container, obs.Status(container.Name), true
}

// ProxyContainerName returns the configured proxy container name.
func (c *Classifier) ProxyContainerName() string {
	return c.cfg.ProxyContainerName
}

// ProxyStatus returns the status of the proxy container, or nil when it
// has not been reported yet.
func (c *Classifier) ProxyStatus(obs observation.Observation) *observation.ContainerStatus {
	return obs.Status(c.cfg.ProxyContainerName)
}

func (c *Classifier) backendContainer(obs observation.Observation) (observation.Container, bool) {
	for _, container := range obs.Containers {
		if c.image.MatchString(container.Image) {
			return container, true
		}
	}
	return observation.Container{}, false
}
