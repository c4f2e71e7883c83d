package observation

import (
	"maps"
	"slices"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"
)

// EventKind is the kind of watch event an observation was built from.
type EventKind string

// Event kinds emitted by the pod source.
const (
	KindAdded    EventKind = "Added"
	KindModified EventKind = "Modified"
	KindDeleted  EventKind = "Deleted"
)

// KindFromWatch maps a watch event type to an EventKind.
// Bookmark and Error events carry no pod snapshot and report false.
func KindFromWatch(t watch.EventType) (EventKind, bool) {
	switch t {
	case watch.Added:
		return KindAdded, true
	case watch.Modified:
		return KindModified, true
	case watch.Deleted:
		return KindDeleted, true
	default:
		return "", false
	}
}

// RunState is the runtime sub-state of a container.
type RunState string

// Container run states.
const (
	StateUnknown    RunState = "Unknown"
	StateWaiting    RunState = "Waiting"
	StateRunning    RunState = "Running"
	StateTerminated RunState = "Terminated"
)

// Container is a declared container of the pod spec.
type Container struct {
	Name  string
	Image string
	Ports []int32
}

// ContainerStatus is the runtime status reported for one container.
type ContainerStatus struct {
	Name  string
	Image string
	Ready bool
	State RunState
}

// Condition is a pod-level condition.
type Condition struct {
	Type   string
	Status string
}

// Observation is an immutable snapshot of a pod at the time of one event.
//
// Build it with FromPod. The zero Address, a nil Statuses slice and a nil
// Conditions slice mean the API server has not populated those fields yet.
type Observation struct {
	Kind      EventKind
	Namespace string
	Name      string
	UID       types.UID
	Labels    map[string]string

	Address    string
	Containers []Container
	Statuses   []ContainerStatus
	Conditions []Condition

	DeletionGracePeriodSet bool
	DeletionTimestampSet   bool
}

// FromPod builds an observation from a pod snapshot. Slices and maps are
// copied so later mutation of the pod does not leak into the observation.
func FromPod(kind EventKind, pod *corev1.Pod) Observation {
	obs := Observation{
		Kind:                   kind,
		Namespace:              pod.Namespace,
		Name:                   pod.Name,
		UID:                    pod.UID,
		Labels:                 maps.Clone(pod.Labels),
		Address:                pod.Status.PodIP,
		DeletionGracePeriodSet: pod.DeletionGracePeriodSeconds != nil,
		DeletionTimestampSet:   pod.DeletionTimestamp != nil,
	}

	obs.Containers = make([]Container, 0, len(pod.Spec.Containers))
	for _, c := range pod.Spec.Containers {
		ports := make([]int32, 0, len(c.Ports))
		for _, p := range c.Ports {
			ports = append(ports, p.ContainerPort)
		}
		obs.Containers = append(obs.Containers, Container{Name: c.Name, Image: c.Image, Ports: ports})
	}

	if pod.Status.ContainerStatuses != nil {
		obs.Statuses = make([]ContainerStatus, 0, len(pod.Status.ContainerStatuses))
		for _, s := range pod.Status.ContainerStatuses {
			obs.Statuses = append(obs.Statuses, ContainerStatus{
				Name:  s.Name,
				Image: s.Image,
				Ready: s.Ready,
				State: runState(s.State),
			})
		}
	}

	if pod.Status.Conditions != nil {
		obs.Conditions = make([]Condition, 0, len(pod.Status.Conditions))
		for _, c := range pod.Status.Conditions {
			obs.Conditions = append(obs.Conditions, Condition{Type: string(c.Type), Status: string(c.Status)})
		}
	}

	return obs
}

func runState(s corev1.ContainerState) RunState {
	switch {
	case s.Running != nil:
		return StateRunning
	case s.Terminated != nil:
		return StateTerminated
	case s.Waiting != nil:
		return StateWaiting
	default:
		return StateUnknown
	}
}

// Key identifies the pod across events. The UID is preferred; pods built
// without one fall back to namespace/name.
func (o Observation) Key() string {
	if o.UID != "" {
		return string(o.UID)
	}
	return o.Namespace + "/" + o.Name
}

// HasAddress reports whether the pod has been assigned a network address.
func (o Observation) HasAddress() bool { return o.Address != "" }

// HasContainerStatuses reports whether container statuses were reported.
func (o Observation) HasContainerStatuses() bool { return len(o.Statuses) > 0 }

// HasConditions reports whether pod conditions were reported.
func (o Observation) HasConditions() bool { return len(o.Conditions) > 0 }

// Missing names the first optional field the controller depends on that
// has not been reported yet, or returns "" when all of them are present.
func (o Observation) Missing() string {
	switch {
	case !o.HasAddress():
		return "address"
	case !o.HasConditions():
		return "conditions"
	case !o.HasContainerStatuses():
		return "containerStatuses"
	}
	return ""
}

// Terminating reports whether the pod is being deleted.
func (o Observation) Terminating() bool {
	return o.DeletionGracePeriodSet || o.DeletionTimestampSet || o.Kind == KindDeleted
}

// Condition returns the condition of the given type.
func (o Observation) Condition(conditionType string) (Condition, bool) {
	i := slices.IndexFunc(o.Conditions, func(c Condition) bool { return c.Type == conditionType })
	if i < 0 {
		return Condition{}, false
	}
	return o.Conditions[i], true
}

// Status returns the status of the named container, or nil when the
// container has not reported one yet.
func (o Observation) Status(containerName string) *ContainerStatus {
	for i := range o.Statuses {
		if o.Statuses[i].Name == containerName {
			s := o.Statuses[i]
			return &s
		}
	}
	return nil
}
