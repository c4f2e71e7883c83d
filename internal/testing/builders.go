package testing

import (
	"maps"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/utils/ptr"
)

// Default fixture values.
const (
	DefaultNamespace = "default"
	DefaultImage     = "tomcat:9.0"
	DefaultPort      = int32(8080)
)

// PodBuilder provides a fluent interface for constructing test pods.
// Each method returns a new builder (immutable) for chaining.
type PodBuilder struct {
	pod corev1.Pod
}

// NewPodBuilder creates a pending pod with a single tomcat container
// listening on DefaultPort and no status reported yet.
func NewPodBuilder(name string) *PodBuilder {
	return &PodBuilder{
		pod: corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Name:      name,
				Namespace: DefaultNamespace,
				UID:       types.UID(name + "-uid"),
			},
			Spec: corev1.PodSpec{
				Containers: []corev1.Container{{
					Name:  "app",
					Image: DefaultImage,
					Ports: []corev1.ContainerPort{{ContainerPort: DefaultPort}},
				}},
			},
		},
	}
}

// WithNamespace sets the pod namespace.
func (b *PodBuilder) WithNamespace(namespace string) *PodBuilder {
	nb := b.clone()
	nb.pod.Namespace = namespace
	return nb
}

// WithUID sets the pod UID.
func (b *PodBuilder) WithUID(uid string) *PodBuilder {
	nb := b.clone()
	nb.pod.UID = types.UID(uid)
	return nb
}

// WithLabels merges labels into the pod labels.
func (b *PodBuilder) WithLabels(labels map[string]string) *PodBuilder {
	nb := b.clone()
	if nb.pod.Labels == nil {
		nb.pod.Labels = map[string]string{}
	}
	maps.Copy(nb.pod.Labels, labels)
	return nb
}

// WithContainers replaces the declared containers.
func (b *PodBuilder) WithContainers(containers ...corev1.Container) *PodBuilder {
	nb := b.clone()
	nb.pod.Spec.Containers = containers
	return nb
}

// WithImage sets the image of the first container.
func (b *PodBuilder) WithImage(image string) *PodBuilder {
	nb := b.clone()
	nb.pod.Spec.Containers[0].Image = image
	return nb
}

// WithPorts replaces the declared ports of the first container.
func (b *PodBuilder) WithPorts(ports ...int32) *PodBuilder {
	nb := b.clone()
	cps := make([]corev1.ContainerPort, 0, len(ports))
	for _, p := range ports {
		cps = append(cps, corev1.ContainerPort{ContainerPort: p})
	}
	nb.pod.Spec.Containers[0].Ports = cps
	return nb
}

// WithIP sets the pod address.
func (b *PodBuilder) WithIP(ip string) *PodBuilder {
	nb := b.clone()
	nb.pod.Status.PodIP = ip
	return nb
}

// WithConditions replaces the pod conditions in the given order.
func (b *PodBuilder) WithConditions(conditions ...corev1.PodCondition) *PodBuilder {
	nb := b.clone()
	nb.pod.Status.Conditions = conditions
	return nb
}

// Ready marks every container ready and running and sets the standard
// pod conditions to True.
func (b *PodBuilder) Ready() *PodBuilder {
	nb := b.withStatuses(true, corev1.ContainerState{Running: &corev1.ContainerStateRunning{}})
	nb.pod.Status.Phase = corev1.PodRunning
	nb.pod.Status.Conditions = standardConditions(corev1.ConditionTrue)
	return nb
}

// NotReady marks every container running but not ready and sets the Ready
// and ContainersReady conditions to False.
func (b *PodBuilder) NotReady() *PodBuilder {
	nb := b.withStatuses(false, corev1.ContainerState{Running: &corev1.ContainerStateRunning{}})
	nb.pod.Status.Phase = corev1.PodRunning
	nb.pod.Status.Conditions = standardConditions(corev1.ConditionFalse)
	return nb
}

// Stopped marks every container terminated.
func (b *PodBuilder) Stopped() *PodBuilder {
	nb := b.withStatuses(false, corev1.ContainerState{Terminated: &corev1.ContainerStateTerminated{ExitCode: 143}})
	nb.pod.Status.Phase = corev1.PodFailed
	nb.pod.Status.Conditions = standardConditions(corev1.ConditionFalse)
	return nb
}

// Terminating sets the deletion timestamp and grace period.
func (b *PodBuilder) Terminating() *PodBuilder {
	nb := b.clone()
	now := metav1.Now()
	nb.pod.DeletionTimestamp = &now
	nb.pod.DeletionGracePeriodSeconds = ptr.To(int64(30))
	return nb
}

// Build returns the constructed pod.
func (b *PodBuilder) Build() *corev1.Pod {
	return b.pod.DeepCopy()
}

func (b *PodBuilder) withStatuses(ready bool, state corev1.ContainerState) *PodBuilder {
	nb := b.clone()
	statuses := make([]corev1.ContainerStatus, 0, len(nb.pod.Spec.Containers))
	for _, c := range nb.pod.Spec.Containers {
		statuses = append(statuses, corev1.ContainerStatus{
			Name:  c.Name,
			Image: c.Image,
			Ready: ready,
			State: *state.DeepCopy(),
		})
	}
	nb.pod.Status.ContainerStatuses = statuses
	return nb
}

// clone creates a deep copy of the builder for immutability.
func (b *PodBuilder) clone() *PodBuilder {
	return &PodBuilder{pod: *b.pod.DeepCopy()}
}

// standardConditions returns the conditions in the order the kubelet
// reports them, with Initialized and PodScheduled always True.
func standardConditions(status corev1.ConditionStatus) []corev1.PodCondition {
	return []corev1.PodCondition{
		{Type: corev1.PodInitialized, Status: corev1.ConditionTrue},
		{Type: corev1.PodReady, Status: status},
		{Type: corev1.ContainersReady, Status: status},
		{Type: corev1.PodScheduled, Status: corev1.ConditionTrue},
	}
}
