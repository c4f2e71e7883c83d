package observation

import (
	corev1 "k8s.io/api/core/v1"
)

// IsActive reports whether a container is serving: its status is present,
// ready and running, the pod's Ready and ContainersReady conditions are
// True, and the pod is not being deleted.
//
// Conditions are looked up by type. A missing condition counts as not True.
// A Deleted event is never active, even without deletion markers.
func IsActive(obs Observation, status *ContainerStatus) bool {
	if status == nil || !status.Ready || status.State != StateRunning {
		return false
	}
	if !conditionTrue(obs, string(corev1.PodReady)) ||
		!conditionTrue(obs, string(corev1.ContainersReady)) {
		return false
	}
	return !obs.Terminating()
}

func conditionTrue(obs Observation, conditionType string) bool {
	c, ok := obs.Condition(conditionType)
	return ok && c.Status == string(corev1.ConditionTrue)
}
