// Package controller keeps the proxy's balancer members in step with the
// backend pods running in the cluster.
//
// A [Source] turns the pod watch into an ordered stream of observations.
// The [Reconciler] consumes that stream one observation at a time and
// drives a small state machine per backend:
//
//	unseen -> (active and responding) -> registered -> (inactive) -> unseen
//
// and one for the proxy itself:
//
//	offline -> (proxy active, full resync) -> online -> (inactive) -> offline
//
// Remote changes are only issued while the proxy is online. When the proxy
// comes online every known backend missing from its configuration is added
// back, followed by a single graceful reload.
package controller
