// Package observation normalizes pod watch events into immutable snapshots.
//
// An [Observation] carries only the fields the reconciliation engine needs:
// identity, address, containers, container statuses, conditions and
// deletion markers. Fields that the API server fills in late in a pod's
// lifecycle (address, conditions, container statuses) are explicitly
// optional and reported through the Has* accessors.
//
// [IsActive] is the readiness predicate shared by the proxy and backend
// paths of the controller.
package observation
