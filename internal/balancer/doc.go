// Package balancer edits the member list of an Apache httpd
// mod_proxy_balancer configuration file inside the proxy container.
//
// # Configuration contract
//
// The file holds a block anchored by a line matching
//
//	<Proxy "balancer:...">
//
// and one line per backend, byte-for-byte in the form
//
//	    BalancerMember "http://10.0.0.5:8080"
//
// New members are inserted right after the anchor. Lines are the unit of
// add and remove; the Synchronizer does not deduplicate, so callers check
// [Synchronizer.Exists] before [Synchronizer.AddMember].
//
// # Command construction
//
// Every remote operation is an argv vector run through an [Executor]; no
// shell is involved. Members are validated before any command is built and
// regular-expression metacharacters are escaped for sed. Operations are
// bounded by a timeout and report [ErrTimeout] when it expires.
//
// After a batch of mutations, callers issue a single [Synchronizer.Reload],
// which runs a graceful restart that keeps in-flight connections.
package balancer
