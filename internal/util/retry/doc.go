// Package retry provides exponential backoff retry logic for transient failures.
//
// The [WithExponentialBackoff] function retries an operation with configurable
// max retries, initial delay and maximum delay. It is used for remote
// commands against the proxy container, where a dropped exec stream or a
// timeout is expected to clear up on the next attempt. Errors wrapped with
// [Fatal] stop the loop immediately.
package retry
