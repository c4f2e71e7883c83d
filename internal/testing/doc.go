// Package testing provides test utilities and builders for unit and integration tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - PodBuilder: Fluent builder for pods in the lifecycle stages the controller reacts to
//   - TestContext: Context bound to the test lifetime
//
// Usage:
//
//	pod := testing.NewPodBuilder("p1").
//	    WithIP("10.0.0.5").
//	    Ready().
//	    Build()
package testing
