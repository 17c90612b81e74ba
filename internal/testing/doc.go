// Package testing provides test doubles, builders, and helpers shared by
// the package tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - RecordingTransport: in-memory remote.Transport that records every command and upload
//   - MockTransport: testify mock of remote.Transport for strict expectations
//   - EnvironmentBuilder: fluent builder for config.Environment values
//
// Usage:
//
//	rt := testutil.NewRecordingTransport()
//	rt.Respond("systemctl status redis-server", remote.Result{Output: "Active: active (running)"})
//
//	env := testutil.NewEnvironmentBuilder().
//	    WithService(config.Service{Name: "redis", Host: testutil.Host("h1")}).
//	    Build()
package testing
