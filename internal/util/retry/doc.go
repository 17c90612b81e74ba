// Package retry provides exponential backoff for transient failures.
//
// A [Policy] describes the attempt count and delay growth, and [Policy.Do]
// runs an operation under it. It is used when dialing SSH connections to
// fleet hosts that may be briefly unreachable. Errors wrapped with [Fatal]
// (for example authentication failures) are returned immediately.
package retry
