// Package remote runs commands against remote hosts and tracks which host a
// piece of code is currently operating on.
//
// An [Executor] visits a service's hosts one after another (or with bounded
// concurrency). For each visit it pushes a [Frame] holding the host's
// [Identity] and a fresh [Backend] onto the visit's context.Context. Code
// running inside the visit reads the innermost frame with [CurrentHost],
// [CurrentLabel] and [CurrentBackend], or issues commands through the
// delegating helpers ([Execute], [Capture], [Upload], [InstallPackage],
// [Systemd]) without threading the backend through every call.
//
// Frames are immutable and live only in the derived context handed to the
// visit callback, so they are dropped when the callback returns, whether
// it succeeded or not, and concurrent visits never observe each other's
// frames.
//
// The actual wire protocol is behind the [Transport] interface. The
// platform/ssh package provides the production implementation; tests use
// the recording transport in internal/testing.
package remote
