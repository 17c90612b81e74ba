// Package orchestration runs service operations across an environment.
//
// The [Installer] installs every enabled service in configuration order, or a
// single named one, and uninstalls or restarts services on request. The
// [HealthChecker] asks systemd on each host whether a service's unit is
// running and folds the answers into a [HealthResult] per service.
//
// # Failure handling
//
// Each service visits its hosts through a [remote.Executor], so a host that
// fails does not stop the other hosts, and a service that fails does not stop
// the services after it. Errors come back joined, one [remote.HostError] per
// failed host. Health checks never fail: a host that cannot be reached is
// reported as not running with the error as its message.
//
// # Metrics
//
// Operations and health results are recorded in a private prometheus
// registry (see [Metrics]) which the CLI can write out as a node_exporter
// textfile.
package orchestration
