package orchestration

import (
	"context"
	"strings"
	"sync"

	"github.com/imamik/boringsvc/internal/config"
	"github.com/imamik/boringsvc/internal/remote"
)

// Status summarizes a service's health.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusNoHost    Status = "no_host"
)

// HostHealth is the state of a service's unit on one host.
type HostHealth struct {
	Running bool   `json:"running"`
	Message string `json:"message,omitempty"`
}

// HealthResult is the health of one service. Hosts is keyed by user@host.
type HealthResult struct {
	Service string                `json:"service"`
	Status  Status                `json:"status"`
	Hosts   map[string]HostHealth `json:"hosts,omitempty"`
}

// HealthChecker queries systemd on every host of every service.
type HealthChecker struct {
	env      *config.Environment
	drivers  DriverFactory
	executor *remote.Executor
	metrics  *Metrics
}

// NewHealthChecker creates a HealthChecker. metrics may be nil.
func NewHealthChecker(env *config.Environment, drivers DriverFactory, executor *remote.Executor, metrics *Metrics) *HealthChecker {
	return &HealthChecker{
		env:      env,
		drivers:  drivers,
		executor: executor,
		metrics:  metrics,
	}
}

// CheckAll checks every enabled service in configuration order.
func (h *HealthChecker) CheckAll(ctx context.Context) []HealthResult {
	enabled := h.env.EnabledServices()
	results := make([]HealthResult, 0, len(enabled))
	for _, svc := range enabled {
		results = append(results, h.CheckService(ctx, svc))
	}
	return results
}

// CheckService checks one service. Failures to reach a host or run the
// status command mark that host as not running; they are never returned.
func (h *HealthChecker) CheckService(ctx context.Context, svc config.Service) HealthResult {
	result := HealthResult{Service: svc.Name, Hosts: map[string]HostHealth{}}

	targets := svc.Targets()
	if len(targets) == 0 {
		result.Status = StatusNoHost
		h.metrics.recordHealth(result)
		return result
	}

	d, err := h.drivers(svc)
	if err != nil {
		for _, target := range targets {
			result.Hosts[h.hostKey(target)] = HostHealth{Message: err.Error()}
		}
		result.Status = StatusUnhealthy
		h.metrics.recordHealth(result)
		return result
	}

	var mu sync.Mutex
	unit := remote.Systemd{Unit: d.Unit()}
	err = h.executor.RunOnHosts(ctx, targets, func(ctx context.Context) error {
		status, err := unit.Status(ctx)
		if err != nil {
			return err
		}
		health := HostHealth{
			Running: remote.IsActiveRunning(status),
			Message: statusSummary(status),
		}

		mu.Lock()
		result.Hosts[remote.CurrentHost(ctx).String()] = health
		mu.Unlock()
		return nil
	})
	for _, he := range remote.HostErrors(err) {
		result.Hosts[he.Host] = HostHealth{Message: he.Err.Error()}
	}

	result.Status = StatusHealthy
	for _, host := range result.Hosts {
		if !host.Running {
			result.Status = StatusUnhealthy
			break
		}
	}
	h.metrics.recordHealth(result)
	return result
}

// hostKey names a target the way a successful visit would.
func (h *HealthChecker) hostKey(target config.HostTarget) string {
	id, err := remote.Normalize(target, h.executor.Defaults())
	if err != nil {
		return target.Host
	}
	return id.String()
}

// statusSummary picks the "Active:" line of systemctl status output, or its
// first line.
func statusSummary(status string) string {
	lines := strings.Split(strings.TrimSpace(status), "\n")
	for _, line := range lines {
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "Active:") {
			return line
		}
	}
	return strings.TrimSpace(lines[0])
}
