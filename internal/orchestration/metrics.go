package orchestration

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/boringsvc/internal/remote"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Metrics records orchestration outcomes in a private registry. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	serviceHealthy    *prometheus.GaugeVec
	hostFailuresTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the orchestration metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "boringsvc",
				Name:      "operations_total",
				Help:      "Total number of service operations by result",
			},
			[]string{"service", "operation", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "boringsvc",
				Name:      "operation_duration_seconds",
				Help:      "Duration of service operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4min
			},
			[]string{"service", "operation"},
		),
		serviceHealthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "boringsvc",
				Name:      "service_healthy",
				Help:      "Whether every host of the service is running (1) or not (0)",
			},
			[]string{"service"},
		),
		hostFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "boringsvc",
				Name:      "host_failures_total",
				Help:      "Total number of failed host visits by operation",
			},
			[]string{"service", "operation"},
		),
	}

	m.registry.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.serviceHealthy,
		m.hostFailuresTotal,
	)
	return m
}

// Registry exposes the underlying registry, for example to gather or serve it.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteMetrics writes every metric to path in the node_exporter textfile
// format. The file is replaced atomically.
func (m *Metrics) WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) recordOperation(service, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.operationsTotal.WithLabelValues(service, operation, result).Inc()
	m.operationDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
	if failed := len(remote.HostErrors(err)); failed > 0 {
		m.hostFailuresTotal.WithLabelValues(service, operation).Add(float64(failed))
	}
}

func (m *Metrics) recordHealth(result HealthResult) {
	if m == nil {
		return
	}
	if result.Status == StatusHealthy {
		m.serviceHealthy.WithLabelValues(result.Service).Set(1)
	} else {
		m.serviceHealthy.WithLabelValues(result.Service).Set(0)
	}
	for _, h := range result.Hosts {
		if !h.Running {
			m.hostFailuresTotal.WithLabelValues(result.Service, opStatus).Inc()
		}
	}
}
