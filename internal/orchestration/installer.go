package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/boringsvc/internal/config"
	"github.com/imamik/boringsvc/internal/services"
)

// ErrServiceDisabled is returned when installing a service configured with
// enabled: false.
var ErrServiceDisabled = errors.New("service is disabled")

const (
	opInstall   = "install"
	opUninstall = "uninstall"
	opRestart   = "restart"
	opStatus    = "status"
)

// DriverFactory builds the driver for a configured service.
type DriverFactory func(svc config.Service) (services.Driver, error)

// NewDriverFactory returns a factory building drivers with deps.
func NewDriverFactory(deps services.Deps) DriverFactory {
	return func(svc config.Service) (services.Driver, error) {
		return services.New(svc, deps)
	}
}

// Outcome is the result of one service operation.
type Outcome struct {
	Service  string
	Duration time.Duration
	Err      error
}

// Report collects the outcomes of InstallAll in configuration order.
type Report struct {
	Outcomes []Outcome
}

// Failed returns the outcomes that carry an error.
func (r *Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Installer installs, uninstalls and restarts the services of one environment.
type Installer struct {
	env     *config.Environment
	drivers DriverFactory
	metrics *Metrics
}

// NewInstaller creates an Installer. metrics may be nil.
func NewInstaller(env *config.Environment, drivers DriverFactory, metrics *Metrics) *Installer {
	return &Installer{
		env:     env,
		drivers: drivers,
		metrics: metrics,
	}
}

// InstallAll installs every enabled service in configuration order. Disabled
// services are skipped. A failing service does not stop the rest; the
// returned error joins every failure.
//
// Drivers are built for all services before any remote work starts, so a
// configuration error leaves every host untouched.
func (i *Installer) InstallAll(ctx context.Context) (*Report, error) {
	enabled := i.env.EnabledServices()

	drivers := make([]services.Driver, 0, len(enabled))
	var errs []error
	for _, svc := range enabled {
		d, err := i.drivers(svc)
		if err != nil {
			errs = append(errs, fmt.Errorf("service %s: %w", svc.Name, err))
			continue
		}
		drivers = append(drivers, d)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	log := logr.FromContextOrDiscard(ctx)
	report := &Report{}
	for _, d := range drivers {
		outcome := i.run(ctx, d, opInstall, d.Install)
		if outcome.Err != nil {
			log.Error(outcome.Err, "service install failed", "service", d.Name())
			errs = append(errs, outcome.Err)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report, errors.Join(errs...)
}

// InstallService installs the named service.
func (i *Installer) InstallService(ctx context.Context, name string) error {
	d, err := i.driver(name, true)
	if err != nil {
		return err
	}
	return i.run(ctx, d, opInstall, d.Install).Err
}

// UninstallService uninstalls the named service, even if it is disabled.
func (i *Installer) UninstallService(ctx context.Context, name string) error {
	d, err := i.driver(name, false)
	if err != nil {
		return err
	}
	return i.run(ctx, d, opUninstall, d.Uninstall).Err
}

// RestartService restarts the named service, even if it is disabled.
func (i *Installer) RestartService(ctx context.Context, name string) error {
	d, err := i.driver(name, false)
	if err != nil {
		return err
	}
	return i.run(ctx, d, opRestart, d.Restart).Err
}

func (i *Installer) driver(name string, requireEnabled bool) (services.Driver, error) {
	svc := i.env.Service(name)
	if svc == nil {
		return nil, fmt.Errorf("%w: %q is not configured in %s", services.ErrUnknownService, name, i.env.Name)
	}
	if requireEnabled && !svc.IsEnabled() {
		return nil, fmt.Errorf("%w: %s", ErrServiceDisabled, name)
	}
	return i.drivers(*svc)
}

func (i *Installer) run(ctx context.Context, d services.Driver, operation string, fn func(context.Context) error) Outcome {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	i.metrics.recordOperation(d.Name(), operation, elapsed, err)
	logr.FromContextOrDiscard(ctx).V(1).Info("operation finished", "service", d.Name(), "operation", operation, "duration", elapsed, "ok", err == nil)

	return Outcome{Service: d.Name(), Duration: elapsed, Err: err}
}
