package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/boringsvc/internal/config"
	"github.com/imamik/boringsvc/internal/remote"
	"github.com/imamik/boringsvc/internal/secrets"
	"github.com/imamik/boringsvc/internal/templates"
	"github.com/imamik/boringsvc/internal/util/keygen"
)

// ErrConfigValidationFailed is returned when a service rejects its generated configuration.
var ErrConfigValidationFailed = errors.New("configuration validation failed")

const (
	selfSignedKeyBits  = 2048
	selfSignedValidity = 825 * 24 * time.Hour
)

// Driver installs and controls one configured service.
type Driver interface {
	Name() string
	Kind() Kind
	// Unit is the systemd unit the service runs as.
	Unit() string
	Hosts() []config.HostTarget
	Install(ctx context.Context) error
	Uninstall(ctx context.Context) error
	Restart(ctx context.Context) error
}

// CertificateFunc produces a self-signed certificate for commonName.
type CertificateFunc func(commonName string) (*keygen.Certificate, error)

// Deps are the collaborators shared by every driver.
type Deps struct {
	Executor *remote.Executor
	Secrets  *secrets.Resolver
	// SecretValues is the environment's secrets map (name to reference).
	SecretValues map[string]string
	Templates    *templates.Loader
	// Certificates generates fallback TLS certificates. Defaults to a
	// locally generated RSA certificate.
	Certificates CertificateFunc
}

// New returns the driver for svc, chosen by its type (or name).
func New(svc config.Service, deps Deps) (Driver, error) {
	kind, err := ParseKind(svc.DriverType())
	if err != nil {
		return nil, err
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("service %s: executor is required", svc.Name)
	}
	if deps.Secrets == nil {
		deps.Secrets = secrets.NewResolver()
	}
	if deps.Templates == nil {
		deps.Templates = templates.NewLoader(nil)
	}
	if deps.Certificates == nil {
		deps.Certificates = func(cn string) (*keygen.Certificate, error) {
			return keygen.GenerateSelfSignedCertificate(cn, selfSignedKeyBits, selfSignedValidity)
		}
	}

	switch kind {
	case CacheServer:
		return newCacheServer(svc, deps), nil
	case KVStore:
		return newKVStore(svc, deps), nil
	case LoadBalancer:
		return newLoadBalancer(svc, deps), nil
	case ReverseProxy:
		return newReverseProxy(svc, deps), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, svc.DriverType())
	}
}

// configFile describes where a driver's configuration lands.
type configFile struct {
	path  string
	owner string
	mode  string
}

// hooks are the per-kind steps of an install.
type hooks struct {
	// beforeConfig runs after the package is installed.
	beforeConfig func(ctx context.Context) error
	// render produces the default configuration for the current host.
	render func(ctx context.Context) (string, error)
	// afterConfig runs once the configuration is in place, before the unit
	// is enabled.
	afterConfig func(ctx context.Context) error
}

type base struct {
	svc  config.Service
	deps Deps
	kind Kind
	pkg  string
	unit string
	conf configFile
}

func (b *base) Name() string               { return b.svc.Name }
func (b *base) Kind() Kind                 { return b.kind }
func (b *base) Unit() string               { return b.unit }
func (b *base) Hosts() []config.HostTarget { return b.svc.Targets() }

// forEachHost runs fn on every host of the service.
func (b *base) forEachHost(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	err := b.deps.Executor.RunOnHosts(ctx, b.svc.Targets(), func(ctx context.Context) error {
		logr.FromContextOrDiscard(ctx).Info(action+" "+b.kind.Product(), "service", b.svc.Name, "on", remote.CurrentLabel(ctx))
		return fn(ctx)
	})
	if err != nil {
		return fmt.Errorf("service %s: %w", b.svc.Name, err)
	}
	return nil
}

func (b *base) install(ctx context.Context, h hooks) error {
	return b.forEachHost(ctx, "Installing", func(ctx context.Context) error {
		if err := remote.InstallPackage(ctx, b.pkg); err != nil {
			return err
		}
		if h.beforeConfig != nil {
			if err := h.beforeConfig(ctx); err != nil {
				return err
			}
		}
		if err := b.writeConfig(ctx, h.render); err != nil {
			return err
		}
		if h.afterConfig != nil {
			if err := h.afterConfig(ctx); err != nil {
				return err
			}
		}

		unit := remote.Systemd{Unit: b.unit}
		if err := unit.Enable(ctx); err != nil {
			return err
		}
		return unit.Start(ctx)
	})
}

// Uninstall stops and disables the unit, then removes the package.
func (b *base) Uninstall(ctx context.Context) error {
	return b.forEachHost(ctx, "Uninstalling", func(ctx context.Context) error {
		unit := remote.Systemd{Unit: b.unit}
		if err := unit.Stop(ctx); err != nil {
			return err
		}
		if err := unit.Disable(ctx); err != nil {
			return err
		}
		return remote.UninstallPackage(ctx, b.pkg)
	})
}

// Restart restarts the unit.
func (b *base) Restart(ctx context.Context) error {
	return b.forEachHost(ctx, "Restarting", func(ctx context.Context) error {
		return remote.Systemd{Unit: b.unit}.Restart(ctx)
	})
}

func (b *base) writeConfig(ctx context.Context, render func(ctx context.Context) (string, error)) error {
	content, ok, err := b.customConfig(ctx)
	if err != nil {
		return err
	}
	if !ok {
		content, err = render(ctx)
		if err != nil {
			return err
		}
	}
	return remote.UploadFile(ctx, []byte(content), b.conf.path, b.conf.owner, b.conf.mode)
}

// customConfig renders custom_config_template. A template that does not
// exist falls back to the generated configuration.
func (b *base) customConfig(ctx context.Context) (string, bool, error) {
	src := b.svc.CustomConfigTemplate
	if src == "" {
		return "", false, nil
	}

	log := logr.FromContextOrDiscard(ctx)
	host := remote.CurrentHost(ctx)
	out, err := b.deps.Templates.Render(ctx, src, templates.Data{
		Service:  b.svc.Name,
		Host:     host.Host,
		Label:    host.DisplayName(),
		Params:   b.svc.CustomParams,
		Backends: b.svc.Backends,
	})
	if errors.Is(err, templates.ErrTemplateNotFound) {
		log.Info("custom config template not found, using defaults", "template", src)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	log.Info("using custom config template", "template", src)
	return out, true, nil
}

// secret resolves a reference field of the service. A value naming an
// entry of the environment's secrets map resolves that entry instead.
func (b *base) secret(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if _, ok := b.deps.SecretValues[ref]; ok {
		return b.deps.Secrets.ResolveKey(ctx, b.deps.SecretValues, ref)
	}
	return b.deps.Secrets.Resolve(ctx, ref)
}
