package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/imamik/boringsvc/internal/config"
	"github.com/imamik/boringsvc/internal/orchestration"
	"github.com/imamik/boringsvc/internal/platform/s3"
	"github.com/imamik/boringsvc/internal/platform/ssh"
	"github.com/imamik/boringsvc/internal/remote"
	"github.com/imamik/boringsvc/internal/secrets"
	"github.com/imamik/boringsvc/internal/services"
	"github.com/imamik/boringsvc/internal/templates"
)

// sshPasswordSecret is the secrets entry used for password authentication.
const sshPasswordSecret = "ssh_password"

// Transport is a remote.Transport holding connections that must be closed.
type Transport interface {
	remote.Transport
	Close() error
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadSettings resolves flags, environment variables and defaults.
	loadSettings = config.LoadSettings

	// loadEnvironment reads one environment from the services file.
	loadEnvironment = config.LoadFile

	// newTransport opens the SSH transport for env.
	newTransport = newSSHTransport

	// newObjectStore creates the client used for s3:// templates.
	newObjectStore = func(ctx context.Context, opts s3.Options) (templates.ObjectGetter, error) {
		return s3.NewClient(ctx, opts)
	}

	// newSecretResolver creates the resolver for secret references.
	newSecretResolver = func() *secrets.Resolver { return secrets.NewResolver() }

	// stdout receives progress and results, stderr receives logs.
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// session is everything one command needs to talk to an environment.
type session struct {
	settings  *config.Settings
	env       *config.Environment
	executor  *remote.Executor
	drivers   orchestration.DriverFactory
	metrics   *orchestration.Metrics
	transport Transport
}

// openSession loads settings and configuration and connects the pieces. The
// returned context carries the run's logger.
func openSession(ctx context.Context, flags *pflag.FlagSet) (context.Context, *session, error) {
	settings, err := loadSettings(flags)
	if err != nil {
		return ctx, nil, err
	}

	log := newLogger(settings.Verbosity).WithValues("run", uuid.NewString())
	ctx = logr.NewContext(ctx, log)

	env, err := loadEnvironment(settings.ConfigPath, settings.Environment)
	if err != nil {
		return ctx, nil, err
	}
	log.V(1).Info("loaded configuration", "path", settings.ConfigPath, "environment", env.Name, "services", len(env.Services))

	resolver := newSecretResolver()

	objects, err := objectStore(ctx, env, resolver)
	if err != nil {
		return ctx, nil, err
	}

	transport, err := newTransport(ctx, env, resolver, log)
	if err != nil {
		return ctx, nil, fmt.Errorf("failed to set up ssh: %w", err)
	}

	executor := remote.NewExecutor(transport,
		remote.Defaults{User: env.User, Port: env.SSHPort},
		remote.WithParallelism(settings.Parallel),
	)

	return ctx, &session{
		settings: settings,
		env:      env,
		executor: executor,
		drivers: orchestration.NewDriverFactory(services.Deps{
			Executor:     executor,
			Secrets:      resolver,
			SecretValues: env.Secrets,
			Templates:    templates.NewLoader(objects),
		}),
		metrics:   orchestration.NewMetrics(),
		transport: transport,
	}, nil
}

func (s *session) installer() *orchestration.Installer {
	return orchestration.NewInstaller(s.env, s.drivers, s.metrics)
}

func (s *session) checker() *orchestration.HealthChecker {
	return orchestration.NewHealthChecker(s.env, s.drivers, s.executor, s.metrics)
}

// close writes the metrics file, if one was requested, and closes the
// transport.
func (s *session) close() error {
	var errs []error
	if s.settings.MetricsFile != "" {
		if err := s.metrics.WriteMetrics(s.settings.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	if err := s.transport.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// withSession runs fn against a freshly opened session and always closes it.
func withSession(ctx context.Context, flags *pflag.FlagSet, fn func(ctx context.Context, s *session) error) error {
	ctx, s, err := openSession(ctx, flags)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); cerr != nil {
			logr.FromContextOrDiscard(ctx).Error(cerr, "failed to close session")
		}
	}()
	return fn(ctx, s)
}

// newLogger writes funcr lines to stderr. verbosity 1 adds every remote
// command.
func newLogger(verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}

func newSSHTransport(ctx context.Context, env *config.Environment, resolver *secrets.Resolver, log logr.Logger) (Transport, error) {
	timeouts := config.LoadTimeouts()
	cfg := &ssh.Config{
		AuthMethods:    env.SSHAuthMethods,
		UseAgent:       env.SSHAgentEnabled(),
		ForwardAgent:   env.ForwardAgentEnabled(),
		DialTimeout:    timeouts.SSHDial,
		CommandTimeout: timeouts.Command,
		MaxRetries:     timeouts.SSHMaxRetries,
		RetryDelay:     timeouts.SSHRetryDelay,
		Logger:         log.WithName("ssh"),
	}

	if env.HasAuthMethod(config.AuthPublicKey) {
		key, err := ssh.ReadPrivateKey(env.SSHKey)
		if err != nil {
			return nil, err
		}
		cfg.PrivateKey = key
	}
	if env.HasAuthMethod(config.AuthPassword) {
		password, err := resolver.ResolveKey(ctx, env.Secrets, sshPasswordSecret)
		if err != nil {
			return nil, err
		}
		cfg.Password = password
	}

	return ssh.NewClient(cfg)
}

// objectStore returns nil when object_storage is not configured.
func objectStore(ctx context.Context, env *config.Environment, resolver *secrets.Resolver) (templates.ObjectGetter, error) {
	storage := env.ObjectStorage
	if !storage.Configured() {
		return nil, nil
	}

	accessKey, err := resolver.Resolve(ctx, storage.AccessKey)
	if err != nil {
		return nil, fmt.Errorf("object_storage access_key: %w", err)
	}
	secretKey, err := resolver.Resolve(ctx, storage.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("object_storage secret_key: %w", err)
	}

	store, err := newObjectStore(ctx, s3.Options{
		Endpoint:  storage.Endpoint,
		Region:    storage.Region,
		AccessKey: accessKey,
		SecretKey: secretKey,
		PathStyle: storage.PathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return store, nil
}
