package testing

import (
	"maps"

	"github.com/imamik/boringsvc/internal/config"
)

// EnvironmentBuilder provides a fluent interface for constructing test environments.
// Each method returns a new builder (immutable) for chaining.
type EnvironmentBuilder struct {
	env config.Environment
}

// NewEnvironmentBuilder creates a builder holding the loader's defaults.
func NewEnvironmentBuilder() *EnvironmentBuilder {
	return &EnvironmentBuilder{
		env: config.Environment{
			Name:           "test",
			User:           config.DefaultUser,
			SSHKey:         config.DefaultSSHKey,
			SSHPort:        config.DefaultSSHPort,
			SSHAuthMethods: []string{config.AuthPublicKey},
			Secrets:        map[string]string{},
		},
	}
}

// WithUser sets the default SSH user.
func (b *EnvironmentBuilder) WithUser(user string) *EnvironmentBuilder {
	newBuilder := b.clone()
	newBuilder.env.User = user
	return newBuilder
}

// WithSecret adds a secret reference.
func (b *EnvironmentBuilder) WithSecret(name, ref string) *EnvironmentBuilder {
	newBuilder := b.clone()
	newBuilder.env.Secrets[name] = ref
	return newBuilder
}

// WithService appends a service.
func (b *EnvironmentBuilder) WithService(svc config.Service) *EnvironmentBuilder {
	newBuilder := b.clone()
	newBuilder.env.Services = append(newBuilder.env.Services, svc)
	return newBuilder
}

// Build returns the constructed environment.
func (b *EnvironmentBuilder) Build() *config.Environment {
	env := b.clone().env
	return &env
}

// clone creates a deep copy of the builder for immutability.
func (b *EnvironmentBuilder) clone() *EnvironmentBuilder {
	newEnv := b.env
	newEnv.Secrets = make(map[string]string, len(b.env.Secrets))
	maps.Copy(newEnv.Secrets, b.env.Secrets)
	if b.env.SSHAuthMethods != nil {
		newEnv.SSHAuthMethods = append([]string(nil), b.env.SSHAuthMethods...)
	}
	if b.env.Services != nil {
		newEnv.Services = append([]config.Service(nil), b.env.Services...)
	}
	return &EnvironmentBuilder{env: newEnv}
}

// Host returns a single host target.
func Host(host string) *config.HostTarget {
	return &config.HostTarget{Host: host}
}

// Hosts returns host targets for the given hosts.
func Hosts(hosts ...string) []config.HostTarget {
	out := make([]config.HostTarget, len(hosts))
	for i, h := range hosts {
		out[i] = config.HostTarget{Host: h}
	}
	return out
}
