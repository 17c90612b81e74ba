package config

import (
	"strings"

	"github.com/imamik/boringsvc/internal/util/ptr"
)

const (
	// DefaultUser is the SSH user when neither the environment nor a host entry sets one.
	DefaultUser = "ubuntu"
	// DefaultSSHKey is the private key used when ssh_key is not configured.
	DefaultSSHKey = "~/.ssh/id_rsa"
	// DefaultSSHPort is the SSH port when neither the environment nor a host entry sets one.
	DefaultSSHPort = 22
	// DefaultBackendPort is the application port assumed for backends without one.
	DefaultBackendPort = 3000

	// AuthPublicKey authenticates with the configured private key.
	AuthPublicKey = "publickey"
	// AuthPassword authenticates with the ssh_password secret.
	AuthPassword = "password"
	// AuthAgent authenticates through SSH_AUTH_SOCK.
	AuthAgent = "agent"
)

// Environment is one environment's parsed configuration.
type Environment struct {
	// Name is the top-level key the environment was loaded from.
	Name string `mapstructure:"-"`

	User           string   `mapstructure:"user"`
	SSHKey         string   `mapstructure:"ssh_key"`
	SSHPort        int      `mapstructure:"ssh_port" validate:"omitempty,min=1,max=65535"`
	ForwardAgent   *bool    `mapstructure:"forward_agent"`
	UseSSHAgent    *bool    `mapstructure:"use_ssh_agent"`
	SSHAuthMethods []string `mapstructure:"ssh_auth_methods" validate:"dive,oneof=publickey password agent"`

	// Secrets maps names to secret references ("literal", "$VAR", "$(cmd)").
	Secrets map[string]string `mapstructure:"secrets"`

	// ObjectStorage configures access to s3:// custom config templates.
	ObjectStorage ObjectStorage `mapstructure:"object_storage"`

	Services []Service `mapstructure:"services" validate:"dive"`
}

// ObjectStorage holds S3-compatible endpoint settings. Keys are secret
// references.
type ObjectStorage struct {
	Endpoint  string `mapstructure:"endpoint" validate:"omitempty,url"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PathStyle bool   `mapstructure:"path_style"`
}

// Configured reports whether an endpoint was set.
func (o ObjectStorage) Configured() bool {
	return o.Endpoint != ""
}

// Service is one configured infrastructure service instance.
type Service struct {
	Name string `mapstructure:"name" validate:"required"`
	// Type selects the driver; defaults to Name so "redis" needs no type.
	Type    string `mapstructure:"type"`
	Enabled *bool  `mapstructure:"enabled"`

	Host  *HostTarget  `mapstructure:"host" validate:"omitempty"`
	Hosts []HostTarget `mapstructure:"hosts" validate:"dive"`

	Port      int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	HTTPSPort int `mapstructure:"https_port" validate:"omitempty,min=1,max=65535"`
	StatsPort int `mapstructure:"stats_port" validate:"omitempty,min=1,max=65535"`
	MemoryMB  int `mapstructure:"memory_mb" validate:"omitempty,min=1"`

	Backends     []Backend      `mapstructure:"backends" validate:"dive"`
	CustomParams map[string]any `mapstructure:"custom_params"`

	SSL     bool   `mapstructure:"ssl"`
	SSLCert string `mapstructure:"ssl_cert"`
	SSLKey  string `mapstructure:"ssl_key"`

	CustomConfigTemplate string `mapstructure:"custom_config_template"`
}

// IsEnabled reports whether the service is enabled. An absent flag means enabled.
func (s *Service) IsEnabled() bool {
	return ptr.Deref(s.Enabled, true)
}

// DriverType returns the configured type, falling back to the service name.
func (s *Service) DriverType() string {
	if s.Type != "" {
		return s.Type
	}
	return s.Name
}

// Targets returns the hosts the service runs on: Hosts if set, otherwise the
// single Host, otherwise nothing.
func (s *Service) Targets() []HostTarget {
	if len(s.Hosts) > 0 {
		return s.Hosts
	}
	if s.Host != nil {
		return []HostTarget{*s.Host}
	}
	return nil
}

// HostTarget is a host entry, written either as a bare string
// ("10.0.0.5", "deploy@10.0.0.5") or as a record.
type HostTarget struct {
	Host  string `mapstructure:"host"`
	User  string `mapstructure:"user"`
	Label string `mapstructure:"label"`
	Port  int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// Backend is an upstream application server for the load balancer and proxy.
type Backend struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// Service returns the service with the given name (exact match), or nil.
func (e *Environment) Service(name string) *Service {
	for i := range e.Services {
		if e.Services[i].Name == name {
			return &e.Services[i]
		}
	}
	return nil
}

// ServiceEnabled reports whether name is configured and enabled.
func (e *Environment) ServiceEnabled(name string) bool {
	svc := e.Service(name)
	return svc != nil && svc.IsEnabled()
}

// EnabledServices returns enabled services in configuration order.
func (e *Environment) EnabledServices() []Service {
	var out []Service
	for _, svc := range e.Services {
		if svc.IsEnabled() {
			out = append(out, svc)
		}
	}
	return out
}

// ForwardAgentEnabled defaults to true.
func (e *Environment) ForwardAgentEnabled() bool {
	return ptr.Deref(e.ForwardAgent, true)
}

// SSHAgentEnabled defaults to false.
func (e *Environment) SSHAgentEnabled() bool {
	return ptr.Deref(e.UseSSHAgent, false)
}

// HasAuthMethod reports whether method is listed in ssh_auth_methods.
func (e *Environment) HasAuthMethod(method string) bool {
	for _, m := range e.SSHAuthMethods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
