package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "services.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile_Fixture(t *testing.T) {
	t.Parallel()

	env, err := LoadFile(filepath.Join("testdata", "services.yml"), "production")
	require.NoError(t, err)

	assert.Equal(t, "production", env.Name)
	assert.Equal(t, "deploy", env.User)
	assert.Equal(t, "~/.ssh/id_ed25519", env.SSHKey)
	assert.Equal(t, DefaultSSHPort, env.SSHPort)
	assert.Equal(t, "$REDIS_PASSWORD", env.Secrets["redis_password"])
	require.Len(t, env.Services, 4)

	memcached := env.Service("memcached")
	require.NotNil(t, memcached)
	assert.Equal(t, []HostTarget{{Host: "10.0.0.10"}}, memcached.Targets())
	assert.Equal(t, 512, memcached.MemoryMB)

	redis := env.Service("redis")
	require.NotNil(t, redis)
	assert.Equal(t, []HostTarget{
		{Host: "10.0.0.11"},
		{Host: "10.0.0.12", User: "admin", Label: "replica"},
	}, redis.Targets())

	haproxy := env.Service("haproxy")
	require.NotNil(t, haproxy)
	assert.True(t, haproxy.SSL)
	assert.Equal(t, []Backend{
		{Host: "10.0.1.1", Port: 3000},
		{Host: "10.0.1.2", Port: DefaultBackendPort},
		{Host: "10.0.1.3", Port: 8080},
	}, haproxy.Backends)

	nginx := env.Service("nginx")
	require.NotNil(t, nginx)
	assert.False(t, nginx.IsEnabled())
	assert.Equal(t, []HostTarget{{Host: "proxy.example.com", User: "deploy"}}, nginx.Targets())
}

func TestLoadFile_TypeOverride(t *testing.T) {
	t.Parallel()

	env, err := LoadFile(filepath.Join("testdata", "services.yml"), "staging")
	require.NoError(t, err)

	svc := env.Service("cache")
	require.NotNil(t, svc)
	assert.Equal(t, "memcached", svc.DriverType())
}

func TestLoadFile_Defaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
production:
  services:
    - name: redis
      host: 10.0.0.5
`)

	env, err := LoadFile(path, "production")
	require.NoError(t, err)

	assert.Equal(t, "ubuntu", env.User)
	assert.Equal(t, "~/.ssh/id_rsa", env.SSHKey)
	assert.True(t, env.ForwardAgentEnabled())
	assert.False(t, env.SSHAgentEnabled())
	assert.Equal(t, []string{"publickey"}, env.SSHAuthMethods)
	assert.NotNil(t, env.Secrets)
	assert.Empty(t, env.Secrets)
}

func TestLoadFile_ExplicitSSHOptions(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
production:
  forward_agent: false
  use_ssh_agent: true
  ssh_auth_methods: [Agent, publickey]
  services: []
`)

	env, err := LoadFile(path, "production")
	require.NoError(t, err)

	assert.False(t, env.ForwardAgentEnabled())
	assert.True(t, env.SSHAgentEnabled())
	assert.Equal(t, []string{"agent", "publickey"}, env.SSHAuthMethods)
	assert.True(t, env.HasAuthMethod(AuthAgent))
	assert.False(t, env.HasAuthMethod(AuthPassword))
}

func TestLoadFile_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml"), "production")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
	assert.Contains(t, err.Error(), "nope.yml")
}

func TestLoadFile_MissingEnvironment(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join("testdata", "services.yml"), "development")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEnvironmentNotFound)
	assert.Contains(t, err.Error(), `"development"`)
	assert.Contains(t, err.Error(), "production, staging")
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			yaml:    "production: [",
			wantErr: "failed to unmarshal yaml",
		},
		{
			name: "duplicate service name",
			yaml: `
production:
  services:
    - name: redis
      host: a
    - name: redis
      host: b
`,
			wantErr: `duplicate service name "redis"`,
		},
		{
			name: "missing service name",
			yaml: `
production:
  services:
    - host: a
`,
			wantErr: "services[0].name is required",
		},
		{
			name: "host record without host",
			yaml: `
production:
  services:
    - name: redis
      hosts:
        - user: admin
`,
			wantErr: "host entry missing host field",
		},
		{
			name: "unknown auth method",
			yaml: `
production:
  ssh_auth_methods: [kerberos]
`,
			wantErr: "ssh_auth_methods[0] must be one of",
		},
		{
			name: "port out of range",
			yaml: `
production:
  services:
    - name: redis
      host: a
      port: 70000
`,
			wantErr: "services[0].port must be at most 65535",
		},
		{
			name: "invalid backend port",
			yaml: `
production:
  services:
    - name: haproxy
      host: a
      backends: ["web:http"]
`,
			wantErr: "invalid backend port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.yaml), "production")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_ServiceWithoutHostsIsAccepted(t *testing.T) {
	t.Parallel()

	env, err := Parse([]byte(`
production:
  services:
    - name: redis
`), "production")
	require.NoError(t, err)
	assert.Empty(t, env.Service("redis").Targets())
}
