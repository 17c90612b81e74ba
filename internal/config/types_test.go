package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imamik/boringsvc/internal/util/ptr"
)

func TestEnvironment_ServiceLookup(t *testing.T) {
	t.Parallel()

	env := &Environment{Services: []Service{
		{Name: "redis", Host: &HostTarget{Host: "10.0.0.1"}},
		{Name: "memcached", Enabled: ptr.Bool(false)},
		{Name: "nginx", Enabled: ptr.Bool(true)},
	}}

	assert.Equal(t, "redis", env.Service("redis").Name)
	assert.Nil(t, env.Service("haproxy"))

	assert.True(t, env.ServiceEnabled("redis"))
	assert.False(t, env.ServiceEnabled("memcached"))
	assert.False(t, env.ServiceEnabled("haproxy"))

	enabled := env.EnabledServices()
	assert.Len(t, enabled, 2)
	assert.Equal(t, "redis", enabled[0].Name)
	assert.Equal(t, "nginx", enabled[1].Name)
}

func TestService_Targets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		svc  Service
		want []HostTarget
	}{
		{name: "none", svc: Service{}, want: nil},
		{name: "single host", svc: Service{Host: &HostTarget{Host: "a"}}, want: []HostTarget{{Host: "a"}}},
		{
			name: "hosts win over host",
			svc:  Service{Host: &HostTarget{Host: "a"}, Hosts: []HostTarget{{Host: "b"}, {Host: "c"}}},
			want: []HostTarget{{Host: "b"}, {Host: "c"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.svc.Targets())
		})
	}
}

func TestService_DriverType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "redis", (&Service{Name: "redis"}).DriverType())
	assert.Equal(t, "memcached", (&Service{Name: "sessions", Type: "memcached"}).DriverType())
}

func TestObjectStorage_Configured(t *testing.T) {
	t.Parallel()

	assert.False(t, ObjectStorage{}.Configured())
	assert.True(t, ObjectStorage{Endpoint: "https://fsn1.your-objectstorage.com"}.Configured())
}
