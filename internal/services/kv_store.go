package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/boringsvc/internal/config"
)

// PasswordSecret is the secrets entry holding the redis password.
const PasswordSecret = "redis_password"

// KVStoreParams configure redis.
type KVStoreParams struct {
	Bind     string
	Port     int
	MemoryMB int
	// Password adds requirepass when non-empty.
	Password string
}

// KVStoreParamsFrom applies redis defaults to svc. The password is resolved
// separately because it may require running a command.
func KVStoreParamsFrom(svc config.Service) KVStoreParams {
	return KVStoreParams{
		Bind:     paramString(svc.CustomParams, "bind", "0.0.0.0"),
		Port:     orDefault(svc.Port, 6379),
		MemoryMB: orDefault(svc.MemoryMB, 256),
	}
}

// RenderKVStoreConfig renders /etc/redis/redis.conf.
func RenderKVStoreConfig(p KVStoreParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "bind %s\n", p.Bind)
	fmt.Fprintf(&b, "port %d\n", p.Port)
	fmt.Fprintf(&b, "maxmemory %dmb\n", p.MemoryMB)
	b.WriteString("maxmemory-policy allkeys-lru\n")
	b.WriteString("appendonly yes\n")
	b.WriteString("appendfsync everysec\n")
	if p.Password != "" {
		fmt.Fprintf(&b, "requirepass %s\n", p.Password)
	}
	return b.String()
}

type kvStore struct {
	*base
}

func newKVStore(svc config.Service, deps Deps) *kvStore {
	return &kvStore{base: &base{
		svc:  svc,
		deps: deps,
		kind: KVStore,
		pkg:  "redis-server",
		unit: "redis-server",
		conf: configFile{path: "/etc/redis/redis.conf", owner: "redis:redis", mode: "640"},
	}}
}

func (d *kvStore) Install(ctx context.Context) error {
	return d.install(ctx, hooks{render: d.render})
}

func (d *kvStore) render(ctx context.Context) (string, error) {
	p := KVStoreParamsFrom(d.svc)
	if _, ok := d.deps.SecretValues[PasswordSecret]; ok {
		password, err := d.deps.Secrets.ResolveKey(ctx, d.deps.SecretValues, PasswordSecret)
		if err != nil {
			return "", err
		}
		p.Password = password
	}
	return RenderKVStoreConfig(p), nil
}
