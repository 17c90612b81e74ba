package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/boringsvc/internal/config"
)

// CacheServerParams configure memcached.
type CacheServerParams struct {
	ListenAddress  string
	Port           int
	MemoryMB       int
	MaxConnections int
	// MaxItemSize is passed to -I when set (for example "2m").
	MaxItemSize string
	// Verbosity repeats -v when positive.
	Verbosity int
}

// CacheServerParamsFrom applies memcached defaults to svc.
func CacheServerParamsFrom(svc config.Service) CacheServerParams {
	return CacheServerParams{
		ListenAddress:  paramString(svc.CustomParams, "listen_address", "0.0.0.0"),
		Port:           orDefault(svc.Port, 11211),
		MemoryMB:       orDefault(svc.MemoryMB, 64),
		MaxConnections: paramInt(svc.CustomParams, "max_connections", 1024),
		MaxItemSize:    paramString(svc.CustomParams, "max_item_size", ""),
		Verbosity:      paramInt(svc.CustomParams, "verbosity", 0),
	}
}

// RenderCacheServerConfig renders /etc/memcached.conf.
func RenderCacheServerConfig(p CacheServerParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-l %s\n", p.ListenAddress)
	fmt.Fprintf(&b, "-p %d\n", p.Port)
	fmt.Fprintf(&b, "-m %d\n", p.MemoryMB)
	fmt.Fprintf(&b, "-c %d\n", p.MaxConnections)
	if p.MaxItemSize != "" {
		fmt.Fprintf(&b, "-I %s\n", p.MaxItemSize)
	}
	if p.Verbosity > 0 {
		b.WriteString(strings.Repeat("-v", p.Verbosity) + "\n")
	}
	return b.String()
}

type cacheServer struct {
	*base
}

func newCacheServer(svc config.Service, deps Deps) *cacheServer {
	return &cacheServer{base: &base{
		svc:  svc,
		deps: deps,
		kind: CacheServer,
		pkg:  "memcached",
		unit: "memcached",
		conf: configFile{path: "/etc/memcached.conf", owner: "root:root", mode: "644"},
	}}
}

func (d *cacheServer) Install(ctx context.Context) error {
	return d.install(ctx, hooks{
		render: func(context.Context) (string, error) {
			return RenderCacheServerConfig(CacheServerParamsFrom(d.svc)), nil
		},
	})
}
