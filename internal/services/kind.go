package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownService is returned for a service name or type no driver handles.
var ErrUnknownService = errors.New("unknown service")

// Kind identifies a driver.
type Kind int

const (
	CacheServer Kind = iota + 1
	KVStore
	LoadBalancer
	ReverseProxy
)

// Kinds lists every supported kind.
var Kinds = []Kind{CacheServer, KVStore, LoadBalancer, ReverseProxy}

var kindAliases = map[string]Kind{
	"memcached":    CacheServer,
	"cache-server": CacheServer,
	"cache":        CacheServer,

	"redis":    KVStore,
	"kv-store": KVStore,
	"kvstore":  KVStore,

	"haproxy":       LoadBalancer,
	"load-balancer": LoadBalancer,
	"loadbalancer":  LoadBalancer,

	"nginx":         ReverseProxy,
	"reverse-proxy": ReverseProxy,
	"proxy":         ReverseProxy,
}

// ParseKind maps a service name or type to a Kind, ignoring case.
func ParseKind(name string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownService, name)
}

func (k Kind) String() string {
	switch k {
	case CacheServer:
		return "cache-server"
	case KVStore:
		return "kv-store"
	case LoadBalancer:
		return "load-balancer"
	case ReverseProxy:
		return "reverse-proxy"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Product returns the software implementing the kind.
func (k Kind) Product() string {
	switch k {
	case CacheServer:
		return "Memcached"
	case KVStore:
		return "Redis"
	case LoadBalancer:
		return "HAProxy"
	case ReverseProxy:
		return "Nginx"
	default:
		return k.String()
	}
}
