package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/boringsvc/internal/config"
	"github.com/imamik/boringsvc/internal/remote"
)

const (
	haproxyConfigPath = "/etc/haproxy/haproxy.cfg"
	haproxySSLDir     = "/etc/haproxy/ssl"
	haproxyCertPath   = haproxySSLDir + "/certificate.pem"
)

// LoadBalancerParams configure haproxy.
type LoadBalancerParams struct {
	Port      int
	HTTPSPort int
	StatsPort int

	Balance         string
	TimeoutConnect  int
	TimeoutClient   int
	TimeoutServer   int
	HealthCheckPath string

	TLS        bool
	CertPath   string
	SSLCiphers string
	SSLOptions string

	Backends []config.Backend
}

// LoadBalancerParamsFrom applies haproxy defaults to svc.
func LoadBalancerParamsFrom(svc config.Service) LoadBalancerParams {
	return LoadBalancerParams{
		Port:            orDefault(svc.Port, 80),
		HTTPSPort:       orDefault(svc.HTTPSPort, 443),
		StatsPort:       orDefault(svc.StatsPort, 8404),
		Balance:         paramString(svc.CustomParams, "balance", "roundrobin"),
		TimeoutConnect:  paramInt(svc.CustomParams, "timeout_connect", 5000),
		TimeoutClient:   paramInt(svc.CustomParams, "timeout_client", 50000),
		TimeoutServer:   paramInt(svc.CustomParams, "timeout_server", 50000),
		HealthCheckPath: paramString(svc.CustomParams, "health_check_path", "/health"),
		TLS:             loadBalancerTLS(svc),
		CertPath:        haproxyCertPath,
		SSLCiphers:      paramString(svc.CustomParams, "ssl_ciphers", "ECDHE+AESGCM:ECDHE+AES256:!aNULL:!MD5:!DSS"),
		SSLOptions:      paramString(svc.CustomParams, "ssl_options", "no-sslv3 no-tlsv10 no-tlsv11"),
		Backends:        svc.Backends,
	}
}

func loadBalancerTLS(svc config.Service) bool {
	return svc.SSL || svc.SSLCert != ""
}

// RenderLoadBalancerConfig renders /etc/haproxy/haproxy.cfg. Backends become
// "server webK host:port check" lines numbered from 1 in order.
func RenderLoadBalancerConfig(p LoadBalancerParams) string {
	var b strings.Builder

	b.WriteString(`global
    log /dev/log local0
    log /dev/log local1 notice
    chroot /var/lib/haproxy
    stats socket /run/haproxy/admin.sock mode 660 level admin
    stats timeout 30s
    user haproxy
    group haproxy
    daemon
`)
	if p.TLS {
		fmt.Fprintf(&b, "    ssl-default-bind-ciphers %s\n", p.SSLCiphers)
		fmt.Fprintf(&b, "    ssl-default-bind-options %s\n", p.SSLOptions)
	}

	fmt.Fprintf(&b, `
defaults
    log     global
    mode    http
    option  httplog
    option  dontlognull
    timeout connect %d
    timeout client  %d
    timeout server  %d
    errorfile 400 /etc/haproxy/errors/400.http
    errorfile 403 /etc/haproxy/errors/403.http
    errorfile 408 /etc/haproxy/errors/408.http
    errorfile 500 /etc/haproxy/errors/500.http
    errorfile 502 /etc/haproxy/errors/502.http
    errorfile 503 /etc/haproxy/errors/503.http
    errorfile 504 /etc/haproxy/errors/504.http
`, p.TimeoutConnect, p.TimeoutClient, p.TimeoutServer)

	if p.TLS {
		fmt.Fprintf(&b, `
frontend https_front
    bind *:%d ssl crt %s
    http-request redirect scheme https code 301 unless { ssl_fc }
    default_backend web_servers

frontend http_front
    bind *:%d
    redirect scheme https code 301
`, p.HTTPSPort, p.CertPath, p.Port)
	} else {
		fmt.Fprintf(&b, `
frontend http_front
    bind *:%d
    default_backend web_servers
`, p.Port)
	}

	fmt.Fprintf(&b, `
backend web_servers
    balance %s
    option httpchk GET %s
`, p.Balance, p.HealthCheckPath)
	for i, backend := range p.Backends {
		fmt.Fprintf(&b, "    server web%d %s:%d check\n", i+1, backend.Host, orDefault(backend.Port, config.DefaultBackendPort))
	}

	fmt.Fprintf(&b, `
frontend stats
    bind *:%d
    stats enable
    stats uri /
    stats refresh 10s
`, p.StatsPort)

	return b.String()
}

type loadBalancer struct {
	*base
}

func newLoadBalancer(svc config.Service, deps Deps) *loadBalancer {
	return &loadBalancer{base: &base{
		svc:  svc,
		deps: deps,
		kind: LoadBalancer,
		pkg:  "haproxy",
		unit: "haproxy",
		conf: configFile{path: haproxyConfigPath, owner: "root:root", mode: "644"},
	}}
}

func (d *loadBalancer) Install(ctx context.Context) error {
	h := hooks{
		render: func(context.Context) (string, error) {
			return RenderLoadBalancerConfig(LoadBalancerParamsFrom(d.svc)), nil
		},
		afterConfig: d.validate,
	}
	if loadBalancerTLS(d.svc) {
		h.beforeConfig = d.setupTLS
	}
	return d.install(ctx, h)
}

// setupTLS installs the combined certificate haproxy binds with.
func (d *loadBalancer) setupTLS(ctx context.Context) error {
	if err := remote.Execute(ctx, "sudo", "mkdir", "-p", haproxySSLDir); err != nil {
		return err
	}
	if err := remote.Execute(ctx, "sudo", "chmod", "750", haproxySSLDir); err != nil {
		return err
	}

	pair, err := d.certificate(ctx)
	if err != nil {
		return err
	}
	return remote.UploadFile(ctx, pair.combined(), haproxyCertPath, "haproxy:haproxy", "600")
}

func (d *loadBalancer) validate(ctx context.Context) error {
	ok, err := remote.Test(ctx, "sudo", "haproxy", "-c", "-f", haproxyConfigPath)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: haproxy rejected %s on %s", ErrConfigValidationFailed, haproxyConfigPath, remote.CurrentHost(ctx))
	}
	return nil
}
