package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/boringsvc/internal/config"
	"github.com/imamik/boringsvc/internal/remote"
)

const (
	nginxSitePath = "/etc/nginx/sites-available/default"
	nginxSSLDir   = "/etc/nginx/ssl"
	nginxCertPath = nginxSSLDir + "/cert.pem"
	nginxKeyPath  = nginxSSLDir + "/key.pem"
)

// ReverseProxyParams configure nginx.
type ReverseProxyParams struct {
	Port      int
	HTTPSPort int
	TLS       bool
	Backends  []config.Backend
}

// ReverseProxyParamsFrom applies nginx defaults to svc.
func ReverseProxyParamsFrom(svc config.Service) ReverseProxyParams {
	return ReverseProxyParams{
		Port:      orDefault(svc.Port, 80),
		HTTPSPort: orDefault(svc.HTTPSPort, 443),
		TLS:       svc.SSL,
		Backends:  svc.Backends,
	}
}

const nginxProxyLocation = `    location / {
        proxy_pass http://backend;
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }
`

// RenderReverseProxyConfig renders the nginx default site: an upstream
// block, a plain server block and, with TLS, a second server block.
func RenderReverseProxyConfig(p ReverseProxyParams) string {
	var b strings.Builder

	b.WriteString("upstream backend {\n")
	for _, backend := range p.Backends {
		fmt.Fprintf(&b, "    server %s:%d;\n", backend.Host, orDefault(backend.Port, config.DefaultBackendPort))
	}
	b.WriteString("}\n")

	fmt.Fprintf(&b, `
server {
    listen %d;
    server_name _;

%s
    location /health {
        access_log off;
        return 200 "healthy\n";
        add_header Content-Type text/plain;
    }
}
`, p.Port, nginxProxyLocation)

	if p.TLS {
		fmt.Fprintf(&b, `
server {
    listen %d ssl http2;
    server_name _;

    ssl_certificate %s;
    ssl_certificate_key %s;

%s}
`, p.HTTPSPort, nginxCertPath, nginxKeyPath, nginxProxyLocation)
	}

	return b.String()
}

type reverseProxy struct {
	*base
}

func newReverseProxy(svc config.Service, deps Deps) *reverseProxy {
	return &reverseProxy{base: &base{
		svc:  svc,
		deps: deps,
		kind: ReverseProxy,
		pkg:  "nginx",
		unit: "nginx",
		conf: configFile{path: nginxSitePath, owner: "root:root", mode: "644"},
	}}
}

func (d *reverseProxy) Install(ctx context.Context) error {
	h := hooks{
		render: func(context.Context) (string, error) {
			return RenderReverseProxyConfig(ReverseProxyParamsFrom(d.svc)), nil
		},
	}
	if d.svc.SSL {
		h.beforeConfig = d.setupTLS
	}
	return d.install(ctx, h)
}

// setupTLS places the certificate and key the TLS server block refers to.
func (d *reverseProxy) setupTLS(ctx context.Context) error {
	if err := remote.Execute(ctx, "sudo", "mkdir", "-p", nginxSSLDir); err != nil {
		return err
	}

	pair, err := d.certificate(ctx)
	if err != nil {
		return err
	}
	if err := remote.UploadFile(ctx, []byte(pair.cert), nginxCertPath, "root:root", "600"); err != nil {
		return err
	}
	return remote.UploadFile(ctx, []byte(pair.key), nginxKeyPath, "root:root", "600")
}
