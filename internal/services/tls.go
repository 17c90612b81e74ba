package services

import (
	"context"
	"strings"

	"github.com/go-logr/logr"

	"github.com/imamik/boringsvc/internal/remote"
)

type certPair struct {
	cert string
	key  string
}

// combined is the certificate followed by its key.
func (p certPair) combined() []byte {
	return []byte(strings.TrimRight(p.cert, "\n") + "\n" + strings.TrimRight(p.key, "\n") + "\n")
}

// certificate resolves ssl_cert and ssl_key. When either is missing a
// self-signed certificate for the current host is generated instead.
func (b *base) certificate(ctx context.Context) (certPair, error) {
	cert, err := b.secret(ctx, b.svc.SSLCert)
	if err != nil {
		return certPair{}, err
	}
	key, err := b.secret(ctx, b.svc.SSLKey)
	if err != nil {
		return certPair{}, err
	}
	if cert != "" && key != "" {
		return certPair{cert: cert, key: key}, nil
	}

	host := remote.CurrentHost(ctx).Host
	logr.FromContextOrDiscard(ctx).Info("TLS enabled but no certificate provided, using self-signed", "service", b.svc.Name, "cn", host)

	generated, err := b.deps.Certificates(host)
	if err != nil {
		return certPair{}, err
	}
	return certPair{cert: string(generated.CertPEM), key: string(generated.KeyPEM)}, nil
}
