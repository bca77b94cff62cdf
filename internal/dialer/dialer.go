package dialer

import (
	"context"
	"crypto/tls"

	"github.com/frankli0324/pollhttp/internal/http"
	"github.com/frankli0324/pollhttp/internal/netpool"
)

// Dialers handle pretty much everything related to the actual connection,
// including setting a proxy for each request, setting resolvers, etc.
type Dialer = http.Dialer

type CoreDialer struct {
	ResolveConfig *ResolveConfig

	TLSConfig *tls.Config // the config to use

	ConnPool    *netpool.PoolGroup
	GetProxy    func(ctx context.Context, r *http.Request) (string, error)
	ProxyConfig *ProxyConfig
}

func NewCoreDialer() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: &ResolveConfig{},
		TLSConfig:     &tls.Config{NextProtos: []string{"http/1.1"}},
		ConnPool:      netpool.NewGroup(16, 8),
		ProxyConfig:   &ProxyConfig{},
	}
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: d.ResolveConfig.Clone(),
		TLSConfig:     d.TLSConfig.Clone(),
		ConnPool:      d.ConnPool.NewEmpty(),
		GetProxy:      d.GetProxy,
		ProxyConfig:   d.ProxyConfig.Clone(),
	}
}

func (d *CoreDialer) Unwrap() Dialer {
	return nil
}

func (d *CoreDialer) resolveConfig() *ResolveConfig {
	if d.ResolveConfig == nil {
		return &ResolveConfig{}
	}
	return d.ResolveConfig
}

func (d *CoreDialer) proxyConfig() *ProxyConfig {
	if d.ProxyConfig == nil {
		return &ProxyConfig{}
	}
	return d.ProxyConfig
}
