package dialer

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/url"

	"github.com/frankli0324/pollhttp/internal/http"
	"github.com/frankli0324/pollhttp/internal/transport"
)

type ProxyConfig struct {
	TLSConfig      *tls.Config // the [*tls.Config] to use with proxy, if nil, *[CoreDialer.TLSConfig] will be used
	ResolveLocally bool
	ResolveConfig  *ResolveConfig // overrides the resolver config for dialer for proxy
}

func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	return &ProxyConfig{
		TLSConfig:      c.TLSConfig.Clone(),
		ResolveLocally: c.ResolveLocally,
		ResolveConfig:  c.ResolveConfig.Clone(),
	}
}

// StaticProxy returns a GetProxy func that routes every request through proxy.
func StaticProxy(proxy string) func(context.Context, *http.Request) (string, error) {
	return func(context.Context, *http.Request) (string, error) { return proxy, nil }
}

var h1 = transport.HTTP1{}

// tryDialProxy returns a nil conn when r is not meant to go through a proxy.
func (d *CoreDialer) tryDialProxy(ctx context.Context, r *http.PreparedRequest) (net.Conn, error) {
	if d.GetProxy == nil {
		return nil, nil
	}
	proxy, err := d.GetProxy(ctx, r.Request)
	if err != nil || proxy == "" {
		return nil, err
	}
	proxyU, err := url.Parse(proxy)
	if err != nil {
		return nil, err
	}
	return d.DialContextOverProxy(ctx, r.U, proxyU)
}

// DialContextOverProxy opens a tunnel to remote through an HTTP CONNECT
// proxy. It may be reused when wrapping *[CoreDialer] into a custom [Dialer].
func (d *CoreDialer) DialContextOverProxy(ctx context.Context, remote, proxy *url.URL) (net.Conn, error) {
	if proxy.Scheme != "http" && proxy.Scheme != "https" {
		return nil, errors.New("unsupported proxy scheme: " + proxy.Scheme)
	}
	target, err := d.tunnelTarget(ctx, remote)
	if err != nil {
		return nil, err
	}
	conn, err := d.dialProxy(ctx, proxy)
	if err != nil {
		return nil, err
	}
	if err := connectTunnel(ctx, conn, remote.Host, target, proxy.User); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// tunnelTarget is the host:port asked of the proxy, resolved here when
// [ProxyConfig.ResolveLocally] is set.
func (d *CoreDialer) tunnelTarget(ctx context.Context, remote *url.URL) (string, error) {
	addr, port := hostPort(remote)
	pc := d.proxyConfig()
	if !pc.ResolveLocally {
		return net.JoinHostPort(addr, port), nil
	}
	cfg := pc.ResolveConfig.Merge(d.ResolveConfig)
	if static, ok := cfg.StaticHosts[addr]; ok {
		return net.JoinHostPort(static, port), nil
	}
	ips, err := d.lookup(ctx, cfg, addr)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(ips[rand.Intn(len(ips))].String(), port), nil
}

func (d *CoreDialer) dialProxy(ctx context.Context, proxy *url.URL) (net.Conn, error) {
	addr, port := hostPort(proxy)
	conn, err := zeroDialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, port))
	if err != nil || proxy.Scheme != "https" {
		return conn, err
	}
	cfg := d.proxyConfig().TLSConfig
	if cfg == nil {
		cfg = d.TLSConfig
	}
	cfg = cfg.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	cfg.ServerName = proxy.Hostname()
	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tc, nil
}

func connectTunnel(ctx context.Context, conn net.Conn, host, target string, user *url.Userinfo) error {
	req := &http.PreparedRequest{
		Request:       &http.Request{Method: "CONNECT"},
		Method:        "CONNECT",
		HeaderHost:    host,
		U:             &url.URL{Path: target},
		GetBody:       func() (io.ReadCloser, error) { return http.NoBody, nil },
		Header:        http.Header{},
		ContentLength: -1,
	}
	if auth := user.String(); auth != "" {
		req.Header.Set("Proxy-Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(auth)))
	}
	if err := h1.Write(ctx, conn, req); err != nil {
		return err
	}
	resp := &http.Response{}
	if err := h1.Read(ctx, conn, req, resp); err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("proxy refused CONNECT to %s: %s", target, resp.Status)
	}
	return nil
}
