package dialer

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/url"

	"github.com/frankli0324/pollhttp/internal/http"
	"github.com/frankli0324/pollhttp/internal/netpool"
)

var defaultPool = netpool.NewGroup(16, 8)

var schemes = map[string]string{
	"http": "80", "https": "443", "socks": "1080",
}

var zeroDialer net.Dialer

func hostPort(u *url.URL) (addr, port string) {
	addr, port = u.Host, schemes[u.Scheme]
	if add, prt, err := net.SplitHostPort(addr); err == nil {
		addr, port = add, prt
	}
	return
}

// Dial checks out a pooled connection to the request's origin, dialing (and
// handshaking TLS for https) when no idle one is available.
func (d *CoreDialer) Dial(ctx context.Context, r *http.PreparedRequest) (io.ReadWriteCloser, error) {
	addr, port := hostPort(r.U)
	hp := net.JoinHostPort(addr, port)
	pool := d.ConnPool
	if pool == nil {
		pool = defaultPool
	}
	return pool.Connect(ctx, r.U.Scheme+"://"+hp, func(ctx context.Context) (conn net.Conn, err error) {
		conn, err = d.tryDialProxy(ctx, r)
		if err != nil {
			return nil, err
		}
		if conn == nil {
			conn, err = d.DialContext(ctx, "tcp", hp)
		}
		if err != nil {
			return nil, err
		}
		if r.U.Scheme == "https" {
			config := d.TLSConfig.Clone()
			if config == nil {
				config = &tls.Config{}
			}
			config.ServerName = r.U.Hostname()
			config.NextProtos = []string{"http/1.1"} // h2 over TLS is not spoken here
			c := tls.Client(conn, config)
			if err := c.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			conn = c
		}
		return conn, nil
	})
}

// DialContext opens an unpooled connection to address honoring [ResolveConfig].
// network is only used to tell tcp from others, the address family comes from
// ResolveConfig.Network.
func (d *CoreDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	rc := d.resolveConfig()
	addr, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	if network == "tcp" {
		network = rc.tcpNetwork()
	}
	if static, ok := rc.StaticHosts[addr]; ok {
		address = net.JoinHostPort(static, port)
	}
	if rc.CustomDNSServer == "" {
		return zeroDialer.DialContext(ctx, network, address)
	}
	return resolvingDialer.DialContext(withDNSServer(ctx, rc.CustomDNSServer), network, address)
}
