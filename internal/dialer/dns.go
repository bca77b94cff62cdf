package dialer

import (
	"context"
	"net"
)

// ResolveConfig controls how host names are turned into addresses.
type ResolveConfig struct {
	CustomDNSServer string            // host:port of the DNS server to ask instead of the system one
	Network         string            // one of "ip4", "ip6", default is "ip"
	StaticHosts     map[string]string // resembles /etc/hosts
}

func (c *ResolveConfig) Clone() *ResolveConfig {
	if c == nil {
		return nil
	}
	cp := *c
	cp.StaticHosts = make(map[string]string, len(c.StaticHosts))
	for host, addr := range c.StaticHosts {
		cp.StaticHosts[host] = addr
	}
	return &cp
}

// Merge returns a copy of c with the fields left empty taken from fallback.
// Static hosts in c win over the ones in fallback.
func (c *ResolveConfig) Merge(fallback *ResolveConfig) *ResolveConfig {
	if c == nil {
		return fallback.Clone()
	}
	m := c.Clone()
	if fallback == nil {
		return m
	}
	if m.CustomDNSServer == "" {
		m.CustomDNSServer = fallback.CustomDNSServer
	}
	if m.Network == "" {
		m.Network = fallback.Network
	}
	for host, addr := range fallback.StaticHosts {
		if _, ok := m.StaticHosts[host]; !ok {
			m.StaticHosts[host] = addr
		}
	}
	return m
}

func (c *ResolveConfig) ipNetwork() string {
	if c == nil || c.Network == "" {
		return "ip"
	}
	return c.Network
}

func (c *ResolveConfig) tcpNetwork() string {
	switch c.ipNetwork() {
	case "ip4":
		return "tcp4"
	case "ip6":
		return "tcp6"
	}
	return "tcp"
}

type dnsServerKey struct{}

// resolver sends its queries to the server stored in the lookup context, or
// to the system configured one.
var resolver = &net.Resolver{
	PreferGo: true,
	Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		if server, _ := ctx.Value(dnsServerKey{}).(string); server != "" {
			address = server
		}
		return zeroDialer.DialContext(ctx, network, address)
	},
}

var resolvingDialer = net.Dialer{Resolver: resolver}

func withDNSServer(ctx context.Context, server string) context.Context {
	if server == "" {
		return ctx
	}
	return context.WithValue(ctx, dnsServerKey{}, server)
}

func (d *CoreDialer) lookup(ctx context.Context, cfg *ResolveConfig, host string) ([]net.IP, error) {
	server := ""
	if cfg != nil {
		server = cfg.CustomDNSServer
	}
	return d.LookupIPServer(ctx, cfg.ipNetwork(), host, server)
}

// LookupIPServer resolves host with the DNS server dns, the system one when
// empty. It may be reused when wrapping *[CoreDialer] into a custom [Dialer].
func (d *CoreDialer) LookupIPServer(ctx context.Context, network, host, dns string) ([]net.IP, error) {
	return resolver.LookupIP(withDNSServer(ctx, dns), network, host)
}
