package internal

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	nethttp "net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/net/http2"

	"github.com/frankli0324/pollhttp/internal/dialer"
	"github.com/frankli0324/pollhttp/internal/http"
	"github.com/frankli0324/pollhttp/internal/transport"
)

type PreparedRequest = http.PreparedRequest

type Handler = func(ctx context.Context, req *PreparedRequest) (*http.Response, error)
type Middleware func(next Handler) Handler

// Protocol selects how requests are framed on the wire.
type Protocol int

const (
	// HTTP1 writes HTTP/1.1 messages over pooled connections, https included.
	HTTP1 Protocol = iota
	// H2C speaks cleartext HTTP/2 with prior knowledge, framed by golang.org/x/net/http2.
	H2C
)

func (p Protocol) String() string {
	if p == H2C {
		return "h2c"
	}
	return "http1"
}

var h1 = transport.HTTP1{}

// Client performs single request/response exchanges. The zero value uses a
// fresh [dialer.CoreDialer] and HTTP/1.1. Exchanges may run concurrently,
// configuration must happen before the first one.
type Client struct {
	middlewares []Middleware
	protocol    Protocol

	dialerMu sync.Mutex
	dialer   http.Dialer

	initOnce sync.Once
	h2       atomic.Pointer[http2.Transport]
}

// Use appends mw to the end of the chain. The first "Use"d mw is the outermost
// one and executes first
func (c *Client) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

// UseDialer replaces the dialer with the one returned by wrap, which receives
// the current dialer.
func (c *Client) UseDialer(wrap func(http.Dialer) http.Dialer) {
	c.dialerMu.Lock()
	defer c.dialerMu.Unlock()
	c.dialer = wrap(c.dialerLocked())
}

// UseCoreDialer is a shortcut for configuring the innermost *[dialer.CoreDialer].
func (c *Client) UseCoreDialer(wrap func(*dialer.CoreDialer) http.Dialer) {
	c.UseDialer(func(d http.Dialer) http.Dialer {
		for cd := d; cd != nil; cd = cd.Unwrap() {
			if core, ok := cd.(*dialer.CoreDialer); ok {
				return wrap(core)
			}
		}
		return wrap(dialer.NewCoreDialer())
	})
}

func (c *Client) SetProtocol(p Protocol) {
	c.protocol = p
}

func (c *Client) Protocol() Protocol {
	return c.protocol
}

// getDialer creates the default dialer on first use, once for all
// concurrent exchanges.
func (c *Client) getDialer() http.Dialer {
	c.dialerMu.Lock()
	defer c.dialerMu.Unlock()
	return c.dialerLocked()
}

func (c *Client) dialerLocked() http.Dialer {
	if c.dialer == nil {
		c.dialer = dialer.NewCoreDialer()
	}
	return c.dialer
}

// CtxDo performs req. The response body must be closed, which hands the
// connection back to the pool when it was fully read.
func (c *Client) CtxDo(ctx context.Context, req *http.Request) (*http.Response, error) {
	pr, err := req.Prepare()
	if err != nil {
		return nil, err
	}
	next := c.roundTripH1
	if c.protocol == H2C {
		next = c.roundTripH2C
	}
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		next = c.middlewares[i](next)
	}
	return next(ctx, pr)
}

func discard(conn io.ReadWriteCloser) {
	if d, ok := conn.(interface{ Discard() error }); ok {
		d.Discard()
		return
	}
	conn.Close()
}

func (c *Client) roundTripH1(ctx context.Context, pr *PreparedRequest) (*http.Response, error) {
	conn, err := c.getDialer().Dial(ctx, pr)
	if err != nil {
		return nil, err
	}
	// unblocks reads and writes stuck on a connection once ctx is gone
	stop := context.AfterFunc(ctx, func() { discard(conn) })
	if err := h1.Write(ctx, conn, pr); err != nil {
		stop()
		discard(conn)
		return nil, contextErr(ctx, err)
	}
	resp := &http.Response{}
	if err := h1.Read(ctx, conn, pr, resp); err != nil {
		stop()
		discard(conn)
		return nil, contextErr(ctx, err)
	}
	resp.Body = &connBody{ReadCloser: resp.Body, conn: conn, reuse: !resp.Close, stop: stop}
	return resp, nil
}

func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// connBody returns the connection to its pool once the body hit EOF, and
// closes it otherwise.
type connBody struct {
	io.ReadCloser
	conn   io.ReadWriteCloser
	reuse  bool
	eof    bool
	stop   func() bool
	closed atomic.Bool
}

func (b *connBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err == io.EOF {
		b.eof = true
	}
	return n, err
}

func (b *connBody) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	err := b.ReadCloser.Close()
	if !b.stop() {
		return err // ctx already tore the connection down
	}
	if b.eof && b.reuse {
		b.conn.Close()
	} else {
		discard(b.conn)
	}
	return err
}

func (c *Client) h2Transport() *http2.Transport {
	c.initOnce.Do(func() {
		c.h2.Store(&http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return c.dialRaw(ctx, network, addr)
			},
		})
	})
	return c.h2.Load()
}

func (c *Client) dialRaw(ctx context.Context, network, addr string) (net.Conn, error) {
	for d := c.getDialer(); d != nil; d = d.Unwrap() {
		if raw, ok := d.(interface {
			DialContext(ctx context.Context, network, address string) (net.Conn, error)
		}); ok {
			return raw.DialContext(ctx, network, addr)
		}
	}
	var d net.Dialer
	return d.DialContext(ctx, network, addr)
}

func (c *Client) roundTripH2C(ctx context.Context, pr *PreparedRequest) (*http.Response, error) {
	body, err := pr.GetBody()
	if err != nil {
		return nil, err
	}
	u := *pr.U
	u.Scheme = "http"
	req, err := nethttp.NewRequestWithContext(ctx, pr.Method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if body != http.NoBody {
		req.Body = body
		req.ContentLength = pr.ContentLength
	}
	req.Host = pr.HeaderHost
	req.Header = pr.Header.Clone()
	resp, err := c.h2Transport().RoundTrip(req)
	if err != nil {
		return nil, contextErr(ctx, err)
	}
	return &http.Response{
		Proto:         resp.Proto,
		Status:        resp.Status,
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}

// CloseIdle closes idle connections held for this client.
func (c *Client) CloseIdle() {
	if core, ok := c.getDialer().(*dialer.CoreDialer); ok && core.ConnPool != nil {
		core.ConnPool.CloseIdle()
	}
	if h2 := c.h2.Load(); h2 != nil {
		h2.CloseIdleConnections()
	}
}
