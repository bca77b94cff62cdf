package netpool

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Conn is a connection handed out by a [Pool]. Close returns it to the pool,
// Discard closes the underlying connection for good.
type Conn interface {
	io.ReadWriteCloser
	Raw() net.Conn
	Discard() error
}

type DialFunc func(ctx context.Context) (net.Conn, error)

type releaser struct {
	p *Pool
	*conn
	released atomic.Bool
}

func (r *releaser) Close() error {
	if r.released.CompareAndSwap(false, true) {
		r.p.Release(r.conn)
	}
	return nil
}

func (r *releaser) Discard() error {
	err := r.conn.Close()
	r.Close()
	return err
}

func (r *releaser) Raw() net.Conn {
	return r.conn.conn
}

// Pool bounds the number of connections open to a single host and keeps up to
// maxIdle of them around between exchanges.
type Pool struct {
	connTicket chan struct{}
	maxIdle    int

	mu   sync.Mutex
	idle []*conn

	maxIdleDuration time.Duration
	logger          *zap.Logger
}

func NewPool(maxIdle, maxConn uint) *Pool {
	if maxConn == 0 {
		maxConn = 1
	}
	return &Pool{
		connTicket: make(chan struct{}, maxConn),
		maxIdle:    int(maxIdle),
		logger:     zap.NewNop(),
	}
}

func (p *Pool) Connect(ctx context.Context, dial DialFunc) (Conn, error) {
	select {
	case p.connTicket <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	for c := p.popIdle(); c != nil; c = p.popIdle() {
		if p.maxIdleDuration != 0 && time.Since(c.LastIdle) > p.maxIdleDuration {
			c.Close()
			continue
		}
		if !c.Available() || !probeAlive(c.conn) {
			p.logger.Debug("dropping stale idle connection", zap.String("remote", remoteAddr(c.conn)))
			c.Close()
			continue
		}
		return &releaser{p: p, conn: c}, nil
	}
	nc, err := dial(ctx)
	if err != nil {
		<-p.connTicket
		return nil, err
	}
	return &releaser{p: p, conn: &conn{conn: nc, logger: p.logger}}, nil
}

func (p *Pool) popIdle() *conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) == 0 {
		return nil
	}
	// most recently used first, the oldest ones are the likeliest to be stale
	c := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	return c
}

func (p *Pool) Release(c *conn) {
	<-p.connTicket
	if !c.Available() {
		return
	}
	p.mu.Lock()
	if len(p.idle) < p.maxIdle {
		c.LastIdle = time.Now()
		p.idle = append(p.idle, c)
		c = nil
	}
	p.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// Idle returns the number of idle connections.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

func (p *Pool) CloseIdle() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, c := range idle {
		c.Close()
	}
}

func remoteAddr(c net.Conn) string {
	if a := c.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
