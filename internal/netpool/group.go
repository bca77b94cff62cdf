package netpool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PoolGroup keeps one [Pool] per key, usually scheme://host:port.
type PoolGroup struct {
	sync.RWMutex
	pools map[string]*Pool

	maxConnsPerHost, maxIdlePerHost uint
	maxIdleDuration                 time.Duration
	logger                          *zap.Logger
}

func NewGroup(maxConnsPerHost, maxIdlePerHost uint) *PoolGroup {
	return &PoolGroup{
		pools:           map[string]*Pool{},
		maxConnsPerHost: maxConnsPerHost, maxIdlePerHost: maxIdlePerHost,
		logger: zap.NewNop(),
	}
}

// WithIdleTimeout drops idle connections older than d on their next checkout.
func (g *PoolGroup) WithIdleTimeout(d time.Duration) *PoolGroup {
	g.maxIdleDuration = d
	return g
}

func (g *PoolGroup) WithLogger(l *zap.Logger) *PoolGroup {
	if l != nil {
		g.logger = l.Named("netpool")
	}
	return g
}

// NewEmpty returns a group with the same limits and no connections.
func (g *PoolGroup) NewEmpty() *PoolGroup {
	if g == nil {
		return nil
	}
	return &PoolGroup{
		pools:           map[string]*Pool{},
		maxConnsPerHost: g.maxConnsPerHost, maxIdlePerHost: g.maxIdlePerHost,
		maxIdleDuration: g.maxIdleDuration,
		logger:          g.logger,
	}
}

func (g *PoolGroup) Connect(ctx context.Context, key string, dial DialFunc) (Conn, error) {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if ok {
		return p.Connect(ctx, dial)
	}
	g.Lock()
	if p, ok = g.pools[key]; !ok {
		p = NewPool(g.maxIdlePerHost, g.maxConnsPerHost)
		p.maxIdleDuration = g.maxIdleDuration
		p.logger = g.logger.With(zap.String("pool", key))
		g.pools[key] = p
	}
	g.Unlock()
	return p.Connect(ctx, dial)
}

// Idle returns the number of idle connections kept for key.
func (g *PoolGroup) Idle(key string) int {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if !ok {
		return 0
	}
	return p.Idle()
}

func (g *PoolGroup) CloseIdle() {
	g.RLock()
	defer g.RUnlock()
	for _, p := range g.pools {
		p.CloseIdle()
	}
}
