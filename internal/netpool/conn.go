package netpool

import (
	"io"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type conn struct {
	conn     net.Conn
	IsClosed atomic.Bool
	LastIdle time.Time
	logger   *zap.Logger
}

func (c *conn) Available() bool {
	return !c.IsClosed.Load()
}

func (c *conn) Write(p []byte) (n int, err error) {
	n, err = c.conn.Write(p)
	if err != nil {
		if err != io.EOF {
			c.logger.Debug("error on write", zap.Error(err))
		}
		c.Close()
	}
	return
}

func (c *conn) Read(p []byte) (n int, err error) {
	nb, err := c.conn.Read(p)
	if err != nil {
		if err != io.EOF {
			c.logger.Debug("error on read", zap.Error(err))
		}
		c.Close()
	}
	return nb, err
}

func (c *conn) Close() error {
	if c.IsClosed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}
