//go:build darwin || linux
// +build darwin linux

package netpool

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// probeAlive polls the idle connection without blocking. An idle HTTP
// connection must have nothing to read: readable means the peer either closed
// it or sent something we never asked for, both make it unusable.
func probeAlive(c net.Conn) bool {
	if t, ok := c.(interface{ NetConn() net.Conn }); ok {
		// is *tls.Conn
		c = t.NetConn()
	}
	sc, ok := c.(syscall.Conn)
	if !ok {
		return true
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return false
	}
	alive := true
	err = raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 0)
		if err != nil {
			return
		}
		if n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			alive = false
		}
	})
	return err == nil && alive
}
