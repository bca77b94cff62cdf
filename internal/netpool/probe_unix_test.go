//go:build darwin || linux
// +build darwin linux

package netpool

import (
	"context"
	"testing"
	"time"
)

func TestPoolDropsConnClosedByPeer(t *testing.T) {
	l, accepted := listen(t)
	var dials int32
	g := NewGroup(4, 4)
	dial := countingDial(l.Addr().String(), &dials)

	c1, err := g.Connect(context.Background(), "k", dial)
	if err != nil {
		t.Fatal(err)
	}
	c1.Close()
	(<-accepted).Close()

	deadline := time.Now().Add(2 * time.Second)
	for probeAlive(c1.Raw()) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	c2, err := g.Connect(context.Background(), "k", dial)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()
	if dials != 2 {
		t.Errorf("connection closed by peer was reused, dialed %d times", dials)
	}
}

func TestProbeAliveOnQuietConn(t *testing.T) {
	l, _ := listen(t)
	var dials int32
	c, err := countingDial(l.Addr().String(), &dials)(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if !probeAlive(c) {
		t.Error("quiet connection reported dead")
	}
}
