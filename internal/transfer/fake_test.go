package transfer

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/frankli0324/pollhttp/internal/model"
)

// fakePrim is a scripted primitive. Tests flip its state between polls.
type fakePrim struct {
	mu       sync.Mutex
	url      string
	body     []byte
	readyAt  time.Time
	done     bool
	err      string
	resp     []byte
	bytesErr error
	panicky  bool
	headers  map[string]string
	status   int
	disposed int
}

func (p *fakePrim) IsDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done || (!p.readyAt.IsZero() && !time.Now().Before(p.readyAt))
}

func (p *fakePrim) Err() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakePrim) Bytes() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicky {
		panic("bytes exploded")
	}
	return p.resp, p.bytesErr
}

func (p *fakePrim) ResponseHeaders() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := make(map[string]string, len(p.headers))
	for k, v := range p.headers {
		h[k] = v
	}
	return h
}

func (p *fakePrim) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disposed++
}

func (p *fakePrim) StatusCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *fakePrim) set(fn func(p *fakePrim)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

func (p *fakePrim) disposals() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}

// fakeFactory records every primitive it creates. setup, when set, prepares
// each new primitive.
type fakeFactory struct {
	mu    sync.Mutex
	prims []*fakePrim
	setup func(*fakePrim)
}

func (f *fakeFactory) New(url string, body []byte) Primitive {
	p := &fakePrim{url: url, body: body}
	if f.setup != nil {
		f.setup(p)
	}
	f.mu.Lock()
	f.prims = append(f.prims, p)
	f.mu.Unlock()
	return p
}

func (f *fakeFactory) created() []*fakePrim {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakePrim(nil), f.prims...)
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func newTestQueue(t *testing.T, f *fakeFactory, mod func(*Config)) (*Queue, *observer.ObservedLogs) {
	t.Helper()
	logger, logs := observed()
	cfg := Config{Factory: f.New, Logger: logger}
	if mod != nil {
		mod(&cfg)
	}
	return NewQueue(cfg), logs
}

func request(url string) *model.Request {
	return &model.Request{URL: url, TextContent: "payload"}
}

func completeWith(body string) func(*fakePrim) {
	return func(p *fakePrim) {
		p.done = true
		p.resp = []byte(body)
	}
}
