package pollhttp

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/frankli0324/pollhttp/internal/fetch"
	"github.com/frankli0324/pollhttp/internal/transfer"
)

// Transport sends requests through a polled transfer queue.
type Transport struct {
	queue  *transfer.Queue
	logger *zap.Logger
	tick   time.Duration
	client *Client
	cancel context.CancelFunc
}

func New(opts ...Option) *Transport {
	o := options{tick: DefaultTickInterval}
	for _, opt := range opts {
		opt(&o)
	}
	if o.queue.Logger == nil {
		o.queue.Logger = zap.NewNop()
	}
	t := &Transport{
		logger: o.queue.Logger,
		tick:   o.tick,
		cancel: func() {},
	}
	if o.queue.Factory == nil {
		if o.client == nil {
			o.client = &Client{}
			if o.protocol != nil {
				o.client.SetProtocol(*o.protocol)
			}
		} else if o.protocol != nil && o.client.Protocol() != *o.protocol {
			o.queue.Logger.Warn("protocol option ignored for a caller-provided client",
				zap.Stringer("client", o.client.Protocol()), zap.Stringer("requested", *o.protocol))
		}
		ctx, cancel := context.WithCancel(context.Background())
		f := &fetch.Factory{
			Client:        o.client,
			Header:        o.header,
			CancelMessage: o.queue.CancelMessage,
			Logger:        o.queue.Logger.Named("fetch"),
			BaseContext:   ctx,
		}
		o.queue.Factory = f.Primitives()
		t.client, t.cancel = o.client, cancel
	}
	t.queue = transfer.NewQueue(o.queue)
	return t
}

func (t *Transport) send(mode ContentMode, req *Request, sync bool, cb Callback) (*transfer.Transfer, error) {
	if ce := t.logger.Check(zap.DebugLevel, "send"); ce != nil {
		fields := []zap.Field{zap.Stringer("content", mode), zap.Bool("synchronous", sync)}
		if req != nil {
			fields = append(fields,
				zap.String("url", req.URL),
				zap.Int("content_length", len(req.Content(mode))),
				zap.Bool("sender", req.Sender != nil))
		}
		ce.Write(fields...)
	}
	return t.queue.Submit(transfer.Params{Request: req, ContentMode: mode, Synchronous: sync, Callback: cb})
}

// SendAsync queues req and returns immediately. cb runs from the goroutine
// driving the transport once the response arrived, failed sends are dropped
// unless [WithDeliverFailures] is set. The error is only non-nil when the
// send was refused.
func (t *Transport) SendAsync(mode ContentMode, req *Request, cb Callback) error {
	_, err := t.send(mode, req, false, cb)
	return err
}

func (t *Transport) SendBinaryAsync(req *Request, cb Callback) error {
	return t.SendAsync(Binary, req, cb)
}

func (t *Transport) SendTextAsync(req *Request, cb Callback) error {
	return t.SendAsync(Text, req, cb)
}

// SendSync sends req and blocks until the response arrived. It returns nil
// when the send failed.
//
// Another goroutine must be driving the transport meanwhile: calling SendSync
// from the goroutine that calls Update or Run, callbacks included, never
// returns.
func (t *Transport) SendSync(mode ContentMode, req *Request) *Response {
	resp, _ := t.SendSyncContext(context.Background(), mode, req)
	return resp
}

// SendSyncContext is SendSync reporting why the send failed. It returns
// ctx.Err() once ctx is done, the transfer keeps running then.
func (t *Transport) SendSyncContext(ctx context.Context, mode ContentMode, req *Request) (*Response, error) {
	tr, err := t.send(mode, req, true, nil)
	if err != nil {
		return nil, err
	}
	return tr.Wait(ctx)
}

func (t *Transport) SendBinary(req *Request) *Response {
	return t.SendSync(Binary, req)
}

func (t *Transport) SendText(req *Request) *Response {
	return t.SendSync(Text, req)
}

// Update advances every pending transfer once and then runs the callbacks of
// the completed ones.
func (t *Transport) Update() {
	t.queue.Tick()
	t.queue.Deliver()
}

// Run calls Update at the tick interval until ctx is done.
func (t *Transport) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Update()
		}
	}
}

// Shutdown cancels every outstanding send and refuses new ones. Blocked
// SendSync calls return nil, pending callbacks never run.
func (t *Transport) Shutdown() {
	t.queue.Shutdown()
	t.cancel()
	if t.client != nil {
		t.client.CloseIdle()
	}
}

// Pending is the number of sends not finished yet.
func (t *Transport) Pending() int { return t.queue.Len() }

// Completed is the number of finished asynchronous sends awaiting Update.
// Callbacks may call it.
func (t *Transport) Completed() int { return t.queue.Completed() }
