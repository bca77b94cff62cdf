package transfer

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/frankli0324/pollhttp/internal/model"
)

// Callback receives the response of an asynchronous transfer.
type Callback func(*model.Response)

// Params describes a transfer to create.
type Params struct {
	Request     *model.Request
	ContentMode model.ContentMode
	Synchronous bool
	// Callback is ignored for synchronous transfers.
	Callback Callback
}

// Transfer is one request/response exchange and its polling state:
// Created → Started → Done, never backwards. Start, Poll and Deliver are
// driver-goroutine only.
type Transfer struct {
	cfg    *Config
	logger *zap.Logger

	prim      Primitive
	started   bool
	done      atomic.Bool
	doneCh    chan struct{}
	delivered bool
	failures  int

	synchronous bool
	contentMode model.ContentMode
	mode        Mode
	request     *model.Request
	response    *model.Response
	callback    Callback
	err         error
}

func newTransfer(cfg *Config, p Params) *Transfer {
	t := &Transfer{
		cfg:         cfg,
		doneCh:      make(chan struct{}),
		synchronous: p.Synchronous,
		contentMode: p.ContentMode,
		mode:        Connect,
		request:     p.Request,
	}
	if !p.Synchronous {
		t.callback = p.Callback
	}
	fields := []zap.Field{zap.Bool("synchronous", t.synchronous), zap.Stringer("content", t.contentMode)}
	if p.Request != nil {
		fields = append(fields, zap.String("url", p.Request.URL))
	}
	t.logger = cfg.Logger.With(fields...)
	return t
}

// Start creates the primitive. Only the first call has an effect.
func (t *Transfer) Start() {
	if t.started {
		return
	}
	t.started = true
	if t.request == nil {
		t.logger.Warn("transfer started without a request")
		return
	}
	if h := t.request.OnRequestCreated; h != nil {
		t.safely("request created hook", func() { h(t.request) })
	}
	t.prim = t.cfg.Factory(t.request.URL, t.request.Content(t.contentMode))
}

// Poll advances the transfer by one step. It never panics and is a no-op
// once the transfer is done.
func (t *Transfer) Poll() {
	if t.done.Load() {
		return
	}
	if t.prim == nil {
		t.logger.Warn("transfer has no primitive")
		t.finish(nil, ErrMissingRequest)
		return
	}
	if err := t.step(); err != nil {
		t.failures++
		t.logger.Error("transfer poll failed", zap.Error(err), zap.Int("failures", t.failures))
		if max := t.cfg.MaxPollFailures; max > 0 && t.failures >= max {
			t.dispose()
			t.finish(nil, &TransportError{Message: err.Error(), Err: ErrDecodeExhausted})
		}
		return
	}
	t.failures = 0
}

func (t *Transfer) step() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	// done is read first: a primitive never un-finishes, so an error it
	// finished with is already visible below.
	done := t.prim.IsDone()
	msg := t.prim.Err()
	switch {
	case msg == "" && done:
		resp, err := t.readResponse()
		if err != nil {
			return err
		}
		t.logger.Debug("transfer completed",
			zap.Int("status", resp.StatusCode), zap.Int("bytes", len(resp.Body)), zap.Stringer("mode", t.mode))
		if h := t.request.OnResponseReceived; h != nil {
			t.safely("response received hook", func() { h(resp) })
		}
		t.dispose()
		t.finish(resp, nil)
	case msg != "":
		if msg == t.cfg.CancelMessage {
			t.logger.Debug("transfer cancelled")
			t.dispose()
			t.finish(nil, ErrCancelled)
			return nil
		}
		t.logger.Error("transfer failed", zap.String("error", msg))
		t.dispose()
		t.finish(nil, &TransportError{Message: msg})
	}
	return nil
}

// readResponse copies everything out of the primitive, which may be disposed
// right after.
func (t *Transfer) readResponse() (*model.Response, error) {
	raw, err := t.prim.Bytes()
	if err != nil {
		return nil, err
	}
	body := make([]byte, len(raw))
	copy(body, raw)

	status := http.StatusOK
	if sc, ok := t.prim.(statusCoder); ok {
		if code := sc.StatusCode(); code != 0 {
			status = code
		}
	}
	resp := &model.Response{
		Request:    t.request,
		StatusCode: status,
		Header:     http.Header{},
		Body:       body,
		Text:       model.DecodeText(body),
	}
	// keys are kept as the primitive reported them
	for k, v := range t.prim.ResponseHeaders() {
		resp.Header[k] = append(resp.Header[k], v)
	}
	if isHandshake(resp.Text) {
		t.mode = Subscribe
	}
	return resp, nil
}

func (t *Transfer) dispose() {
	if t.prim == nil {
		return
	}
	prim := t.prim
	t.prim = nil
	t.safely("dispose", prim.Dispose)
}

func (t *Transfer) finish(resp *model.Response, err error) {
	if t.done.Load() {
		return
	}
	t.response = resp
	t.err = err
	t.done.Store(true)
	close(t.doneCh)
}

// abort disposes the primitive of an unfinished transfer and ends it with err.
func (t *Transfer) abort(err error) {
	if t.done.Load() {
		return
	}
	t.dispose()
	t.finish(nil, err)
}

// Deliver invokes the callback with the response, at most once. Failed
// transfers are only reported when [Config.DeliverFailures] is set, with a
// response carrying the error. It reports whether the callback ran.
func (t *Transfer) Deliver() bool {
	if t.delivered || t.callback == nil || !t.done.Load() {
		return false
	}
	resp := t.response
	if resp == nil {
		if !t.cfg.DeliverFailures || t.err == nil {
			return false
		}
		resp = &model.Response{Request: t.request, Header: http.Header{}, Err: t.err}
	}
	t.delivered = true
	t.safely("callback", func() { t.callback(resp) })
	return true
}

func (t *Transfer) safely(what string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			t.logger.Error(what+" panicked", zap.String("panic", fmt.Sprint(p)), zap.Stack("stack"))
		}
	}()
	fn()
}

// Wait blocks until the transfer is done or ctx ends. Someone else must keep
// ticking the queue meanwhile.
func (t *Transfer) Wait(ctx context.Context) (*model.Response, error) {
	select {
	case <-t.doneCh:
		return t.response, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the transfer finished.
func (t *Transfer) Done() <-chan struct{} { return t.doneCh }

func (t *Transfer) IsDone() bool { return t.done.Load() }

func (t *Transfer) Started() bool { return t.started }

func (t *Transfer) Synchronous() bool { return t.synchronous }

// Mode is only stable once the transfer is done.
func (t *Transfer) Mode() Mode { return t.mode }

// Response is nil until done, and stays nil for failed transfers.
func (t *Transfer) Response() *model.Response {
	if !t.done.Load() {
		return nil
	}
	return t.response
}

// Err is the terminal failure, nil on success or while in flight.
func (t *Transfer) Err() error {
	if !t.done.Load() {
		return nil
	}
	return t.err
}
