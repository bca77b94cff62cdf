// Package fetch implements the polled web request primitive on top of
// [internal.Client]: an exchange starts running in its own goroutine as soon
// as it is created and is then only observed through IsDone and Err.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/frankli0324/pollhttp/internal"
	"github.com/frankli0324/pollhttp/internal/http"
	"github.com/frankli0324/pollhttp/internal/transfer"
)

// DefaultCancelMessage is what Err reports for an exchange disposed before it finished.
const DefaultCancelMessage = transfer.DefaultCancelMessage

var errInFlight = errors.New("fetch: exchange still in flight")

type Exchange struct {
	cancel        context.CancelFunc
	cancelMessage string
	logger        *zap.Logger

	mu         sync.Mutex
	done       bool
	err        string
	statusCode int
	statusLine string
	header     http.Header
	body       []byte
}

func (e *Exchange) run(ctx context.Context, c *internal.Client, req *http.Request) {
	resp, err := c.CtxDo(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			e.finish(func() { e.err = e.cancelMessage })
			return
		}
		e.finish(func() { e.err = err.Error() })
		return
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			err = errors.New(e.cancelMessage)
		}
		e.finish(func() { e.err = err.Error() })
		return
	}
	e.finish(func() {
		e.statusCode = resp.StatusCode
		e.statusLine = strings.TrimSpace(resp.Proto + " " + resp.Status)
		e.header = resp.Header
		e.body = body
		if resp.StatusCode >= 400 {
			// web request primitives fail on error statuses
			e.err = resp.Status
			if e.err == "" {
				e.err = fmt.Sprintf("%d %s", resp.StatusCode, nethttp.StatusText(resp.StatusCode))
			}
		}
	})
	e.logger.Debug("exchange finished", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(body)))
}

// finish records the outcome once. Results arriving after Dispose are dropped.
func (e *Exchange) finish(set func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	set()
	e.done = true
}

// IsDone reports whether the exchange finished, successfully or not.
func (e *Exchange) IsDone() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Err is empty unless the exchange failed.
func (e *Exchange) Err() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Exchange) StatusCode() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusCode
}

// Bytes returns the response body. The slice is owned by the exchange.
func (e *Exchange) Bytes() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.done {
		return nil, errInFlight
	}
	return e.body, nil
}

// ResponseHeaders flattens the response header, joining repeated fields with
// ", ". The status line is reported under STATUS.
func (e *Exchange) ResponseHeaders() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := make(map[string]string, len(e.header)+1)
	for k, v := range e.header {
		h[k] = strings.Join(v, ", ")
	}
	if e.statusLine != "" {
		h["STATUS"] = e.statusLine
	}
	return h
}

// Dispose cancels the exchange if it is still running and releases its
// connection. It never blocks.
func (e *Exchange) Dispose() {
	e.finish(func() { e.err = e.cancelMessage })
	e.cancel()
}
