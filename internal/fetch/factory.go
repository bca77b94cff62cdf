package fetch

import (
	"context"

	"go.uber.org/zap"

	"github.com/frankli0324/pollhttp/internal"
	"github.com/frankli0324/pollhttp/internal/http"
	"github.com/frankli0324/pollhttp/internal/transfer"
)

// Factory starts exchanges on a shared [internal.Client].
type Factory struct {
	Client *internal.Client
	// Header is sent with every request.
	Header http.Header
	// CancelMessage replaces [DefaultCancelMessage] when set.
	CancelMessage string
	Logger        *zap.Logger
	// BaseContext is the parent of every exchange, cancelling it cancels all of them.
	BaseContext context.Context
}

// New starts an exchange: a POST of body to url, or a GET when body is nil.
func (f *Factory) New(url string, body []byte) *Exchange {
	parent := f.BaseContext
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	e := &Exchange{
		cancel:        cancel,
		cancelMessage: f.CancelMessage,
		logger:        f.Logger,
	}
	if e.cancelMessage == "" {
		e.cancelMessage = DefaultCancelMessage
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	client := f.Client
	if client == nil {
		client = &internal.Client{}
	}
	req := &http.Request{URL: url, Header: f.Header.Clone()}
	if body != nil {
		req.Body = body
	}
	e.logger.Debug("exchange started", zap.String("url", url), zap.Int("content_length", len(body)))
	go e.run(ctx, client, req)
	return e
}

// Primitives adapts f to a [transfer.Factory].
func (f *Factory) Primitives() transfer.Factory {
	return func(url string, body []byte) transfer.Primitive {
		return f.New(url, body)
	}
}
