// Package pollhttp adapts polled web request primitives into an asynchronous
// and synchronous HTTP transport for long-polling messaging clients.
//
// A [Transport] does no work on its own: the host calls [Transport.Update] at
// a steady cadence, or hands a goroutine to [Transport.Run]. Responses of
// asynchronous sends are delivered to their callbacks from that goroutine.
package pollhttp

import (
	"github.com/frankli0324/pollhttp/internal/model"
	"github.com/frankli0324/pollhttp/internal/transfer"
)

type Request = model.Request
type Response = model.Response
type ContentMode = model.ContentMode

const (
	Text   = model.Text
	Binary = model.Binary
)

type Mode = transfer.Mode

const (
	Connect   = transfer.Connect
	Publish   = transfer.Publish
	Subscribe = transfer.Subscribe
)

// HandshakePrefix starts the text of a connect response, which moves a
// transfer to [Subscribe].
const HandshakePrefix = transfer.HandshakePrefix

type Callback = transfer.Callback
type Primitive = transfer.Primitive
type Factory = transfer.Factory

type TransportError = transfer.TransportError

var (
	ErrMissingRequest  = transfer.ErrMissingRequest
	ErrCancelled       = transfer.ErrCancelled
	ErrDecodeExhausted = transfer.ErrDecodeExhausted
	ErrQueueFull       = transfer.ErrQueueFull
	ErrShutdown        = transfer.ErrShutdown
)

// DefaultCancelMessage is the error text primitives report when cancelled.
const DefaultCancelMessage = transfer.DefaultCancelMessage
