package pollhttp

import (
	"time"

	"go.uber.org/zap"

	"github.com/frankli0324/pollhttp/internal/transfer"
)

// DefaultTickInterval is the cadence of [Transport.Run].
const DefaultTickInterval = 10 * time.Millisecond

type options struct {
	queue    transfer.Config
	client   *Client
	protocol *Protocol
	header   Header
	tick     time.Duration
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.queue.Logger = l }
}

// WithFactory replaces the built-in HTTP exchange with f. Client, protocol
// and header options have no effect then.
func WithFactory(f Factory) Option {
	return func(o *options) { o.queue.Factory = f }
}

// WithClient sets the client exchanges are performed with.
func WithClient(c *Client) Option {
	return func(o *options) { o.client = c }
}

// WithProtocol selects the protocol of the client New creates. A client set
// with WithClient is shared and keeps its own protocol.
func WithProtocol(p Protocol) Option {
	return func(o *options) { o.protocol = &p }
}

// WithHeader adds h to every request.
func WithHeader(h Header) Option {
	return func(o *options) { o.header = h.Clone() }
}

func WithTickInterval(d time.Duration) Option {
	return func(o *options) { o.tick = d }
}

// WithMaxPollFailures bounds how many consecutive times reading a completed
// response may fail before the transfer is given up. Negative means never.
func WithMaxPollFailures(n int) Option {
	return func(o *options) { o.queue.MaxPollFailures = n }
}

// WithMaxPending refuses sends while n transfers are outstanding.
func WithMaxPending(n int) Option {
	return func(o *options) { o.queue.MaxPending = n }
}

// WithDeliverFailures makes failed asynchronous sends invoke their callback
// with a [Response] whose Err is set. By default they are dropped.
func WithDeliverFailures(b bool) Option {
	return func(o *options) { o.queue.DeliverFailures = b }
}

// WithCancelMessage sets the primitive error text that means cancellation.
func WithCancelMessage(msg string) Option {
	return func(o *options) { o.queue.CancelMessage = msg }
}
