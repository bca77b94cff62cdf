package transfer

import "errors"

var (
	// ErrMissingRequest ends a transfer that was started without a request.
	ErrMissingRequest = errors.New("transfer: request is missing")
	// ErrCancelled ends a transfer whose primitive reported cancellation.
	ErrCancelled = errors.New("transfer: request was cancelled")
	// ErrDecodeExhausted is wrapped by the TransportError of a transfer that
	// kept failing to read its completed primitive.
	ErrDecodeExhausted = errors.New("transfer: giving up reading response")
	// ErrQueueFull ends a transfer enqueued past the pending limit.
	ErrQueueFull = errors.New("transfer: queue is full")
	// ErrShutdown ends transfers still outstanding at shutdown, and any
	// enqueued after it.
	ErrShutdown = errors.New("transfer: queue is shut down")
)

// TransportError is a failure reported by the primitive.
type TransportError struct {
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return "transfer: " + e.Message + ": " + e.Err.Error()
	}
	return "transfer: " + e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
