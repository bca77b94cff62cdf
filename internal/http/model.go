package http

import (
	"context"
	"io"
	"net/http"
)

// Dialer opens the stream a prepared request is written to.
type Dialer interface {
	Dial(ctx context.Context, r *PreparedRequest) (io.ReadWriteCloser, error)
	Unwrap() Dialer
}

type Request struct {
	Method string // defaults to GET without a body and POST with one
	URL    string
	Body   interface{}
	Header http.Header
}

type Response struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header

	ContentLength int64
	// Close reports that the connection can't be reused once Body is drained,
	// either because the server asked so or because the body is delimited by EOF
	Close bool
	Body  io.ReadCloser
}
