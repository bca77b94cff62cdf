// Package model holds the request and response values exchanged with the
// messaging client. The transport reads requests and never modifies them.
package model

import (
	"net/http"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// ContentMode selects which body of a [Request] is sent.
type ContentMode int

const (
	Text ContentMode = iota
	Binary
)

func (m ContentMode) String() string {
	if m == Binary {
		return "binary"
	}
	return "text"
}

type Request struct {
	URL           string
	TextContent   string
	BinaryContent []byte

	// Sender is an opaque reference to whoever issued the request.
	Sender interface{}

	// OnRequestCreated runs right before the request goes out.
	OnRequestCreated func(*Request)
	// OnResponseReceived runs once the response has been read.
	OnResponseReceived func(*Response)
}

// Content returns the body to send for mode. Binary content is sent as is,
// a nil slice meaning no body at all; text is always sent, even when empty.
func (r *Request) Content(mode ContentMode) []byte {
	if mode == Binary {
		return r.BinaryContent
	}
	b := make([]byte, len(r.TextContent))
	copy(b, r.TextContent)
	return b
}

type Response struct {
	Request    *Request
	StatusCode int
	// Header keys are not canonicalized.
	Header http.Header
	Body   []byte
	// Text is Body decoded as UTF-8, empty if Body is empty or not valid UTF-8.
	Text string

	// Err is only set on responses standing in for a failed exchange.
	Err error
}

// DecodeText decodes b as UTF-8 and returns "" when it isn't.
func DecodeText(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, _, err := transform.Bytes(encoding.UTF8Validator, b)
	if err != nil {
		return ""
	}
	return string(out)
}
