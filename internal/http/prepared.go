package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/net/http/httpguts"
)

// PreparedRequest is a validated [Request] ready to be written on the wire.
type PreparedRequest struct {
	*Request

	Method     string
	U          *url.URL
	GetBody    func() (io.ReadCloser, error)
	Header     http.Header // without Host and Content-Length
	HeaderHost string

	ContentLength int64 // -1 when unknown
}

func (r *Request) Prepare() (*PreparedRequest, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported protocol scheme %q", u.Scheme)
	}
	pr := &PreparedRequest{Request: r, U: u, Method: r.Method, HeaderHost: u.Host}

	declared, err := pr.takeHeader(r.Header)
	if err != nil {
		return nil, err
	}
	if pr.HeaderHost == "" {
		return nil, url.InvalidHostError("empty host")
	}
	if pr.GetBody, pr.ContentLength, err = bodyOf(r.Body); err != nil {
		return nil, err
	}
	if declared >= 0 {
		if pr.ContentLength >= 0 && pr.ContentLength != declared {
			return nil, errors.New("conflicting value between body size and content-length request header")
		}
		pr.ContentLength = declared
	}
	if pr.Method == "" {
		pr.Method = "GET"
		if r.Body != nil {
			pr.Method = "POST"
		}
	}
	return pr, nil
}

// takeHeader validates h and copies it into pr, moving Host into HeaderHost.
// It returns the value of a Content-Length field, -1 without one.
func (pr *PreparedRequest) takeHeader(h http.Header) (int64, error) {
	pr.Header = make(http.Header, len(h))
	declared := int64(-1)
	for k, vs := range h {
		if !httpguts.ValidHeaderFieldName(k) {
			return 0, fmt.Errorf("invalid header field name %q", k)
		}
		for _, v := range vs {
			if !httpguts.ValidHeaderFieldValue(v) {
				return 0, fmt.Errorf("invalid header field value for %q", k)
			}
		}
		switch strings.ToLower(k) {
		case "host":
			if len(vs) > 0 && httpguts.ValidHostHeader(vs[0]) {
				pr.HeaderHost = vs[0]
			}
		case "content-length":
			if len(vs) > 0 {
				if n, err := strconv.ParseInt(vs[0], 10, 64); err == nil {
					declared = n
				}
			}
		default:
			pr.Header[k] = append([]string(nil), vs...)
		}
	}
	return declared, nil
}

// bodyOf returns a body getter for b and its size, -1 if unknown. Readers
// other than *bytes.Reader can only be read once.
func bodyOf(b interface{}) (func() (io.ReadCloser, error), int64, error) {
	switch b := b.(type) {
	case nil:
		return func() (io.ReadCloser, error) { return NoBody, nil }, 0, nil
	case string:
		return func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(b)), nil
		}, int64(len(b)), nil
	case []byte:
		return func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}, int64(len(b)), nil
	case *bytes.Reader:
		snapshot := *b
		return func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}, int64(b.Len()), nil
	case io.Reader:
		size := int64(-1)
		if s, ok := b.(interface{ Size() int64 }); ok {
			size = s.Size()
		}
		rc, ok := b.(io.ReadCloser)
		if !ok {
			rc = io.NopCloser(b)
		}
		var taken atomic.Bool
		return func() (io.ReadCloser, error) {
			if taken.Swap(true) {
				return nil, ErrBodyReadAfterClose
			}
			return rc, nil
		}, size, nil
	}
	return nil, 0, fmt.Errorf("unsupported body type: %T", b)
}
