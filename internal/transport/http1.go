package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/frankli0324/pollhttp/internal/http"
	"github.com/frankli0324/pollhttp/internal/transport/chunked"
)

// HTTP1 reads and writes HTTP/1.1 messages. It holds no state, the zero value is ready.
type HTTP1 struct{}

// Write sends the request line, the header and the body of r. Bodies of
// unknown length are sent chunked.
func (HTTP1) Write(ctx context.Context, w io.Writer, r *http.PreparedRequest) error {
	body, err := r.GetBody()
	if err != nil {
		return err
	}
	defer body.Close()

	hasBody := body != http.NoBody
	isChunked := hasBody && r.ContentLength < 0

	// bufio errors are sticky, checking the final Flush is enough
	bw := bufio.NewWriter(w)
	writeRequestHead(bw, r, isChunked)
	switch {
	case isChunked:
		cw := chunked.NewWriter(bw)
		if _, err := io.Copy(cw, body); err != nil {
			return err
		}
		if err := cw.Close(nil); err != nil {
			return err
		}
	case hasBody:
		if _, err := io.Copy(bw, body); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeRequestHead writes
//
//	POST /websync.ashx HTTP/1.1\r\n
//	Host: www.example.com\r\n
//	Content-Length: 42\r\n
//	\r\n
//
// Header keys are written as given, without canonicalization.
func writeRequestHead(bw *bufio.Writer, r *http.PreparedRequest, isChunked bool) {
	target := r.U.RequestURI()
	if r.Method == "CONNECT" {
		target = r.U.Path
	}
	fmt.Fprintf(bw, "%s %s HTTP/1.1\r\nHost: %s\r\n", r.Method, target, r.HeaderHost)
	switch {
	case isChunked:
		bw.WriteString("Transfer-Encoding: chunked\r\n")
	case r.ContentLength > 0, r.ContentLength == 0 && r.Method == "POST":
		fmt.Fprintf(bw, "Content-Length: %d\r\n", r.ContentLength)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			fmt.Fprintf(bw, "%s: %s\r\n", k, v)
		}
	}
	bw.WriteString("\r\n")
}

// Read parses the status line and header of a response into resp and sets
// its Body to a reader of exactly the message body.
func (HTTP1) Read(ctx context.Context, r io.Reader, req *http.PreparedRequest, resp *http.Response) error {
	tp := textproto.NewReader(bufio.NewReader(r))

	line, err := tp.ReadLine()
	if err != nil {
		return unexpectedEOF(err)
	}
	if err := parseStatusLine(line, resp); err != nil {
		return err
	}
	h, err := tp.ReadMIMEHeader()
	if err != nil {
		return unexpectedEOF(err)
	}
	resp.Header = http.Header(h)
	resp.Close = resp.Proto == "HTTP/1.0" || hasToken(resp.Header.Get("Connection"), "close")

	method := ""
	if req != nil {
		method = req.Method
	}
	return readBody(tp.R, method, resp)
}

// parseStatusLine parses "HTTP/1.1 200 OK".
func parseStatusLine(line string, resp *http.Response) error {
	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		return fmt.Errorf("malformed HTTP response %q", line)
	}
	status = strings.TrimLeft(status, " ")
	code, _, _ := strings.Cut(status, " ")
	n, err := strconv.Atoi(code)
	if len(code) != 3 || err != nil || n < 100 {
		return fmt.Errorf("malformed HTTP status code %q", code)
	}
	resp.Proto, resp.Status, resp.StatusCode = proto, status, n
	return nil
}

// contentLength returns the declared body length, -1 when there is none.
// Repeated Content-Length fields must agree and are folded into one.
func contentLength(h http.Header) (int64, error) {
	values := h["Content-Length"]
	if len(values) == 0 {
		return -1, nil
	}
	first := textproto.TrimString(values[0])
	for _, v := range values[1:] {
		if textproto.TrimString(v) != first {
			return 0, fmt.Errorf("http: message cannot contain multiple Content-Length headers; got %q", values)
		}
	}
	h["Content-Length"] = []string{first}
	n, err := strconv.ParseUint(first, 10, 63)
	if err != nil {
		return -1, nil
	}
	return int64(n), nil
}

// bodyless reports whether a response to method with code never has a body,
// RFC 9112 section 6.3.
func bodyless(method string, code int) bool {
	return method == "HEAD" || code == 204 || code == 304 || code/100 == 1 ||
		method == "CONNECT" && code/100 == 2 // the connection now belongs to the tunnel
}

func readBody(r *bufio.Reader, method string, resp *http.Response) error {
	cl, err := contentLength(resp.Header)
	if err != nil {
		return err
	}
	switch {
	case bodyless(method, resp.StatusCode):
		resp.ContentLength = 0
		resp.Body = http.NoBody
	case hasToken(resp.Header.Get("Transfer-Encoding"), "chunked"):
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
		resp.Body = io.NopCloser(chunked.NewReader(r))
	case cl == 0:
		resp.ContentLength = 0
		resp.Body = http.NoBody
	case cl > 0:
		resp.ContentLength = cl
		resp.Body = io.NopCloser(io.LimitReader(r, cl))
	default:
		// delimited by the server closing the connection
		resp.ContentLength = -1
		resp.Close = true
		resp.Body = io.NopCloser(r)
	}
	return nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
