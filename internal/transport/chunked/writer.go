package chunked

import (
	"io"
	"net/http"
	"sort"
	"strconv"
)

// Writer frames everything written to it as chunks. Close must be called to
// end the body.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer on w. When w has a Flush method every chunk is
// flushed as soon as it was written.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (cw *Writer) Write(p []byte) (int, error) {
	// a chunk of size zero would end the body
	if len(p) == 0 {
		return 0, nil
	}
	head := strconv.AppendUint(make([]byte, 0, 18), uint64(len(p)), 16)
	if _, err := cw.w.Write(append(head, '\r', '\n')); err != nil {
		return 0, err
	}
	n, err := cw.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return n, err
	}
	if _, err := io.WriteString(cw.w, "\r\n"); err != nil {
		return n, err
	}
	if f, ok := cw.w.(interface{ Flush() error }); ok {
		return n, f.Flush()
	}
	return n, nil
}

// Close writes the last chunk and the trailer fields, sorted by name.
func (cw *Writer) Close(trailer http.Header) error {
	buf := []byte("0\r\n")
	keys := make([]string, 0, len(trailer))
	for k := range trailer {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range trailer[k] {
			buf = append(buf, k...)
			buf = append(buf, ": "...)
			buf = append(buf, v...)
			buf = append(buf, "\r\n"...)
		}
	}
	_, err := cw.w.Write(append(buf, "\r\n"...))
	return err
}
