// Package chunked implements the chunked transfer coding of RFC 9112 section 7.1.
package chunked

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
)

const maxLineLength = 4096

var (
	errLineTooLong = errors.New("chunked: line too long")
	errMalformed   = errors.New("chunked: malformed chunk")
)

// Reader decodes a chunked body. Chunk extensions and trailer fields are
// dropped, and the underlying reader is left at the start of the next message
// once Read returned io.EOF.
type Reader struct {
	r       *bufio.Reader
	left    uint64 // unread bytes of the current chunk
	inChunk bool
	err     error // sticky, io.EOF once the last chunk was read
}

func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br}
}

func (cr *Reader) Read(p []byte) (int, error) {
	if cr.err != nil {
		return 0, cr.err
	}
	if !cr.inChunk {
		if cr.err = cr.next(); cr.err != nil {
			return 0, cr.err
		}
	}
	if uint64(len(p)) > cr.left {
		p = p[:cr.left]
	}
	n, err := cr.r.Read(p)
	cr.left -= uint64(n)
	if cr.left == 0 {
		cr.inChunk = false
		if err == nil || err == io.EOF {
			err = cr.crlf()
		}
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	cr.err = err
	return n, err
}

// next reads chunk headers up to one with data, or the trailer section after
// the last chunk.
func (cr *Reader) next() error {
	line, err := cr.line()
	if err != nil {
		return err
	}
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	size, err := strconv.ParseUint(string(bytes.TrimSpace(line)), 16, 63)
	if err != nil {
		return errMalformed
	}
	if size > 0 {
		cr.left, cr.inChunk = size, true
		return nil
	}
	for {
		field, err := cr.line()
		if err != nil {
			return err
		}
		if len(field) == 0 {
			return io.EOF
		}
	}
}

func (cr *Reader) crlf() error {
	var b [2]byte
	if _, err := io.ReadFull(cr.r, b[:]); err != nil {
		return err
	}
	if b != [2]byte{'\r', '\n'} {
		return errMalformed
	}
	return nil
}

func (cr *Reader) line() ([]byte, error) {
	var line []byte
	for {
		part, more, err := cr.r.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = append(line, part...)
		if len(line) > maxLineLength {
			return nil, errLineTooLong
		}
		if !more {
			return line, nil
		}
	}
}
