/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package respbody implements the response body reader (spec C4): a framing
// stage (Content-Length / chunked / read-until-EOF), a decompression stage,
// and the pull-based BodyReader consumer exposure. Grounded directly on
// utils_transfer.go's readTransferResponse three-way dispatch and on
// src/http/tport/gzip_reader.go's gzipReader decompression wrapper.
package respbody

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"strconv"
	"strings"

	"github.com/iand675/http-client/conn"
	"github.com/iand675/http-client/herr"
)

// BodyReader is a pull-based function returning the next decoded chunk; an
// empty chunk (nil, nil) is the sole EOF signal. Calls after EOF keep
// returning empty. With Content-Length or read-until-close framing and no
// decompression, a call makes at most one network read; a chunked call
// reads the chunk-size line, the whole chunk and its CRLF, and a
// decompressing call reads as often as the decompressor needs.
type BodyReader func() ([]byte, error)

// Framing is the result of the framing-stage dispatch: which strategy to
// use to delimit the body on the wire.
type Framing int

const (
	FramingContentLength Framing = iota
	FramingChunked
	FramingUntilClose
)

// New builds the decoded BodyReader pipeline for a response.
//
//   - contentLength >= 0 selects Content-Length framing (ResponseBodyTooShort
//     if the peer EOFs early).
//   - chunked selects Transfer-Encoding: chunked framing.
//   - otherwise the body runs until the connection EOFs.
//
// contentEncoding/decompress/rawBody together drive the decompression
// stage (spec §4.4 step 2): a supported encoding (gzip/deflate) is
// transparently unwrapped when decompress(contentType) is true and rawBody
// is false.
func New(c *conn.Connection, contentLength int64, chunked bool, contentEncoding, contentType string, decompress func(mime string) bool, rawBody bool) (BodyReader, func() error, error) {
	var framed BodyReader
	var closeFramed func() error
	switch {
	case chunked:
		cr := newChunkedReader(c)
		framed = cr.next
		closeFramed = cr.drain
	case contentLength >= 0:
		lr := &limitedBodyReader{c: c, remaining: contentLength, total: contentLength}
		framed = lr.next
		closeFramed = lr.drain
	default:
		ur := &untilCloseReader{c: c}
		framed = ur.next
		closeFramed = ur.drain
	}

	if !rawBody && decompress != nil && decompress(contentType) {
		switch strings.ToLower(contentEncoding) {
		case "gzip":
			dr, err := newGzipReader(framed)
			if err != nil {
				return nil, nil, &herr.HttpExceptionRequest{Kind: herr.HttpZlibException, Inner: err}
			}
			return dr.next, closeFramed, nil
		case "deflate":
			dr := newDeflateReader(framed)
			return dr.next, closeFramed, nil
		}
	}
	return framed, closeFramed, nil
}

// limitedBodyReader implements Content-Length framing: returns at most N
// bytes total, then empty; an early transport EOF raises ResponseBodyTooShort.
type limitedBodyReader struct {
	c         *conn.Connection
	remaining int64
	total     int64
	buf       [4096]byte
}

func (l *limitedBodyReader) next() ([]byte, error) {
	if l.remaining <= 0 {
		return nil, nil
	}
	want := int64(len(l.buf))
	if l.remaining < want {
		want = l.remaining
	}
	n, err := l.c.Read(l.buf[:want])
	if n > 0 {
		l.remaining -= int64(n)
		out := make([]byte, n)
		copy(out, l.buf[:n])
		if err == nil {
			return out, nil
		}
		// Return data now; surface EOF-vs-short on the next call so the
		// caller sees the final bytes before any error.
		if err == io.EOF && l.remaining > 0 {
			return out, nil
		}
		return out, nil
	}
	if err == io.EOF || err == nil {
		if l.remaining > 0 {
			return nil, &herr.HttpExceptionRequest{
				Kind:     herr.ResponseBodyTooShort,
				Expected: l.total,
				Actual:   l.total - l.remaining,
			}
		}
		return nil, nil
	}
	return nil, err
}

func (l *limitedBodyReader) drain() error {
	for l.remaining > 0 {
		if _, err := l.next(); err != nil {
			return err
		}
	}
	return nil
}

// untilCloseReader reads until the transport EOFs (no Content-Length, no
// chunked framing, and the server did not promise keep-alive).
type untilCloseReader struct {
	c   *conn.Connection
	eof bool
	buf [4096]byte
}

func (u *untilCloseReader) next() ([]byte, error) {
	if u.eof {
		return nil, nil
	}
	n, err := u.c.Read(u.buf[:])
	if n > 0 {
		out := make([]byte, n)
		copy(out, u.buf[:n])
		if err != nil {
			u.eof = true
		}
		return out, nil
	}
	u.eof = true
	if err == io.EOF || err == nil {
		return nil, nil
	}
	return nil, err
}

func (u *untilCloseReader) drain() error {
	for !u.eof {
		if _, err := u.next(); err != nil {
			return err
		}
	}
	return nil
}

// chunkedReader decodes Transfer-Encoding: chunked per RFC 7230 §4.1,
// grounded on utils_chunks.go's chunk-line parsing (hex length, optional
// ";ext", CRLF-terminated) generalized into the pull-based BodyReader shape.
type chunkedReader struct {
	c    *conn.Connection
	done bool
	n    uint64 // bytes remaining in the current chunk
}

func newChunkedReader(c *conn.Connection) *chunkedReader { return &chunkedReader{c: c} }

func (r *chunkedReader) next() ([]byte, error) {
	if r.done {
		return nil, nil
	}
	if r.n == 0 {
		line, err := conn.ReadLine(r.c)
		if err != nil {
			return nil, err
		}
		size, perr := parseChunkHeader(line)
		if perr != nil {
			return nil, &herr.HttpExceptionRequest{Kind: herr.InvalidChunkHeaders, Raw: string(line)}
		}
		if size == 0 {
			if err := conn.DropTillBlankLine(r.c); err != nil {
				return nil, err
			}
			r.done = true
			return nil, nil
		}
		r.n = size
	}
	buf := make([]byte, r.n)
	got := 0
	for got < len(buf) {
		n, err := r.c.Read(buf[got:])
		got += n
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, &herr.HttpExceptionRequest{Kind: herr.InvalidChunkHeaders, Raw: "short chunk"}
		}
	}
	r.n = 0
	crlf, err := conn.ReadLine(r.c)
	if err != nil {
		return nil, err
	}
	if len(crlf) != 0 {
		return nil, &herr.HttpExceptionRequest{Kind: herr.InvalidChunkHeaders, Raw: string(crlf)}
	}
	return buf[:got], nil
}

func (r *chunkedReader) drain() error {
	for !r.done {
		if _, err := r.next(); err != nil {
			return err
		}
	}
	return nil
}

// parseChunkHeader parses "<hex>[;ext]" into the chunk size, stripping any
// chunk-extension the way utils_chunks.go's removeChunkExtension does.
func parseChunkHeader(line []byte) (uint64, error) {
	if semi := indexByte(line, ';'); semi >= 0 {
		line = line[:semi]
	}
	return strconv.ParseUint(strings.TrimSpace(string(line)), 16, 64)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// gzipBodyReader wraps a framed BodyReader with a streaming gzip inflater.
// Grounded on src/http/tport/gzip_reader.go's gzipReader.
type gzipBodyReader struct {
	zr *gzip.Reader
}

func newGzipReader(framed BodyReader) (*gzipBodyReader, error) {
	zr, err := gzip.NewReader(&readerFromPuller{pull: framed})
	if err != nil {
		return nil, err
	}
	return &gzipBodyReader{zr: zr}, nil
}

func (g *gzipBodyReader) next() ([]byte, error) {
	buf := make([]byte, 4096)
	n, err := g.zr.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, &herr.HttpExceptionRequest{Kind: herr.HttpZlibException, Inner: err}
	}
	return nil, nil
}

// deflateBodyReader wraps a framed BodyReader with a streaming flate
// inflater (Content-Encoding: deflate).
type deflateBodyReader struct {
	zr io.ReadCloser
}

func newDeflateReader(framed BodyReader) *deflateBodyReader {
	return &deflateBodyReader{zr: flate.NewReader(&readerFromPuller{pull: framed})}
}

func (d *deflateBodyReader) next() ([]byte, error) {
	buf := make([]byte, 4096)
	n, err := d.zr.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, &herr.HttpExceptionRequest{Kind: herr.HttpZlibException, Inner: err}
	}
	return nil, nil
}

// readerFromPuller adapts a BodyReader (pull semantics) to io.Reader, for
// compress/gzip and compress/flate, which want a pushing io.Reader.
type readerFromPuller struct {
	pull    BodyReader
	leftover []byte
}

func (r *readerFromPuller) Read(p []byte) (int, error) {
	if len(r.leftover) == 0 {
		chunk, err := r.pull()
		if err != nil {
			return 0, err
		}
		if len(chunk) == 0 {
			return 0, io.EOF
		}
		r.leftover = chunk
	}
	n := copy(p, r.leftover)
	r.leftover = r.leftover[n:]
	return n, nil
}
