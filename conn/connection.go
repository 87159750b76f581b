/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package conn

import (
	"net"
	"runtime"
	"sync"

	"github.com/iand675/http-client/herr"
)

// Connection is the uniform byte stream the rest of the module is built on:
// read / unread (pushback) / write / close, layered over a raw net.Conn (TCP,
// TLS, or an established CONNECT tunnel). Grounded on conn_reader.go's
// connReader state machine and src/http/tport/persist_conn.go's idempotent
// close handling, generalized from the server's single-direction reader to
// a full bidirectional abstraction with an explicit pushback stack (spec C1).
type Connection struct {
	mu     sync.Mutex
	raw    net.Conn
	pushed [][]byte // LIFO pushback stack; pushed[len-1] is served next
	closed bool
}

// NewConnection wraps an already-established net.Conn (TCP, TLS, or a
// tunnel built by the manager's CONNECT dial) as a Connection. A finalizer
// is registered so a Connection with no remaining live references still
// reaches Close — spec §5's "weak reference" resource-finalisation
// requirement, implemented with runtime.SetFinalizer since Go has no
// first-class weak references (see DESIGN.md).
func NewConnection(raw net.Conn) *Connection {
	c := &Connection{raw: raw}
	runtime.SetFinalizer(c, func(c *Connection) { c.Close() })
	return c
}

// Read returns the next chunk of data: a pushed-back slice if the stack is
// non-empty, else exactly one underlying read. It never concatenates
// multiple underlying reads, matching spec §4.1.
func (c *Connection) Read(p []byte) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, herr.New(nil, herr.ConnectionClosed)
	}
	if n := len(c.pushed); n > 0 {
		top := c.pushed[n-1]
		c.pushed = c.pushed[:n-1]
		c.mu.Unlock()
		k := copy(p, top)
		if k < len(top) {
			// Caller's buffer was smaller than the pushed chunk; push the
			// remainder back so the next Read continues it.
			c.Unread(top[k:])
		}
		return k, nil
	}
	c.mu.Unlock()
	return c.raw.Read(p)
}

// Unread pushes bytes onto the pushback stack such that the next Read
// returns exactly those bytes first. Empty unreads are no-ops. The caller
// must not mutate b afterward; Unread takes ownership of the slice.
func (c *Connection) Unread(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return herr.New(nil, herr.ConnectionClosed)
	}
	c.pushed = append(c.pushed, b)
	return nil
}

// Write sends b on the underlying transport. It may block.
func (c *Connection) Write(b []byte) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, herr.New(nil, herr.ConnectionClosed)
	}
	c.mu.Unlock()
	return c.raw.Write(b)
}

// Close is idempotent: exactly one call reaches the underlying transport.
// After Close, Read/Write/Unread all fail with ConnectionClosed.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.pushed = nil
	c.mu.Unlock()
	runtime.SetFinalizer(c, nil)
	return c.raw.Close()
}

// IsClosed reports whether Close has already run.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Raw exposes the underlying net.Conn for operations the pool needs
// (deadlines, LocalAddr/RemoteAddr, TLS handshake) without going through the
// pushback path.
func (c *Connection) Raw() net.Conn {
	return c.raw
}
