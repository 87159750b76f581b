/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"container/list"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iand675/http-client/conn"
	"github.com/iand675/http-client/herr"
)

// DefaultGlobalIdleCap is the default "idleConnectionCount" of spec §4.5.
const DefaultGlobalIdleCap = 512

// DefaultPerHostIdleCap is the default "managerConnCount" of spec §4.5.
const DefaultPerHostIdleCap = 10

// Pool is the keyed connection pool of spec C5: ConnsMap's Open/Closed
// states, LIFO-per-key idle lists, a global LRU cap, a per-key cap, and
// background idle reaping. Grounded directly on
// src/http/types_transport.go's connLRU (container/list-based) and
// src/http/transport.go's getIdleConn/tryPutIdleConn/removeIdleConnLocked,
// generalized from *persistConn entries keyed by connectMethodKey to this
// module's *conn.Connection keyed by ConnKey.
type Pool struct {
	GlobalIdleCap  int
	PerHostIdleCap int
	IdleTTL        time.Duration
	Log            *logrus.Logger

	mu     sync.Mutex
	closed bool
	idle   map[ConnKey][]*idleEntry
	lru    *connLRU
}

type idleEntry struct {
	key        ConnKey
	c          *conn.Connection
	insertedAt time.Time
	lruElem    *list.Element
	reapTimer  *time.Timer
}

// NewPool builds an Open pool with the given caps; zero values fall back to
// the spec-default caps.
func NewPool(globalIdleCap, perHostIdleCap int, idleTTL time.Duration, log *logrus.Logger) *Pool {
	if globalIdleCap <= 0 {
		globalIdleCap = DefaultGlobalIdleCap
	}
	if perHostIdleCap <= 0 {
		perHostIdleCap = DefaultPerHostIdleCap
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pool{
		GlobalIdleCap:  globalIdleCap,
		PerHostIdleCap: perHostIdleCap,
		IdleTTL:        idleTTL,
		Log:            log,
		idle:           make(map[ConnKey][]*idleEntry),
		lru:            newConnLRU(),
	}
}

// Checkout returns an idle connection for key (LIFO, most-recently-used
// first) if one exists, else calls dial to create a fresh one. dial runs
// outside the pool's lock (spec §4.5/§5: "no I/O under the lock"). A
// checkout atomically removes the entry from the idle set, so double
// checkout of the same Connection is impossible by construction.
func (p *Pool) Checkout(key ConnKey, dial func() (*conn.Connection, error)) (c *conn.Connection, reused bool, idleFor time.Duration, err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, false, 0, herr.New(nil, herr.ConnectionClosed)
	}
	list := p.idle[key]
	if n := len(list); n > 0 {
		e := list[n-1]
		p.idle[key] = list[:n-1]
		if len(p.idle[key]) == 0 {
			delete(p.idle, key)
		}
		p.lru.remove(e)
		if e.reapTimer != nil {
			e.reapTimer.Stop()
		}
		p.mu.Unlock()
		return e.c, true, time.Since(e.insertedAt), nil
	}
	p.mu.Unlock()

	c, err = dial()
	if err != nil {
		return nil, false, 0, err
	}
	return c, false, 0, nil
}

// Return gives a connection back to the pool after a successful
// request-response cycle. If keepAlive is false the connection is closed
// instead of pooled. Returning stamps the current time and prepends to the
// per-key LIFO list (i.e. appends to the slice's tail, which Checkout pops
// from); caps are enforced by evicting the oldest entry, globally and
// per-key, preferring to keep the most recently used (spec §4.5).
func (p *Pool) Return(key ConnKey, c *conn.Connection, keepAlive bool) {
	if !keepAlive {
		c.Close()
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		c.Close()
		return
	}

	e := &idleEntry{key: key, c: c, insertedAt: time.Now()}
	p.idle[key] = append(p.idle[key], e)
	e.lruElem = p.lru.pushFront(e)

	if p.IdleTTL > 0 {
		e.reapTimer = time.AfterFunc(p.IdleTTL, func() { p.closeIfStillIdle(e) })
	}

	// Per-key cap: evict the least-recently-used entry at this key (index 0
	// of the slice, since Checkout pops from the tail).
	for len(p.idle[key]) > p.PerHostIdleCap {
		evicted := p.idle[key][0]
		p.idle[key] = p.idle[key][1:]
		p.lru.remove(evicted)
		p.stopTimer(evicted)
		p.Log.WithField("key", key).Debug("evicting idle connection: per-host cap exceeded")
		evicted.c.Close()
	}

	// Global cap: evict the globally-oldest idle connection across all keys.
	for p.lru.len() > p.GlobalIdleCap {
		oldest := p.lru.removeOldest()
		if oldest == nil {
			break
		}
		p.removeFromKeyList(oldest)
		p.stopTimer(oldest)
		p.Log.Debug("evicting idle connection: global cap exceeded")
		oldest.c.Close()
	}
	p.mu.Unlock()
}

func (p *Pool) stopTimer(e *idleEntry) {
	if e.reapTimer != nil {
		e.reapTimer.Stop()
	}
}

func (p *Pool) removeFromKeyList(e *idleEntry) {
	list := p.idle[e.key]
	for i, v := range list {
		if v == e {
			p.idle[e.key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(p.idle[e.key]) == 0 {
		delete(p.idle, e.key)
	}
}

// closeIfStillIdle is the background reaper: it runs after IdleTTL and
// closes the connection iff it is still sitting idle (hasn't been checked
// out in the meantime).
func (p *Pool) closeIfStillIdle(e *idleEntry) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	list := p.idle[e.key]
	found := false
	for _, v := range list {
		if v == e {
			found = true
			break
		}
	}
	if !found {
		p.mu.Unlock()
		return
	}
	p.removeFromKeyList(e)
	p.lru.remove(e)
	p.mu.Unlock()
	e.c.Close()
}

// Shutdown transitions the pool to Closed: all idle connections are drained
// and closed, and subsequent Checkouts fail with ConnectionClosed.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	all := p.idle
	p.idle = make(map[ConnKey][]*idleEntry)
	p.lru = newConnLRU()
	p.mu.Unlock()

	for _, entries := range all {
		for _, e := range entries {
			p.stopTimer(e)
			e.c.Close()
		}
	}
}

// IdleCountForTesting and IdleKeyCountForTesting support the testable
// properties of spec §8 (pool caps, pool at-most-once) without reaching
// into unexported pool state from tests — carried from the teacher's
// *ForTesting method family (src/http/transport.go).
func (p *Pool) IdleCountForTesting() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lru.len()
}

func (p *Pool) IdleKeyCountForTesting(key ConnKey) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle[key])
}

// connLRU is a container/list-based LRU of idle entries, used only to find
// the globally-oldest idle connection under cap pressure. Grounded on
// src/http/types_transport.go's connLRU.
type connLRU struct {
	l *list.List
	m map[*idleEntry]*list.Element
}

func newConnLRU() *connLRU {
	return &connLRU{l: list.New(), m: make(map[*idleEntry]*list.Element)}
}

func (c *connLRU) pushFront(e *idleEntry) *list.Element {
	elem := c.l.PushFront(e)
	c.m[e] = elem
	return elem
}

func (c *connLRU) remove(e *idleEntry) {
	if elem, ok := c.m[e]; ok {
		c.l.Remove(elem)
		delete(c.m, e)
	}
}

func (c *connLRU) removeOldest() *idleEntry {
	elem := c.l.Back()
	if elem == nil {
		return nil
	}
	e := elem.Value.(*idleEntry)
	c.l.Remove(elem)
	delete(c.m, e)
	return e
}

func (c *connLRU) len() int { return c.l.Len() }
