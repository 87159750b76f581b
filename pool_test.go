/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iand675/http-client/conn"
)

func fakeConnection(t *testing.T) *conn.Connection {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { server.Close() })
	return conn.NewConnection(client)
}

func TestPoolCheckoutDialsWhenEmpty(t *testing.T) {
	p := NewPool(0, 0, 0, nil)
	key := ConnKey{Kind: RawConnKey, Host: "a.com", Port: "80"}

	dialed := false
	c, reused, _, err := p.Checkout(key, func() (*conn.Connection, error) {
		dialed = true
		return fakeConnection(t), nil
	})
	require.NoError(t, err)
	assert.True(t, dialed)
	assert.False(t, reused)
	assert.NotNil(t, c)
}

func TestPoolReturnThenCheckoutReusesConnection(t *testing.T) {
	p := NewPool(0, 0, 0, nil)
	key := ConnKey{Kind: RawConnKey, Host: "a.com", Port: "80"}
	c := fakeConnection(t)

	p.Return(key, c, true)
	assert.Equal(t, 1, p.IdleCountForTesting())

	got, reused, _, err := p.Checkout(key, func() (*conn.Connection, error) {
		t.Fatal("dial should not be called when an idle connection exists")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Same(t, c, got)
	assert.Equal(t, 0, p.IdleCountForTesting())
}

func TestPoolCheckoutIsAtMostOnce(t *testing.T) {
	p := NewPool(0, 0, 0, nil)
	key := ConnKey{Kind: RawConnKey, Host: "a.com", Port: "80"}
	c := fakeConnection(t)
	p.Return(key, c, true)

	seen := map[*conn.Connection]bool{}
	for i := 0; i < 3; i++ {
		got, _, _, err := p.Checkout(key, func() (*conn.Connection, error) { return fakeConnection(t), nil })
		require.NoError(t, err)
		assert.False(t, seen[got], "no connection should be handed out twice concurrently")
		seen[got] = true
	}
}

func TestPoolReturnWithoutKeepAliveClosesConnection(t *testing.T) {
	p := NewPool(0, 0, 0, nil)
	key := ConnKey{Kind: RawConnKey, Host: "a.com", Port: "80"}
	c := fakeConnection(t)

	p.Return(key, c, false)
	assert.Equal(t, 0, p.IdleCountForTesting())
	assert.True(t, c.IsClosed())
}

func TestPoolEnforcesPerHostCap(t *testing.T) {
	p := NewPool(0, 2, 0, nil)
	key := ConnKey{Kind: RawConnKey, Host: "a.com", Port: "80"}

	for i := 0; i < 5; i++ {
		p.Return(key, fakeConnection(t), true)
	}
	assert.Equal(t, 2, p.IdleKeyCountForTesting(key))
}

func TestPoolEnforcesGlobalCap(t *testing.T) {
	p := NewPool(2, 10, 0, nil)

	hosts := []string{"a.com", "b.com", "c.com", "d.com", "e.com"}
	for _, h := range hosts {
		key := ConnKey{Kind: RawConnKey, Host: h, Port: "80"}
		p.Return(key, fakeConnection(t), true)
	}
	assert.Equal(t, 2, p.IdleCountForTesting())
}

func TestPoolIdleTTLReapsConnection(t *testing.T) {
	p := NewPool(0, 0, 10*time.Millisecond, nil)
	key := ConnKey{Kind: RawConnKey, Host: "a.com", Port: "80"}
	c := fakeConnection(t)
	p.Return(key, c, true)

	assert.Eventually(t, func() bool {
		return p.IdleCountForTesting() == 0
	}, time.Second, 5*time.Millisecond)
	assert.True(t, c.IsClosed())
}

func TestPoolShutdownClosesIdleAndRejectsCheckout(t *testing.T) {
	p := NewPool(0, 0, 0, nil)
	key := ConnKey{Kind: RawConnKey, Host: "a.com", Port: "80"}
	c := fakeConnection(t)
	p.Return(key, c, true)

	p.Shutdown()
	assert.True(t, c.IsClosed())

	_, _, _, err := p.Checkout(key, func() (*conn.Connection, error) {
		t.Fatal("dial should not be called after shutdown")
		return nil, nil
	})
	assert.Error(t, err)
}
