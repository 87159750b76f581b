/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package tport holds the small leaf types the manager needs that don't
// depend on the Request/Response record model: proxy environment-variable
// lookup and a couple of typed transport errors. Grounded on
// src/http/tport/env_once.go, src/http/tport/http_error.go,
// tport/tls_handshake_timeout_error.go and
// tport/transport_read_from_server_error.go.
package tport

import (
	"os"
	"sync"
)

// EnvOnce looks up the first set of several environment variable names and
// caches the result in this EnvOnce value, so the environment is read once
// per EnvOnce (HTTP_PROXY/http_proxy and friends).
type EnvOnce struct {
	names []string
	once  sync.Once
	val   string
}

// NewEnvOnce builds an EnvOnce over the given variable names, checked in
// order.
func NewEnvOnce(names ...string) *EnvOnce {
	return &EnvOnce{names: names}
}

func (e *EnvOnce) Get() string {
	e.once.Do(e.init)
	return e.val
}

func (e *EnvOnce) init() {
	for _, n := range e.names {
		e.val = os.Getenv(n)
		if e.val != "" {
			return
		}
	}
}

// Reset clears the cached value; used by tests that mutate the environment.
func (e *EnvOnce) Reset() {
	e.once = sync.Once{}
	e.val = ""
}
