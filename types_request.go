/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"time"

	"github.com/iand675/http-client/reqbody"
	"github.com/iand675/http-client/trc"
)

// ProxySecureMode selects how a secure request is carried through a proxy:
// tunnelled via CONNECT, or sent directly to the proxy over TLS.
type ProxySecureMode int

const (
	ProxySecureWithConnect ProxySecureMode = iota
	ProxySecureDirect
)

// HeaderField is one (name, value) pair of an ordered request header list.
// Names are matched case-insensitively; duplicates are allowed and
// preserved in the order the caller supplied them (spec §3).
type HeaderField struct {
	Name  string
	Value string
}

// ProxyDescriptor names the proxy a request should be routed through.
type ProxyDescriptor struct {
	// Scheme selects the proxy protocol: "http" (CONNECT tunnel for secure
	// requests, plain relay otherwise) or "socks5". Empty means "http".
	Scheme string
	Host   string
	Port   string
	// Auth, if non-empty, is sent as a pre-built "Proxy-Authorization"
	// header value (e.g. "Basic <base64>") for an "http" proxy, or parsed
	// as "user:password" for a "socks5" proxy.
	Auth string
}

// Request is the client request descriptor of spec §3. The Manager never
// mutates a Request in place; manager steps that "apply" a modification
// (managerModifyRequest, proxy resolution) return a new value.
type Request struct {
	Method string
	Secure bool
	Host   string
	Port   string
	Path   string
	QueryString string

	// RequestHeaders is the ordered list of (name, value) pairs the caller
	// supplied, case-insensitive names, duplicates allowed.
	RequestHeaders []HeaderField

	RequestBody reqbody.Body

	// Proxy, if non-nil, routes this request through a proxy.
	Proxy *ProxyDescriptor

	// HostAddr optionally pre-resolves the destination address, skipping
	// DNS resolution in the dialer.
	HostAddr string

	// RawBody disables transparent response-body decompression.
	RawBody bool

	// Decompress decides, given a response Content-Type, whether a
	// supported Content-Encoding should be transparently inflated.
	Decompress func(contentType string) bool

	// RedirectCount caps how many redirects a caller-side redirect loop
	// (outside this core) may follow for this request lineage.
	RedirectCount int

	// CheckResponse is invoked once the response is fully constructed
	// (spec §4.6 step 7); it may reject the response by returning an error.
	CheckResponse func(*Response) error

	// ResponseTimeout bounds request-write-through-headers-read (spec §4.6).
	ResponseTimeout time.Duration

	// CookieJar, if non-nil, is consulted/updated by layers outside this
	// core (spec explicitly scopes jar *update* semantics out of C9).
	CookieJar interface{}

	RequestVersion string // e.g. "HTTP/1.1"

	// OnRequestBodyException is the caller-supplied policy for request-body
	// write failures (spec §4.3): return nil to swallow, or an error
	// (possibly the same one) to rethrow.
	OnRequestBodyException func(error) error

	// ManagerOverride, if non-nil, is used instead of the ambient Manager
	// for this single request.
	ManagerOverride *Manager

	// ShouldStripHeaderOnRedirect decides whether a given header should be
	// dropped when a redirect crosses an authority boundary (e.g. don't
	// leak Authorization/Cookie to a different host).
	ShouldStripHeaderOnRedirect func(headerName string) bool

	ProxySecureMode ProxySecureMode

	Trace *trc.ClientTrace
}

// HostPort renders the "host:port" authority this request targets,
// matching the form used as part of a ConnKey.
func (r *Request) HostPort() string {
	if r.Port == "" {
		return r.Host
	}
	return r.Host + ":" + r.Port
}

// DescribeMethod, DescribeHostPort and DescribePath implement
// herr.RequestDescriptor, letting an *HttpExceptionRequest carry this
// Request without herr importing this package.
func (r *Request) DescribeMethod() string   { return r.Method }
func (r *Request) DescribeHostPort() string { return r.HostPort() }
func (r *Request) DescribePath() string     { return r.Path }

// Header returns the first value set for name (case-insensitive), or "".
func (r *Request) Header(name string) string {
	for _, f := range r.RequestHeaders {
		if equalFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
