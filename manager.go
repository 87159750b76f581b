/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http/httpguts"

	"github.com/iand675/http-client/conn"
	"github.com/iand675/http-client/hdr"
	"github.com/iand675/http-client/herr"
	"github.com/iand675/http-client/reqbody"
	"github.com/iand675/http-client/respbody"
	"github.com/iand675/http-client/tport"
	"github.com/iand675/http-client/trc"
)

// ManagerSettings configures a Manager (spec C6). Zero-value fields fall
// back to DefaultManagerSettings's choices.
type ManagerSettings struct {
	GlobalIdleConnections int
	PerHostIdleConnections int
	IdleConnectionTTL      time.Duration

	NetDialTimeout  time.Duration
	ResponseTimeout time.Duration

	TLSConfig *tls.Config

	// ManagerModifyRequest is applied to every request immediately before
	// it is dispatched (spec §4.6 step 1); it must be idempotent, since a
	// retried request is re-passed through it.
	ManagerModifyRequest func(*Request) *Request

	// ManagerModifyResponse is applied once the response is fully
	// constructed, before CheckResponse (spec §4.6 step 7).
	ManagerModifyResponse func(*Response) (*Response, error)

	// RetryableException decides whether a failure on a *reused* idle
	// connection should trigger exactly one retry on a fresh connection
	// (spec §4.6's retry policy — never applied to a freshly dialed
	// connection's failure).
	RetryableException func(error) bool

	// ProxyForRequest resolves a request's proxy before connection-key
	// derivation; nil means no proxy.
	ProxyForRequest func(*Request) (*ProxyDescriptor, error)

	// DefaultTrace, if set, is composed under every request's own req.Trace
	// (per-request hooks fire first) via trc.Compose, so Manager-wide
	// instrumentation (e.g. metrics) need not be threaded through every
	// call site that builds a Request.
	DefaultTrace *trc.ClientTrace

	Log *logrus.Logger
}

// DefaultManagerSettings returns the spec-default configuration: 512 global
// idle connections, 10 idle connections per host, no idle TTL reaping by
// default, a 30s dial timeout, and a RetryableException predicate that
// retries on a reused connection's ConnectionFailure/ConnectionClosed/
// NoResponseDataReceived.
func DefaultManagerSettings() ManagerSettings {
	return ManagerSettings{
		GlobalIdleConnections: DefaultGlobalIdleCap,
		PerHostIdleConnections: DefaultPerHostIdleCap,
		NetDialTimeout:  30 * time.Second,
		ResponseTimeout: 0,
		RetryableException: func(err error) bool {
			if he, ok := err.(*herr.HttpExceptionRequest); ok {
				switch he.Kind {
				case herr.ConnectionFailure, herr.ConnectionClosed, herr.NoResponseDataReceived:
					return true
				}
			}
			return false
		},
		Log: logrus.StandardLogger(),
	}
}

// Manager is the single entry point of spec C6: it owns a Pool and a
// dialer, and Perform composes them with request writing and response
// parsing into one call. Grounded on src/http/transport.go's
// (*Transport).RoundTrip and its persistConn-reuse/retry loop.
type Manager struct {
	settings ManagerSettings
	pool     *Pool
	dial     *dialer
	log      *logrus.Logger
}

// NewManager builds a Manager from settings, filling in any zero-valued
// fields from DefaultManagerSettings.
func NewManager(settings ManagerSettings) *Manager {
	d := DefaultManagerSettings()
	if settings.GlobalIdleConnections > 0 {
		d.GlobalIdleConnections = settings.GlobalIdleConnections
	}
	if settings.PerHostIdleConnections > 0 {
		d.PerHostIdleConnections = settings.PerHostIdleConnections
	}
	if settings.IdleConnectionTTL > 0 {
		d.IdleConnectionTTL = settings.IdleConnectionTTL
	}
	if settings.NetDialTimeout > 0 {
		d.NetDialTimeout = settings.NetDialTimeout
	}
	if settings.ResponseTimeout > 0 {
		d.ResponseTimeout = settings.ResponseTimeout
	}
	if settings.TLSConfig != nil {
		d.TLSConfig = settings.TLSConfig
	}
	if settings.ManagerModifyRequest != nil {
		d.ManagerModifyRequest = settings.ManagerModifyRequest
	}
	if settings.ManagerModifyResponse != nil {
		d.ManagerModifyResponse = settings.ManagerModifyResponse
	}
	if settings.RetryableException != nil {
		d.RetryableException = settings.RetryableException
	}
	if settings.ProxyForRequest != nil {
		d.ProxyForRequest = settings.ProxyForRequest
	}
	if settings.DefaultTrace != nil {
		d.DefaultTrace = settings.DefaultTrace
	}
	if settings.Log != nil {
		d.Log = settings.Log
	}

	return &Manager{
		settings: d,
		pool:     NewPool(d.GlobalIdleConnections, d.PerHostIdleConnections, d.IdleConnectionTTL, d.Log),
		dial:     newDialer(d.NetDialTimeout, d.TLSConfig, d.Log),
		log:      d.Log,
	}
}

// Shutdown closes the manager's pool, draining and closing every idle
// connection and rejecting subsequent checkouts.
func (m *Manager) Shutdown() { m.pool.Shutdown() }

// Perform executes req end to end (spec §4.6): connection acquisition
// (pool checkout or dial), CONNECT-proxy tunnelling, request write, status
// line and header parse (with the 1xx loop), response body construction,
// and the reused-connection retry policy. The returned Response's Close
// must be called exactly once.
func (m *Manager) Perform(req *Request) (*Response, error) {
	mgr := m
	if req.ManagerOverride != nil {
		mgr = req.ManagerOverride
	}
	return mgr.perform(req)
}

func (m *Manager) perform(req *Request) (*Response, error) {
	if m.settings.ManagerModifyRequest != nil {
		req = m.settings.ManagerModifyRequest(req)
	}

	if m.settings.DefaultTrace != nil {
		reqCopy := *req
		reqCopy.Trace = trc.Compose(req.Trace, m.settings.DefaultTrace)
		req = &reqCopy
	}

	if m.settings.ProxyForRequest != nil {
		proxy, err := m.settings.ProxyForRequest(req)
		if err != nil {
			return nil, herr.Wrap(req, herr.InvalidProxySettings, err)
		}
		if proxy != nil {
			reqCopy := *req
			reqCopy.Proxy = proxy
			req = &reqCopy
		}
	}

	key := connKeyForRequest(req)

	if req.Trace != nil && req.Trace.GetConn != nil {
		req.Trace.GetConn(key.DialAddr())
	}

	resp, retryable, err := m.attempt(req, key)
	if err != nil && retryable && m.settings.RetryableException(err) {
		m.log.WithField("err", err).Debug("retrying request on a fresh connection")
		resp, _, err = m.attempt(req, key)
	}
	return resp, err
}

// attempt performs exactly one checkout-write-read cycle. retryable is true
// iff the connection used was reused from the pool (spec's retry policy
// never covers a freshly dialed connection's own failure).
func (m *Manager) attempt(req *Request, key ConnKey) (resp *Response, retryable bool, err error) {
	c, reused, idleFor, derr := m.pool.Checkout(key, func() (*conn.Connection, error) {
		return m.dial.Dial(key, req)
	})
	if derr != nil {
		if he, ok := derr.(*herr.HttpExceptionRequest); ok {
			// Already classified (e.g. ConnectionTimeout from the dialer).
			if he.Request == nil {
				he.Request = req
			}
			return nil, false, he
		}
		return nil, false, herr.Wrap(req, herr.ConnectionFailure, derr)
	}
	m.log.WithFields(logrus.Fields{"key": key, "reused": reused}).Debug("checked out connection")

	if req.Trace != nil && req.Trace.GotConn != nil {
		req.Trace.GotConn(trc.GotConnInfo{Conn: c.Raw(), Reused: reused, WasIdle: reused, IdleTime: idleFor})
	}

	if req.ResponseTimeout > 0 {
		c.Raw().SetDeadline(time.Now().Add(req.ResponseTimeout))
		defer c.Raw().SetDeadline(time.Time{})
	}

	resp, err = m.roundTrip(req, key, c)
	if err != nil {
		c.Close()
		return nil, reused, err
	}
	return resp, false, nil
}

func (m *Manager) roundTrip(req *Request, key ConnKey, c *conn.Connection) (*Response, error) {
	if err := writeRequestLine(c, req, key); err != nil {
		return nil, herr.Wrap(req, herr.ConnectionFailure, err)
	}
	if err := writeRequestHeaders(c, req, key); err != nil {
		return nil, herr.Wrap(req, herr.ConnectionFailure, err)
	}
	if req.Trace != nil && req.Trace.WroteHeaders != nil {
		req.Trace.WroteHeaders()
	}

	bodyErr := reqbody.Send(c, req.RequestBody, req.OnRequestBodyException)
	if req.Trace != nil && req.Trace.WroteRequest != nil {
		req.Trace.WroteRequest(trc.WroteRequestInfo{Err: bodyErr})
	}
	if bodyErr != nil {
		return nil, herr.Wrap(req, herr.ConnectionFailure, bodyErr)
	}

	status, version, header, err := readStatusAndHeaders(c, req)
	if err != nil {
		return nil, err
	}

	contentLength, chunked, rawBody := parseFraming(header)
	if req.Method == HEAD || status.Code == 204 || status.Code == 304 {
		// RFC 7230 §3.3.3: a response to HEAD, and any 204 or 304, never
		// carries a body regardless of what Content-Length/Transfer-Encoding
		// claim.
		contentLength, chunked, rawBody = 0, false, false
	}
	keepAliveOK := shouldKeepAlive(version, header)

	bodyReader, closeBody, err := respbody.New(c, contentLength, chunked,
		header.Get(hdr.ContentEncoding), header.Get(hdr.ContentType),
		req.Decompress, req.RawBody || rawBody)
	if err != nil {
		return nil, err
	}

	resp := newResponse(status, version, header, bodyReader, closeBody, stripBody(req), func(keepAlive bool) {
		reuse := keepAlive && keepAliveOK
		m.pool.Return(key, c, reuse)
		if req.Trace != nil && req.Trace.PutIdleConn != nil {
			if reuse {
				req.Trace.PutIdleConn(nil)
			} else {
				req.Trace.PutIdleConn(fmt.Errorf("http: connection not reusable; closed"))
			}
		}
	})

	if m.settings.ManagerModifyResponse != nil {
		modified, merr := m.settings.ManagerModifyResponse(resp)
		if merr != nil {
			c.Close()
			return nil, merr
		}
		resp = modified
	}

	if req.CheckResponse != nil {
		if cerr := req.CheckResponse(resp); cerr != nil {
			resp.Close()
			return nil, cerr
		}
	}

	return resp, nil
}

// stripBody returns a shallow copy of req with its body replaced by the
// empty body, the invariant Response.Request carries (spec §3).
func stripBody(req *Request) *Request {
	r := *req
	r.RequestBody = reqbody.Empty
	return &r
}

// writeRequestLine writes the request line. For a request relayed directly
// to a proxy (ProxyInsecureConnKey or ProxySecureDirectConnKey — spec §4.6
// steps 2/4, no CONNECT tunnel in between), the target is written in
// absolute-form per RFC 7230 §5.3.2 so the proxy knows where to relay it;
// every other key writes the usual origin-form target.
func writeRequestLine(c *conn.Connection, req *Request, key ConnKey) error {
	version := req.RequestVersion
	if version == "" {
		version = HTTP1_1
	}
	target := req.Path
	if req.QueryString != "" {
		target += "?" + req.QueryString
	}
	if target == "" {
		target = "/"
	}
	if key.Kind == ProxyInsecureConnKey || key.Kind == ProxySecureDirectConnKey {
		scheme := HTTP
		if req.Secure {
			scheme = HTTPS
		}
		target = scheme + "://" + req.HostPort() + target
	}
	_, err := c.Write(append([]byte(req.Method+" "+target+" "+version), CrLf...))
	return err
}

func writeRequestHeaders(c *conn.Connection, req *Request, key ConnKey) error {
	hasHost := false
	for _, f := range req.RequestHeaders {
		if !httpguts.ValidHeaderFieldName(f.Name) || !httpguts.ValidHeaderFieldValue(f.Value) {
			return &herr.HttpExceptionRequest{Request: req, Kind: herr.InvalidRequestHeader, Raw: f.Name + ": " + f.Value}
		}
		if equalFold(f.Name, hdr.Host) {
			hasHost = true
		}
		if _, err := c.Write(append([]byte(f.Name+": "+f.Value), CrLf...)); err != nil {
			return err
		}
		if req.Trace != nil && req.Trace.WroteHeaderField != nil {
			req.Trace.WroteHeaderField(f.Name, []string{f.Value})
		}
	}
	if !hasHost {
		if _, err := c.Write(append([]byte("Host: "+req.HostPort()), CrLf...)); err != nil {
			return err
		}
	}
	// A proxy relayed to directly (no CONNECT tunnel) authenticates against
	// the Proxy-Authorization header on the relayed request itself, unlike
	// ProxyConnKey where it belongs on the CONNECT preface only.
	if (key.Kind == ProxyInsecureConnKey || key.Kind == ProxySecureDirectConnKey) && key.ProxyAuth != "" {
		if _, err := c.Write(append([]byte(ProxyAuthorization+": "+key.ProxyAuth), CrLf...)); err != nil {
			return err
		}
	}
	_, err := c.Write(CrLf)
	return err
}

// readStatusAndHeaders reads the status line and header block, looping over
// any 1xx informational responses per spec §4.6/§9: Got1xxResponse fires for
// every one (returning an error aborts the request), Got100Continue fires
// additionally for exactly 100, and the loop continues to the final
// (non-1xx) status line.
func readStatusAndHeaders(c *conn.Connection, req *Request) (Status, string, hdr.Header, error) {
	for {
		line, err := conn.ReadLine(c)
		if err != nil {
			// conn.ReadLine already classifies its own failure as
			// OverlongHeaders or IncompleteHeaders; preserve that rather
			// than collapsing everything into NoResponseDataReceived.
			// IncompleteHeaders on this, the status-line read, means no
			// response byte arrived at all (spec §7's NoResponseDataReceived
			// row) — e.g. the peer silently closed an idle reused
			// connection, which the manager's retry policy hinges on.
			if he, ok := err.(*herr.HttpExceptionRequest); ok {
				he.Request = req
				if he.Kind == herr.IncompleteHeaders {
					he.Kind = herr.NoResponseDataReceived
				}
				return Status{}, "", nil, he
			}
			return Status{}, "", nil, herr.Wrap(req, herr.NoResponseDataReceived, tport.TransportReadFromServerError{Err: err})
		}
		if len(line) == 0 {
			return Status{}, "", nil, herr.New(req, herr.NoResponseDataReceived)
		}
		version, status, reason, perr := parseStatusLine(string(line))
		if perr != nil {
			return Status{}, "", nil, &herr.HttpExceptionRequest{Request: req, Kind: herr.InvalidStatusLine, Raw: string(line)}
		}

		if req.Trace != nil && req.Trace.GotFirstResponseByte != nil {
			req.Trace.GotFirstResponseByte()
		}

		header, herr2 := readHeaderBlock(c, req)
		if herr2 != nil {
			return Status{}, "", nil, herr2
		}

		if status >= 100 && status < 200 {
			if req.Trace != nil && req.Trace.Got1xxResponse != nil {
				if err := req.Trace.Got1xxResponse(status, map[string][]string(header)); err != nil {
					return Status{}, "", nil, err
				}
			}
			if status == 100 && req.Trace != nil && req.Trace.Got100Continue != nil {
				req.Trace.Got100Continue()
			}
			continue
		}

		return Status{Code: status, Reason: reason}, version, header, nil
	}
}

func parseStatusLine(line string) (version string, code int, reason string, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return "", 0, "", fmt.Errorf("http: malformed status line %q", line)
	}
	code, cerr := strconv.Atoi(parts[1])
	if cerr != nil {
		return "", 0, "", cerr
	}
	if len(parts) == 3 {
		reason = parts[2]
	}
	return parts[0], code, reason, nil
}

func readHeaderBlock(c *conn.Connection, req *Request) (hdr.Header, error) {
	header := make(hdr.Header)
	for {
		line, err := conn.ReadLine(c)
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			return header, nil
		}
		name, value, ok := strings.Cut(string(line), ":")
		if !ok {
			return nil, &herr.HttpExceptionRequest{Request: req, Kind: herr.InvalidHeader, Raw: string(line)}
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, &herr.HttpExceptionRequest{Request: req, Kind: herr.InvalidHeader, Raw: string(line)}
		}
		header.Add(name, value)
	}
}

func parseFraming(header hdr.Header) (contentLength int64, chunked bool, rawBody bool) {
	if te := header.Get(hdr.TransferEncoding); strings.EqualFold(te, DoChunked) {
		return 0, true, false
	}
	cl := header.Get(hdr.ContentLength)
	if cl == "" {
		return -1, false, false
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || n < 0 {
		return -1, false, false
	}
	return n, false, false
}

func shouldKeepAlive(version string, header hdr.Header) bool {
	connHeader := strings.ToLower(header.Get(hdr.Connection))
	if connHeader == DoClose {
		return false
	}
	if version == HTTP1_0 {
		return connHeader == DoKeepAlive
	}
	return true
}
