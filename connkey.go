/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

// ConnKeyKind discriminates the ConnKey shapes of spec §3/§4.6. A proxied
// secure connection gets its own variant so the pool never confuses a
// tunnel with a direct TLS connection to the same host (spec §6); a
// proxied request is further split by how it actually reaches the proxy,
// since an insecure request is relayed directly (no tunnel) while a secure
// one is either CONNECT-tunnelled or sent straight to the proxy over TLS,
// per ProxySecureMode.
type ConnKeyKind int

const (
	RawConnKey ConnKeyKind = iota
	SecureConnKey

	// ProxyConnKey is an HTTPS request through a proxy, tunnelled with
	// CONNECT then TLS-handshaked to the ultimate host (managerProxySecure
	// with ProxySecureWithConnect, spec §4.6 step 4).
	ProxyConnKey

	// ProxyInsecureConnKey is a plain-HTTP request through a proxy
	// (managerProxyInsecure, spec §4.6 step 2): no CONNECT, no TLS, the
	// request line is written in absolute-form directly to the proxy,
	// which relays it.
	ProxyInsecureConnKey

	// ProxySecureDirectConnKey is an HTTPS request through a proxy with
	// ProxySecureDirect: no CONNECT, the client TLS-handshakes with the
	// proxy itself (not the ultimate host) and writes an absolute-form
	// request for the proxy to forward.
	ProxySecureDirectConnKey
)

// ConnKey is the pool's lookup key (spec C5). Equality and ordering are
// total and structural across all fields — it is a plain comparable struct,
// usable directly as a Go map key, so "two requests share a pool slot iff
// their ConnKeys are equal" holds by construction.
//
// Grounded on src/http/types_transport.go's connectMethod/connectMethodKey
// and tport/connect_method.go's key derivation (proxy string + target
// scheme + target addr), generalized into the named ConnKeyKind variants
// instead of one opaque string key.
type ConnKey struct {
	Kind ConnKeyKind

	HostAddr string // optional pre-resolved address
	Host     string
	Port     string

	ProxyScheme string // "http" (default) or "socks5"
	ProxyHost   string
	ProxyPort   string
	ProxyAuth   string // optional proxy-auth header value, e.g. "Basic ..."
}

// connKeyForRequest derives the ConnKey for a (post proxy-resolution)
// request, per spec §4.6 step 2: an insecure proxied request gets
// ProxyInsecureConnKey (managerProxyInsecure, no tunnel); a secure one gets
// ProxyConnKey or ProxySecureDirectConnKey depending on req.ProxySecureMode
// (managerProxySecure).
func connKeyForRequest(r *Request) ConnKey {
	if r.Proxy != nil {
		k := ConnKey{
			HostAddr:    r.HostAddr,
			Host:        r.Host,
			Port:        r.Port,
			ProxyScheme: r.Proxy.Scheme,
			ProxyHost:   r.Proxy.Host,
			ProxyPort:   r.Proxy.Port,
			ProxyAuth:   r.Proxy.Auth,
		}
		switch {
		case !r.Secure:
			k.Kind = ProxyInsecureConnKey
		case r.ProxySecureMode == ProxySecureDirect:
			k.Kind = ProxySecureDirectConnKey
		default:
			k.Kind = ProxyConnKey
		}
		return k
	}
	if r.Secure {
		return ConnKey{Kind: SecureConnKey, HostAddr: r.HostAddr, Host: r.Host, Port: r.Port}
	}
	return ConnKey{Kind: RawConnKey, HostAddr: r.HostAddr, Host: r.Host, Port: r.Port}
}

// DialAddr is the first-hop "host:port" to TCP-connect to: the proxy's
// address for any proxied kind, else the target's own address.
func (k ConnKey) DialAddr() string {
	switch k.Kind {
	case ProxyConnKey, ProxyInsecureConnKey, ProxySecureDirectConnKey:
		return k.ProxyHost + ":" + k.ProxyPort
	default:
		return k.Host + ":" + k.Port
	}
}

// TLSHost is the hostname to verify against the peer certificate: the
// ultimate host for a direct or CONNECT-tunnelled secure connection, or the
// proxy itself for ProxySecureDirectConnKey, whose TLS handshake terminates
// at the proxy rather than the ultimate host.
func (k ConnKey) TLSHost() string {
	if k.Kind == ProxySecureDirectConnKey {
		return k.ProxyHost
	}
	return k.Host
}
