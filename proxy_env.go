/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"encoding/base64"
	"net"
	"strings"

	"github.com/iand675/http-client/tport"
)

// EnvironmentProxy resolves a request's proxy from the standard
// HTTP_PROXY/HTTPS_PROXY/NO_PROXY (and lowercase) environment variables, in
// the style of Go's own net/http.ProxyFromEnvironment; unlike it, a secure
// request falls back to HTTP_PROXY when HTTPS_PROXY is unset. Each variable
// is read on first use via tport.EnvOnce and cached in this
// EnvironmentProxy; construct with
// NewEnvironmentProxy and assign the result to
// ManagerSettings.ProxyForRequest.
type EnvironmentProxy struct {
	httpProxy  *tport.EnvOnce
	httpsProxy *tport.EnvOnce
	noProxy    *tport.EnvOnce
}

// NewEnvironmentProxy builds an EnvironmentProxy reading the conventional
// variable name pairs (upper then lower case).
func NewEnvironmentProxy() *EnvironmentProxy {
	return &EnvironmentProxy{
		httpProxy:  tport.NewEnvOnce("HTTP_PROXY", "http_proxy"),
		httpsProxy: tport.NewEnvOnce("HTTPS_PROXY", "https_proxy"),
		noProxy:    tport.NewEnvOnce("NO_PROXY", "no_proxy"),
	}
}

// ForRequest implements the ManagerSettings.ProxyForRequest signature: nil,
// nil means "no proxy for this request".
func (e *EnvironmentProxy) ForRequest(req *Request) (*ProxyDescriptor, error) {
	if e.noProxyMatches(req.Host) {
		return nil, nil
	}
	raw := e.httpProxy.Get()
	if req.Secure {
		if v := e.httpsProxy.Get(); v != "" {
			raw = v
		}
	}
	if raw == "" {
		return nil, nil
	}
	return parseProxyURL(raw)
}

func (e *EnvironmentProxy) noProxyMatches(host string) bool {
	list := e.noProxy.Get()
	if list == "" {
		return false
	}
	host = strings.ToLower(host)
	for _, entry := range strings.Split(list, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if entry == "*" {
			return true
		}
		if strings.HasPrefix(entry, ".") {
			if strings.HasSuffix(host, entry) || host == entry[1:] {
				return true
			}
			continue
		}
		if host == entry {
			return true
		}
	}
	return false
}

// parseProxyURL accepts "scheme://[user:pass@]host:port" or a bare
// "host:port", matching the forms HTTP_PROXY/HTTPS_PROXY conventionally
// carry. For an "http" proxy, "user:pass" becomes a Basic
// Proxy-Authorization value; for "socks5" it is kept as "user:pass".
func parseProxyURL(raw string) (*ProxyDescriptor, error) {
	scheme := HTTP
	rest := raw
	if i := strings.Index(raw, "://"); i >= 0 {
		scheme = strings.ToLower(raw[:i])
		rest = raw[i+3:]
	}
	if scheme != HTTP && scheme != SOCK5 {
		scheme = HTTP
	}

	var auth string
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		auth = rest[:at]
		rest = rest[at+1:]
		if scheme == HTTP {
			auth = "Basic " + base64.StdEncoding.EncodeToString([]byte(auth))
		}
	}

	host, port, err := net.SplitHostPort(rest)
	if err != nil {
		host = rest
		if scheme == SOCK5 {
			port = "1080"
		} else {
			port = "8080"
		}
	}

	return &ProxyDescriptor{Scheme: scheme, Host: host, Port: port, Auth: auth}, nil
}
