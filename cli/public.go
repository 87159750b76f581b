/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cli

import (
	"fmt"
	"strings"

	httpclient "github.com/iand675/http-client"
	"github.com/iand675/http-client/hdr"
)

// NewCookie returns a new, empty Jar. A nil *Options is equivalent to a
// zero Options (no PublicSuffixList, so jar keys fall back to the
// one-label-above-the-TLD heuristic in jarKey).
func NewCookie(o *Options) (*Jar, error) {
	jar := &Jar{entries: make(map[string]map[string]cookieEntry)}
	if o != nil {
		jar.psList = o.PublicSuffixList
	}
	return jar, nil
}

// ReqCookies parses and returns the HTTP cookies sent with the request's
// Cookie header(s).
func ReqCookies(fromReq *httpclient.Request) []*Cookie {
	var lines []string
	for _, f := range fromReq.RequestHeaders {
		if strings.EqualFold(f.Name, hdr.CookieHeader) {
			lines = append(lines, f.Value)
		}
	}
	return readCookies(lines, "")
}

// RespCookies parses and returns the cookies set in the response's
// Set-Cookie headers.
func RespCookies(fromResp *httpclient.Response) []*Cookie {
	return readSetCookies(fromResp.Header[hdr.SetCookieHeader])
}

// GetCookie returns the named cookie provided in the request, or
// ErrNoCookie if not found. If multiple cookies match the given name, only
// one is returned.
func GetCookie(name string, fromReq *httpclient.Request) (*Cookie, error) {
	for _, c := range ReqCookies(fromReq) {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, errNoCookie
}

// AddCookie appends (name, sanitized value) to req's Cookie header field.
// Per RFC 6265 §5.4, all cookies are written into the same header line,
// separated by semicolons, rather than one Cookie header per cookie.
func AddCookie(c *Cookie, req *httpclient.Request) {
	s := fmt.Sprintf("%s=%s", sanitizeCookieName(c.Name), sanitizeCookieValue(c.Value))
	for i, f := range req.RequestHeaders {
		if strings.EqualFold(f.Name, hdr.CookieHeader) {
			req.RequestHeaders[i].Value = f.Value + "; " + s
			return
		}
	}
	req.RequestHeaders = append(req.RequestHeaders, httpclient.HeaderField{Name: hdr.CookieHeader, Value: s})
}

var errNoCookie = fmt.Errorf("http: named cookie not present")
