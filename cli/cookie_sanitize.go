/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cli

import (
	"strings"
	"time"
)

// isCookieNameValid reports whether name is a valid RFC 6265 §4.1.1 cookie
// name (a non-empty token). Grounded on net/http/cookie.go's isCookieNameValid,
// since neither the teacher nor the rest of the pack defines this check —
// reimplemented against the same token-byte rule httpguts.IsTokenRune uses.
func isCookieNameValid(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !isTokenRune(r) {
			return false
		}
	}
	return true
}

func isTokenRune(r rune) bool {
	return r > 0x20 && r < 0x7f && strings.IndexRune("()<>@,;:\\\"/[]?={} \t", r) < 0
}

// validCookieValueByte reports whether b may appear unescaped inside a
// cookie-value per RFC 6265 §4.1.1's cookie-octet grammar.
func validCookieValueByte(b byte) bool {
	return 0x20 <= b && b < 0x7f && b != '"' && b != ';' && b != '\\'
}

// sanitizeCookieName replaces each CR, LF and semicolon with '-', since they
// would otherwise let a cookie name smuggle extra header syntax onto the wire.
func sanitizeCookieName(n string) string {
	return strings.NewReplacer("\n", "-", "\r", "-", ";", "-").Replace(n)
}

// sanitizeCookieValue drops every byte that fails validCookieValueByte, then
// wraps the result in double quotes if it contains a space or a comma.
func sanitizeCookieValue(v string) string {
	v = sanitizeOrWarn(v)
	if len(v) == 0 {
		return v
	}
	if strings.IndexByte(v, ' ') >= 0 || strings.IndexByte(v, ',') >= 0 {
		return `"` + v + `"`
	}
	return v
}

func sanitizeOrWarn(v string) string {
	ok := true
	for i := 0; i < len(v); i++ {
		if validCookieValueByte(v[i]) {
			continue
		}
		ok = false
		break
	}
	if ok {
		return v
	}
	buf := make([]byte, 0, len(v))
	for i := 0; i < len(v); i++ {
		if b := v[i]; validCookieValueByte(b) {
			buf = append(buf, b)
		}
	}
	return string(buf)
}

// validCookieDomain reports whether d is a syntactically valid Domain
// attribute: an IP literal, or a name containing no forbidden characters.
func validCookieDomain(d string) bool {
	if isIP(d) {
		return true
	}
	if len(d) == 0 {
		return false
	}
	if d[0] == '.' {
		// A leading dot is allowed; it is not part of the name itself.
		d = d[1:]
		if len(d) == 0 {
			return false
		}
	}
	if d[0] == '-' || d[len(d)-1] == '-' || d[0] == '.' || d[len(d)-1] == '.' {
		return false
	}
	for i := 0; i < len(d); i++ {
		b := d[i]
		if !('a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' || '0' <= b && b <= '9' || b == '-' || b == '.') {
			return false
		}
	}
	return true
}

// validCookieExpires rejects years before 1601 (the minimum year
// representable in the wire Expires format), matching net/http's guard.
func validCookieExpires(t time.Time) bool {
	return t.Year() >= 1601
}
