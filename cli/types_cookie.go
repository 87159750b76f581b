/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cli

import (
	"strings"
	"time"
)

// A Cookie represents an HTTP cookie as sent in the Set-Cookie header of an
// HTTP response or the Cookie header of an HTTP request.
//
// See http://tools.ietf.org/html/rfc6265 for details.
type Cookie struct {
	Name  string
	Value string

	Path       string    // optional
	Domain     string    // optional
	Expires    time.Time // optional
	RawExpires string    // for reading cookies only

	// MaxAge=0 means no 'Max-Age' attribute specified.
	// MaxAge<0 means delete cookie now, equivalently 'Max-Age: 0'
	// MaxAge>0 means Max-Age attribute present and given in seconds
	MaxAge   int
	Secure   bool
	HttpOnly bool
	Raw      string
	Unparsed []string // Raw text of unparsed attribute-value pairs

	// CreationTime and LastAccessTime are jar-management timestamps, not
	// wire attributes: CreationTime orders Jar.Merge's "newest wins" rule
	// and LastAccessTime is updated whenever the cookie is sent.
	CreationTime   time.Time
	LastAccessTime time.Time

	// Persistent reports whether the cookie survives past the current
	// session, i.e. whether Expires or MaxAge was set (RFC 6265 §5.3).
	Persistent bool

	// HostOnly reports whether the cookie was stored without a Domain
	// attribute and therefore applies only to the exact request host
	// (RFC 6265 §5.3), rather than the host and its subdomains.
	HostOnly bool
}

// Equal is bit-equality: every field, including the jar-management ones,
// matches exactly. Two Cookie values read moments apart from the same
// Set-Cookie header are Equal only if CreationTime/LastAccessTime were
// stamped identically.
func (c *Cookie) Equal(other *Cookie) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Name != other.Name || c.Value != other.Value ||
		c.Path != other.Path || c.Domain != other.Domain ||
		!c.Expires.Equal(other.Expires) || c.RawExpires != other.RawExpires ||
		c.MaxAge != other.MaxAge || c.Secure != other.Secure ||
		c.HttpOnly != other.HttpOnly || c.Raw != other.Raw ||
		c.Persistent != other.Persistent || c.HostOnly != other.HostOnly ||
		!c.CreationTime.Equal(other.CreationTime) || !c.LastAccessTime.Equal(other.LastAccessTime) {
		return false
	}
	if len(c.Unparsed) != len(other.Unparsed) {
		return false
	}
	for i := range c.Unparsed {
		if c.Unparsed[i] != other.Unparsed[i] {
			return false
		}
	}
	return true
}

// Equiv is the jar-identity relation of RFC 6265 §5.3: two cookies occupy
// the same slot in a jar iff they share a name, a case-folded domain, and a
// path — regardless of value, expiry, or any other attribute. A Jar never
// holds two Equiv cookies at once; storing a new one overwrites the old.
func (c *Cookie) Equiv(other *Cookie) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Name == other.Name &&
		strings.EqualFold(c.Domain, other.Domain) &&
		c.Path == other.Path
}
