/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCookieEntryIDIsDomainPathNameTriple(t *testing.T) {
	e := &cookieEntry{Domain: "example.com", Path: "/a", Name: "n"}
	assert.Equal(t, "example.com;/a;n", e.id())
}

func TestCookieEntryDomainMatchExact(t *testing.T) {
	e := &cookieEntry{Domain: "example.com", HostOnly: true}
	assert.True(t, e.domainMatch("example.com"))
	assert.False(t, e.domainMatch("www.example.com"), "HostOnly cookies don't match subdomains")
}

func TestCookieEntryDomainMatchSubdomain(t *testing.T) {
	e := &cookieEntry{Domain: "example.com", HostOnly: false}
	assert.True(t, e.domainMatch("www.example.com"))
	assert.False(t, e.domainMatch("notexample.com"))
}

func TestCookieEntryPathMatchExact(t *testing.T) {
	e := &cookieEntry{Path: "/foo"}
	assert.True(t, e.pathMatch("/foo"))
}

func TestCookieEntryPathMatchPrefixWithSlash(t *testing.T) {
	e := &cookieEntry{Path: "/foo/"}
	assert.True(t, e.pathMatch("/foo/bar"))
}

func TestCookieEntryPathMatchPrefixBoundary(t *testing.T) {
	e := &cookieEntry{Path: "/foo"}
	assert.True(t, e.pathMatch("/foo/bar"))
	assert.False(t, e.pathMatch("/foobar"), "prefix must end at a path segment boundary")
}

func TestCookieEntryShouldSendRequiresHTTPSForSecure(t *testing.T) {
	e := &cookieEntry{Domain: "example.com", Path: "/", Secure: true}
	assert.True(t, e.shouldSend(true, "example.com", "/"))
	assert.False(t, e.shouldSend(false, "example.com", "/"))
}
