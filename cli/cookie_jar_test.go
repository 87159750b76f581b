/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iand675/http-client/url"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestJarSetAndGetCookiesRoundTrip(t *testing.T) {
	jar, err := NewCookie(nil)
	require.NoError(t, err)

	u := mustParseURL(t, "http://example.com/")
	jar.SetCookies(u, []*Cookie{{Name: "a", Value: "1"}})

	got := jar.Cookies(u)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "1", got[0].Value)
}

func TestJarCookiesEmptyForUnknownHost(t *testing.T) {
	jar, err := NewCookie(nil)
	require.NoError(t, err)

	jar.SetCookies(mustParseURL(t, "http://example.com/"), []*Cookie{{Name: "a", Value: "1"}})
	assert.Empty(t, jar.Cookies(mustParseURL(t, "http://other.com/")))
}

func TestJarSetCookiesOverwritesEquivCookie(t *testing.T) {
	jar, err := NewCookie(nil)
	require.NoError(t, err)
	u := mustParseURL(t, "http://example.com/")

	jar.SetCookies(u, []*Cookie{{Name: "a", Value: "1"}})
	jar.SetCookies(u, []*Cookie{{Name: "a", Value: "2"}})

	got := jar.Cookies(u)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].Value)
}

func TestJarCookiesExcludesExpired(t *testing.T) {
	jar, err := NewCookie(nil)
	require.NoError(t, err)
	u := mustParseURL(t, "http://example.com/")

	jar.SetCookies(u, []*Cookie{{Name: "a", Value: "1", MaxAge: -1}})
	assert.Empty(t, jar.Cookies(u))
}

func TestJarCookiesRequiresHTTPSForSecureCookie(t *testing.T) {
	jar, err := NewCookie(nil)
	require.NoError(t, err)

	jar.SetCookies(mustParseURL(t, "https://example.com/"), []*Cookie{{Name: "a", Value: "1", Secure: true}})

	assert.Empty(t, jar.Cookies(mustParseURL(t, "http://example.com/")))
	assert.Len(t, jar.Cookies(mustParseURL(t, "https://example.com/")), 1)
}

func TestJarCookiesOrdersLongestPathFirst(t *testing.T) {
	jar, err := NewCookie(nil)
	require.NoError(t, err)
	u := mustParseURL(t, "http://example.com/a/b")

	jar.SetCookies(u, []*Cookie{{Name: "short", Value: "1", Path: "/a"}})
	jar.SetCookies(u, []*Cookie{{Name: "long", Value: "2", Path: "/a/b"}})

	got := jar.Cookies(u)
	require.Len(t, got, 2)
	assert.Equal(t, "long", got[0].Name)
	assert.Equal(t, "short", got[1].Name)
}

func TestJarRejectsDomainCookieNotMatchingHost(t *testing.T) {
	jar, err := NewCookie(nil)
	require.NoError(t, err)
	u := mustParseURL(t, "http://example.com/")

	jar.SetCookies(u, []*Cookie{{Name: "a", Value: "1", Domain: "notexample.com"}})
	assert.Empty(t, jar.Cookies(u))
}

func TestJarAcceptsDomainCookieForSubdomain(t *testing.T) {
	jar, err := NewCookie(nil)
	require.NoError(t, err)

	jar.SetCookies(mustParseURL(t, "http://www.example.com/"), []*Cookie{{Name: "a", Value: "1", Domain: "example.com"}})
	got := jar.Cookies(mustParseURL(t, "http://other.example.com/"))
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Name)
}

func TestJarMergeNewestCreationWins(t *testing.T) {
	a, err := NewCookie(nil)
	require.NoError(t, err)
	b, err := NewCookie(nil)
	require.NoError(t, err)

	u := mustParseURL(t, "http://example.com/")
	a.SetCookies(u, []*Cookie{{Name: "a", Value: "old"}})
	time.Sleep(time.Millisecond)
	b.SetCookies(u, []*Cookie{{Name: "a", Value: "new"}})

	merged := a.Merge(b)
	got := merged.Cookies(u)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Value)
}

func TestJarMergeCombinesDisjointCookies(t *testing.T) {
	a, err := NewCookie(nil)
	require.NoError(t, err)
	b, err := NewCookie(nil)
	require.NoError(t, err)

	u := mustParseURL(t, "http://example.com/")
	a.SetCookies(u, []*Cookie{{Name: "a", Value: "1"}})
	b.SetCookies(u, []*Cookie{{Name: "b", Value: "2"}})

	merged := a.Merge(b)
	got := merged.Cookies(u)
	assert.Len(t, got, 2)
}

func TestJarMergeWithNilOtherIsCopy(t *testing.T) {
	a, err := NewCookie(nil)
	require.NoError(t, err)
	u := mustParseURL(t, "http://example.com/")
	a.SetCookies(u, []*Cookie{{Name: "a", Value: "1"}})

	merged := a.Merge(nil)
	got := merged.Cookies(u)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].Value)
}

func TestIsNewerEntryBreaksTiesOnPathLength(t *testing.T) {
	now := time.Now()
	short := cookieEntry{Creation: now, Path: "/a"}
	long := cookieEntry{Creation: now, Path: "/a/b"}
	assert.True(t, isNewerEntry(long, short))
	assert.False(t, isNewerEntry(short, long))
}
