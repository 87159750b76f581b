/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDomainOrSubdomain(t *testing.T) {
	assert.True(t, isDomainOrSubdomain("example.com", "example.com"))
	assert.True(t, isDomainOrSubdomain("www.example.com", "example.com"))
	assert.False(t, isDomainOrSubdomain("notexample.com", "example.com"))
	assert.False(t, isDomainOrSubdomain("example.com", "www.example.com"))
}

func TestCanonicalHostStripsPortAndLowercases(t *testing.T) {
	host, err := canonicalHost("Example.COM:8080")
	require.NoError(t, err)
	assert.Equal(t, "example.com", host)
}

func TestCanonicalHostStripsTrailingDot(t *testing.T) {
	host, err := canonicalHost("example.com.")
	require.NoError(t, err)
	assert.Equal(t, "example.com", host)
}

func TestHasPortDetectsVariousForms(t *testing.T) {
	assert.False(t, hasPort("example.com"))
	assert.True(t, hasPort("example.com:80"))
	assert.True(t, hasPort("[::1]:80"))
	assert.False(t, hasPort("::1"))
}

func TestJarKeyWithoutPublicSuffixList(t *testing.T) {
	assert.Equal(t, "example.com", jarKey("www.example.com", nil))
	assert.Equal(t, "example.com", jarKey("example.com", nil))
	assert.Equal(t, "localhost", jarKey("localhost", nil))
}

func TestJarKeyForIPIsHostItself(t *testing.T) {
	assert.Equal(t, "192.168.1.1", jarKey("192.168.1.1", nil))
}

func TestDefaultPathRules(t *testing.T) {
	assert.Equal(t, "/", defaultPath(""))
	assert.Equal(t, "/", defaultPath("nope"))
	assert.Equal(t, "/", defaultPath("/abc"))
	assert.Equal(t, "/abc", defaultPath("/abc/xyz"))
	assert.Equal(t, "/abc/xyz", defaultPath("/abc/xyz/"))
}

func TestToASCIIPassesThroughPureASCII(t *testing.T) {
	out, err := toASCII("golang.org")
	require.NoError(t, err)
	assert.Equal(t, "golang.org", out)
}

func TestToASCIIPunycodesUnicodeLabel(t *testing.T) {
	out, err := toASCII("bücher.example.com")
	require.NoError(t, err)
	assert.Equal(t, "xn--bcher-kva.example.com", out)
}

func TestReadCookiesParsesMultipleCookiesInOneHeader(t *testing.T) {
	cookies := readCookies([]string{"a=1; b=2"}, "")
	require.Len(t, cookies, 2)
	assert.Equal(t, "a", cookies[0].Name)
	assert.Equal(t, "1", cookies[0].Value)
	assert.Equal(t, "b", cookies[1].Name)
	assert.Equal(t, "2", cookies[1].Value)
}

func TestReadCookiesFiltersByName(t *testing.T) {
	cookies := readCookies([]string{"a=1; b=2"}, "b")
	require.Len(t, cookies, 1)
	assert.Equal(t, "b", cookies[0].Name)
}

func TestReadCookiesSkipsInvalidName(t *testing.T) {
	cookies := readCookies([]string{"bad name=1; ok=2"}, "")
	require.Len(t, cookies, 1)
	assert.Equal(t, "ok", cookies[0].Name)
}

func TestReadSetCookiesParsesAttributes(t *testing.T) {
	cookies := readSetCookies([]string{"session=abc; Path=/; Domain=example.com; Secure; HttpOnly; Max-Age=3600"})
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "session", c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, "example.com", c.Domain)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 3600, c.MaxAge)
}

func TestReadSetCookiesNegativeMaxAgeFromZero(t *testing.T) {
	cookies := readSetCookies([]string{"a=1; Max-Age=0"})
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestReadSetCookiesSkipsMissingEquals(t *testing.T) {
	cookies := readSetCookies([]string{"notacookie"})
	assert.Empty(t, cookies)
}

func TestParseCookieValueStripsQuotes(t *testing.T) {
	v, ok := parseCookieValue(`"quoted"`, true)
	require.True(t, ok)
	assert.Equal(t, "quoted", v)
}

func TestParseCookieValueRejectsInvalidByte(t *testing.T) {
	_, ok := parseCookieValue("has;semi", true)
	assert.False(t, ok)
}
