/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsCookieNameValid(t *testing.T) {
	assert.True(t, isCookieNameValid("session_id"))
	assert.False(t, isCookieNameValid(""))
	assert.False(t, isCookieNameValid("has space"))
	assert.False(t, isCookieNameValid("has;semi"))
}

func TestSanitizeCookieNameStripsControlChars(t *testing.T) {
	assert.Equal(t, "a-b-c", sanitizeCookieName("a\nb\rc"))
	assert.Equal(t, "a-b", sanitizeCookieName("a;b"))
}

func TestSanitizeCookieValueQuotesOnSpaceOrComma(t *testing.T) {
	assert.Equal(t, `"a b"`, sanitizeCookieValue("a b"))
	assert.Equal(t, `"a,b"`, sanitizeCookieValue("a,b"))
	assert.Equal(t, "abc", sanitizeCookieValue("abc"))
}

func TestSanitizeCookieValueDropsInvalidBytes(t *testing.T) {
	assert.Equal(t, "ab", sanitizeCookieValue("a\"b"))
}

func TestValidCookieDomainAcceptsIPAndName(t *testing.T) {
	assert.True(t, validCookieDomain("192.168.1.1"))
	assert.True(t, validCookieDomain("example.com"))
	assert.False(t, validCookieDomain(""))
	assert.False(t, validCookieDomain("-example.com"))
	assert.False(t, validCookieDomain("example.com-"))
	assert.False(t, validCookieDomain("exa mple.com"))
}

func TestValidCookieExpiresRejectsPre1601(t *testing.T) {
	assert.False(t, validCookieExpires(time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, validCookieExpires(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestValidCookieValueByte(t *testing.T) {
	assert.True(t, validCookieValueByte('a'))
	assert.False(t, validCookieValueByte('"'))
	assert.False(t, validCookieValueByte(';'))
	assert.False(t, validCookieValueByte('\\'))
}
