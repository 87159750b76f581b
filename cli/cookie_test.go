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

func TestCookieStringBasic(t *testing.T) {
	c := &Cookie{Name: "session", Value: "abc123"}
	assert.Equal(t, "session=abc123", c.String())
}

func TestCookieStringWithAttributes(t *testing.T) {
	c := &Cookie{
		Name:     "session",
		Value:    "abc123",
		Path:     "/app",
		Domain:   "example.com",
		Secure:   true,
		HttpOnly: true,
	}
	s := c.String()
	assert.Contains(t, s, "session=abc123")
	assert.Contains(t, s, "; Path=/app")
	assert.Contains(t, s, "; Domain=example.com")
	assert.Contains(t, s, "; HttpOnly")
	assert.Contains(t, s, "; Secure")
}

func TestCookieStringQuotesValueWithSpace(t *testing.T) {
	c := &Cookie{Name: "n", Value: "has space"}
	assert.Equal(t, `n="has space"`, c.String())
}

func TestCookieStringRejectsInvalidName(t *testing.T) {
	c := &Cookie{Name: "bad name", Value: "v"}
	assert.Equal(t, "", c.String())
}

func TestCookieStringNilReceiver(t *testing.T) {
	var c *Cookie
	assert.Equal(t, "", c.String())
}

func TestCookieStringNegativeMaxAge(t *testing.T) {
	c := &Cookie{Name: "n", Value: "v", MaxAge: -1}
	assert.Contains(t, c.String(), "; Max-Age=0")
}

func TestCookieStringPositiveMaxAge(t *testing.T) {
	c := &Cookie{Name: "n", Value: "v", MaxAge: 3600}
	assert.Contains(t, c.String(), "; Max-Age=3600")
}

func TestCookieEqualComparesAllFields(t *testing.T) {
	now := time.Now()
	a := &Cookie{Name: "n", Value: "v", CreationTime: now, LastAccessTime: now}
	b := &Cookie{Name: "n", Value: "v", CreationTime: now, LastAccessTime: now}
	assert.True(t, a.Equal(b))

	c := &Cookie{Name: "n", Value: "different", CreationTime: now, LastAccessTime: now}
	assert.False(t, a.Equal(c))
}

func TestCookieEqualNilHandling(t *testing.T) {
	var a, b *Cookie
	assert.True(t, a.Equal(b))

	c := &Cookie{Name: "n"}
	assert.False(t, a.Equal(c))
	assert.False(t, c.Equal(a))
}

func TestCookieEquivIgnoresValueAndAttributes(t *testing.T) {
	a := &Cookie{Name: "n", Value: "v1", Domain: "Example.com", Path: "/p", Secure: true}
	b := &Cookie{Name: "n", Value: "v2", Domain: "example.COM", Path: "/p", Secure: false}
	assert.True(t, a.Equiv(b))
}

func TestCookieEquivDiffersOnNameOrPath(t *testing.T) {
	a := &Cookie{Name: "n", Domain: "example.com", Path: "/p"}
	b := &Cookie{Name: "other", Domain: "example.com", Path: "/p"}
	assert.False(t, a.Equiv(b))

	c := &Cookie{Name: "n", Domain: "example.com", Path: "/other"}
	assert.False(t, a.Equiv(c))
}
