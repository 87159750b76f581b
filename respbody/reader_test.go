/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package respbody

import (
	"bytes"
	"compress/gzip"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iand675/http-client/conn"
	"github.com/iand675/http-client/herr"
)

func pipeConnection(t *testing.T) (*conn.Connection, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { server.Close() })
	return conn.NewConnection(client), server
}

func drainAll(t *testing.T, br BodyReader) []byte {
	t.Helper()
	var out []byte
	for {
		chunk, err := br()
		require.NoError(t, err)
		if len(chunk) == 0 {
			return out
		}
		out = append(out, chunk...)
	}
}

func TestContentLengthFramingReadsExactly(t *testing.T) {
	c, server := pipeConnection(t)
	go func() { server.Write([]byte("hello")) }()

	br, closeBody, err := New(c, 5, false, "", "", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(drainAll(t, br)))
	require.NoError(t, closeBody())
}

func TestContentLengthFramingTooShortErrors(t *testing.T) {
	c, server := pipeConnection(t)
	go func() {
		server.Write([]byte("ab"))
		server.Close()
	}()

	br, _, err := New(c, 5, false, "", "", nil, false)
	require.NoError(t, err)
	chunk, err := br()
	assert.Equal(t, "ab", string(chunk))
	require.NoError(t, err)

	_, err = br()
	require.Error(t, err)
	he, ok := err.(*herr.HttpExceptionRequest)
	require.True(t, ok)
	assert.Equal(t, herr.ResponseBodyTooShort, he.Kind)
}

func TestUntilCloseFramingReadsToEOF(t *testing.T) {
	c, server := pipeConnection(t)
	go func() {
		server.Write([]byte("streamed"))
		server.Close()
	}()

	br, _, err := New(c, -1, false, "", "", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "streamed", string(drainAll(t, br)))
}

func TestChunkedFramingDecodesChunks(t *testing.T) {
	c, server := pipeConnection(t)
	go func() { server.Write([]byte("4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n")) }()

	br, closeBody, err := New(c, 0, true, "", "", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "Wikipedia", string(drainAll(t, br)))
	require.NoError(t, closeBody())
}

func TestChunkedFramingStripsExtensions(t *testing.T) {
	c, server := pipeConnection(t)
	go func() { server.Write([]byte("3;foo=bar\r\nabc\r\n0\r\n\r\n")) }()

	br, _, err := New(c, 0, true, "", "", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(drainAll(t, br)))
}

func TestChunkedFramingRejectsInvalidChunkSize(t *testing.T) {
	c, server := pipeConnection(t)
	go func() { server.Write([]byte("zzz\r\n")) }()

	br, _, err := New(c, 0, true, "", "", nil, false)
	require.NoError(t, err)
	_, err = br()
	require.Error(t, err)
	he, ok := err.(*herr.HttpExceptionRequest)
	require.True(t, ok)
	assert.Equal(t, herr.InvalidChunkHeaders, he.Kind)
}

func TestGzipDecompressionAppliedWhenRequested(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write([]byte("decompressed body"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	c, server := pipeConnection(t)
	go func() { server.Write(gz.Bytes()) }()

	br, _, err := New(c, int64(gz.Len()), false, "gzip", "text/plain", func(string) bool { return true }, false)
	require.NoError(t, err)
	assert.Equal(t, "decompressed body", string(drainAll(t, br)))
}

func TestRawBodySkipsDecompression(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	raw := gz.Bytes()

	c, server := pipeConnection(t)
	go func() { server.Write(raw) }()

	br, _, err := New(c, int64(len(raw)), false, "gzip", "text/plain", func(string) bool { return true }, true)
	require.NoError(t, err)
	assert.Equal(t, raw, drainAll(t, br))
}
