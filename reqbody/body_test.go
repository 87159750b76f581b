/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package reqbody

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iand675/http-client/herr"
)

func TestFramingBytes(t *testing.T) {
	cl, chunked, err := Framing(NewBytes([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, int64(5), cl)
	assert.False(t, chunked)
}

func TestFramingChunkedStream(t *testing.T) {
	cl, chunked, err := Framing(NewChunkedStream(func(func(Popper) error) error { return nil }))
	require.NoError(t, err)
	assert.Equal(t, int64(0), cl)
	assert.True(t, chunked)
}

func TestFramingResolvesDeferred(t *testing.T) {
	b := NewDeferred(func() (Body, error) { return NewBytes([]byte("abc")), nil })
	cl, chunked, err := Framing(b)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cl)
	assert.False(t, chunked)
}

func TestSendBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Send(&buf, NewBytes([]byte("payload")), nil))
	assert.Equal(t, "payload", buf.String())
}

func TestSendBuilderMismatchedLength(t *testing.T) {
	var buf bytes.Buffer
	b := NewBuilder(10, func() ([][]byte, error) { return [][]byte{[]byte("short")}, nil })
	err := Send(&buf, b, nil)
	require.Error(t, err)
	he, ok := err.(*herr.HttpExceptionRequest)
	require.True(t, ok)
	assert.Equal(t, herr.WrongRequestBodyStreamSize, he.Kind)
	assert.Equal(t, int64(10), he.Expected)
	assert.Equal(t, int64(5), he.Actual)
}

func TestSendChunkedStreamFraming(t *testing.T) {
	parts := [][]byte{[]byte("ab"), []byte("cde")}
	i := 0
	b := NewChunkedStream(func(consume func(Popper) error) error {
		return consume(func() ([]byte, error) {
			if i >= len(parts) {
				return nil, nil
			}
			p := parts[i]
			i++
			return p, nil
		})
	})
	var buf bytes.Buffer
	require.NoError(t, Send(&buf, b, nil))
	assert.Equal(t, "2\r\nab\r\n3\r\ncde\r\n0\r\n\r\n", buf.String())
}

func TestSendOnExceptionCanSwallowError(t *testing.T) {
	boom := errors.New("boom")
	b := NewStream(1, func(consume func(Popper) error) error {
		return consume(func() ([]byte, error) { return nil, boom })
	})
	err := Send(&bytes.Buffer{}, b, func(error) error { return nil })
	assert.NoError(t, err)
}

func streamOf(chunks ...[]byte) Body {
	total := int64(0)
	for _, c := range chunks {
		total += int64(len(c))
	}
	i := 0
	return NewStream(total, func(consume func(Popper) error) error {
		return consume(func() ([]byte, error) {
			if i >= len(chunks) {
				return nil, nil
			}
			c := chunks[i]
			i++
			return c, nil
		})
	})
}

func TestConcatBufferedPlusBufferedIsBuilder(t *testing.T) {
	merged, err := Concat(NewBytes([]byte("foo")), NewBytes([]byte("bar")))
	require.NoError(t, err)
	assert.Equal(t, BuilderKind, merged.Kind)
	assert.Equal(t, int64(6), merged.BuilderLength)

	var buf bytes.Buffer
	require.NoError(t, Send(&buf, merged, nil))
	assert.Equal(t, "foobar", buf.String())
}

func TestConcatBufferedPlusStreamIsStream(t *testing.T) {
	merged, err := Concat(NewBytes([]byte("foo")), streamOf([]byte("bar")))
	require.NoError(t, err)
	assert.Equal(t, StreamKind, merged.Kind)

	var buf bytes.Buffer
	require.NoError(t, Send(&buf, merged, nil))
	assert.Equal(t, "foobar", buf.String())
}

func TestConcatStreamPlusStreamDrainsInOrder(t *testing.T) {
	merged, err := Concat(streamOf([]byte("foo")), streamOf([]byte("bar")))
	require.NoError(t, err)
	assert.Equal(t, StreamKind, merged.Kind)

	var buf bytes.Buffer
	require.NoError(t, Send(&buf, merged, nil))
	assert.Equal(t, "foobar", buf.String())
}

func TestConcatUnknownLengthFallsBackToChunked(t *testing.T) {
	merged, err := Concat(NewBytes([]byte("foo")), NewChunkedStream(func(consume func(Popper) error) error {
		return consume(func() ([]byte, error) { return nil, nil })
	}))
	require.NoError(t, err)
	assert.Equal(t, ChunkedStreamKind, merged.Kind)
}

func TestConcatDeferredIsNotComposable(t *testing.T) {
	_, err := Concat(NewDeferred(func() (Body, error) { return Empty, nil }), NewBytes(nil))
	assert.Equal(t, herr.ErrDeferredNotComposable, err)

	_, err = Concat(NewBytes(nil), NewDeferred(func() (Body, error) { return Empty, nil }))
	assert.Equal(t, herr.ErrDeferredNotComposable, err)
}

func TestEmptyIsIdentityForConcat(t *testing.T) {
	merged, err := Concat(Empty, NewBytes([]byte("x")))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Send(&buf, merged, nil))
	assert.Equal(t, "x", buf.String())
}
