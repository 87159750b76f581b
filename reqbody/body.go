/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package reqbody implements the request-body model (spec C3): a tagged
// variant of fixed, lazy, and streaming bodies, their monoidal composition,
// and the canonical wire-send algorithm. Grounded on types_transfer.go's
// transferWriter field set (ContentLength/TransferEncoding/Close) for the
// framing decision, and on utils_chunks.go's chunk-line format for the
// write-side chunk framer (RFC 7230 §4.1, cited directly by spec §4.3).
package reqbody

import (
	"fmt"
	"io"
	"strconv"

	"github.com/iand675/http-client/herr"
)

// Popper returns the next body chunk, or a nil/empty slice with a nil error
// on EOF. Implementations must tolerate being invoked multiple times across
// retries: a PopperFactory, not a Popper, is what the body variants hold.
type Popper func() ([]byte, error)

// PopperFactory is a scoped-acquisition function (spec §9): it acquires
// whatever resources back the stream, hands the consumer a Popper, and
// guarantees resource release on every exit path (normal return, consumer
// error, or panic unwinding through a deferred Close in the implementation).
// A given PopperFactory MUST be safely callable more than once, since the
// owning request may be retried or redirected.
type PopperFactory func(consume func(Popper) error) error

// Kind discriminates the RequestBody variants of spec §3.
type Kind int

const (
	BytesKind Kind = iota
	BuilderKind
	StreamKind
	ChunkedStreamKind
	DeferredKind
)

// Body is the RequestBody tagged variant. Exactly the fields relevant to
// Kind are populated; the rest are zero.
type Body struct {
	Kind Kind

	// BytesKind
	Bytes []byte

	// BuilderKind: BuilderLength is the declared total length; Chunks lazily
	// produces the byte pieces that sum to it.
	BuilderLength int64
	Chunks        func() ([][]byte, error)

	// StreamKind: declared fixed length plus the streaming source.
	StreamLength int64
	Factory      PopperFactory

	// ChunkedStreamKind: unknown length, sent chunked.
	ChunkedFactory PopperFactory

	// DeferredKind: resolved at send time into one of the above.
	Resolve func() (Body, error)
}

// NewBytes builds a fully-buffered body of known length.
func NewBytes(b []byte) Body { return Body{Kind: BytesKind, Bytes: b} }

// NewBuilder builds a lazy byte-builder body of known length n.
func NewBuilder(n int64, chunks func() ([][]byte, error)) Body {
	return Body{Kind: BuilderKind, BuilderLength: n, Chunks: chunks}
}

// NewStream builds a fixed-length streaming body produced incrementally.
func NewStream(n int64, factory PopperFactory) Body {
	return Body{Kind: StreamKind, StreamLength: n, Factory: factory}
}

// NewChunkedStream builds an unknown-length body sent with chunked
// transfer-encoding.
func NewChunkedStream(factory PopperFactory) Body {
	return Body{Kind: ChunkedStreamKind, ChunkedFactory: factory}
}

// NewDeferred builds a body whose concrete variant is produced effectfully
// at send time.
func NewDeferred(resolve func() (Body, error)) Body {
	return Body{Kind: DeferredKind, Resolve: resolve}
}

// Empty is the zero-length Bytes body, the identity element for Concat.
var Empty = NewBytes(nil)

// resolveOnce dispatches Deferred down to a non-Deferred variant.
func resolveOnce(b Body) (Body, error) {
	for b.Kind == DeferredKind {
		resolved, err := b.Resolve()
		if err != nil {
			return Body{}, err
		}
		b = resolved
	}
	return b, nil
}

// Framing reports the Content-Length/Transfer-Encoding framing this body
// requires, resolving any Deferred wrapper first. For a chunked stream,
// chunked is true and contentLength is 0; otherwise contentLength is the
// exact Content-Length.
func Framing(b Body) (contentLength int64, chunked bool, err error) {
	resolved, err := resolveOnce(b)
	if err != nil {
		return 0, false, err
	}
	switch resolved.Kind {
	case BytesKind:
		return int64(len(resolved.Bytes)), false, nil
	case BuilderKind:
		return resolved.BuilderLength, false, nil
	case StreamKind:
		return resolved.StreamLength, false, nil
	case ChunkedStreamKind:
		return 0, true, nil
	default:
		return 0, false, fmt.Errorf("http: unknown request body kind %d", resolved.Kind)
	}
}

// Send writes b's bytes to w following the canonical algorithm of spec
// §4.3. onException, if non-nil, is invoked with any write error; it may
// swallow transport-failure-like errors (the caller-supplied
// onRequestBodyException policy) by returning nil, or rethrow by returning
// the error (or a different one) unchanged.
func Send(w io.Writer, b Body, onException func(error) error) error {
	err := send(w, b)
	if err != nil && onException != nil {
		return onException(err)
	}
	return err
}

func send(w io.Writer, b Body) error {
	resolved, err := resolveOnce(b)
	if err != nil {
		return err
	}
	switch resolved.Kind {
	case BytesKind:
		_, err := w.Write(resolved.Bytes)
		return err
	case BuilderKind:
		chunks, err := resolved.Chunks()
		if err != nil {
			return err
		}
		var total int64
		for _, c := range chunks {
			n, err := w.Write(c)
			total += int64(n)
			if err != nil {
				return err
			}
		}
		if total != resolved.BuilderLength {
			return &herr.HttpExceptionRequest{
				Kind:     herr.WrongRequestBodyStreamSize,
				Expected: resolved.BuilderLength,
				Actual:   total,
			}
		}
		return nil
	case StreamKind:
		var total int64
		err := resolved.Factory(func(pop Popper) error {
			for {
				chunk, err := pop()
				if err != nil {
					return err
				}
				if len(chunk) == 0 {
					return nil
				}
				n, werr := w.Write(chunk)
				total += int64(n)
				if werr != nil {
					return werr
				}
			}
		})
		if err != nil {
			return err
		}
		if total != resolved.StreamLength {
			return &herr.HttpExceptionRequest{
				Kind:     herr.WrongRequestBodyStreamSize,
				Expected: resolved.StreamLength,
				Actual:   total,
			}
		}
		return nil
	case ChunkedStreamKind:
		return resolved.ChunkedFactory(func(pop Popper) error {
			for {
				chunk, err := pop()
				if err != nil {
					return err
				}
				if len(chunk) == 0 {
					_, err := io.WriteString(w, "0\r\n\r\n")
					return err
				}
				if err := writeChunk(w, chunk); err != nil {
					return err
				}
			}
		})
	default:
		return fmt.Errorf("http: unknown request body kind %d", resolved.Kind)
	}
}

// writeChunk frames one chunk as <hex-len>\r\n<data>\r\n, the wire format
// RFC 7230 §4.1 specifies and spec §4.3 cites literally.
func writeChunk(w io.Writer, data []byte) error {
	if _, err := io.WriteString(w, strconv.FormatInt(int64(len(data)), 16)+"\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// Concat implements the body composition monoid of spec §4.3:
//   - Bytes/Builder combine into a Builder of summed length.
//   - A buffered body combined with a stream converts the buffered side
//     into a one-shot stream and delegates to the stream+stream case.
//   - Two fixed streams combine into a Stream that drains the first popper
//     to empty, then the second.
//   - If either side has unknown length, the result is ChunkedStream.
//   - Deferred cannot participate; Concat returns ErrDeferredNotComposable.
func Concat(a, b Body) (Body, error) {
	if a.Kind == DeferredKind || b.Kind == DeferredKind {
		return Body{}, herr.ErrDeferredNotComposable
	}
	if isBuffered(a) && isBuffered(b) {
		la, ba := asBuilderParts(a)
		lb, bb := asBuilderParts(b)
		return NewBuilder(la+lb, func() ([][]byte, error) {
			ca, err := ba()
			if err != nil {
				return nil, err
			}
			cb, err := bb()
			if err != nil {
				return nil, err
			}
			return append(ca, cb...), nil
		}), nil
	}
	if isBuffered(a) {
		return Concat(asStream(a), b)
	}
	if isBuffered(b) {
		return Concat(a, asStream(b))
	}
	if a.Kind == StreamKind && b.Kind == StreamKind {
		total := a.StreamLength + b.StreamLength
		return NewStream(total, func(consume func(Popper) error) error {
			return a.Factory(func(popA Popper) error {
				return b.Factory(func(popB Popper) error {
					first := true
					return consume(func() ([]byte, error) {
						if first {
							chunk, err := popA()
							if err != nil {
								return nil, err
							}
							if len(chunk) > 0 {
								return chunk, nil
							}
							first = false
						}
						return popB()
					})
				})
			})
		}), nil
	}
	// At least one side is of unknown length: fall back to chunked.
	return NewChunkedStream(func(consume func(Popper) error) error {
		return withPopper(a, func(popA Popper) error {
			return withPopper(b, func(popB Popper) error {
				first := true
				return consume(func() ([]byte, error) {
					if first {
						chunk, err := popA()
						if err != nil {
							return nil, err
						}
						if len(chunk) > 0 {
							return chunk, nil
						}
						first = false
					}
					return popB()
				})
			})
		})
	}), nil
}

func isBuffered(b Body) bool { return b.Kind == BytesKind || b.Kind == BuilderKind }

func asBuilderParts(b Body) (int64, func() ([][]byte, error)) {
	switch b.Kind {
	case BytesKind:
		bb := b.Bytes
		return int64(len(bb)), func() ([][]byte, error) { return [][]byte{bb}, nil }
	case BuilderKind:
		return b.BuilderLength, b.Chunks
	}
	return 0, func() ([][]byte, error) { return nil, nil }
}

// asStream converts a buffered body into a one-shot Stream, for the
// buffered+stream composition case.
func asStream(b Body) Body {
	n, chunks := asBuilderParts(b)
	return NewStream(n, func(consume func(Popper) error) error {
		parts, err := chunks()
		if err != nil {
			return err
		}
		i := 0
		return consume(func() ([]byte, error) {
			if i >= len(parts) {
				return nil, nil
			}
			c := parts[i]
			i++
			return c, nil
		})
	})
}

// withPopper adapts any non-Deferred body kind to the PopperFactory shape,
// for use in the unknown-length composition fallback.
func withPopper(b Body, consume func(Popper) error) error {
	switch b.Kind {
	case BytesKind, BuilderKind:
		return asStream(b).Factory(consume)
	case StreamKind:
		return b.Factory(consume)
	case ChunkedStreamKind:
		return b.ChunkedFactory(consume)
	}
	return fmt.Errorf("http: unknown request body kind %d", b.Kind)
}
