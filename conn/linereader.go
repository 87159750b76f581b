/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package conn

import (
	"github.com/iand675/http-client/herr"
)

// MaxLineBytes bounds a single CRLF-terminated line (status line or one
// header line) before its terminating LF, per spec §4.2. Grounded on
// src/http/tport/persist_conn.go's maxHeaderResponseSize bound.
const MaxLineBytes = 4096

// ReadLine reads from c until the first LF (0x0A), strips a single trailing
// CR if present, and returns the line without its terminator. Any bytes read
// past the LF are pushed back via Unread so the next reader (header block,
// or body) sees them. Fails with IncompleteHeaders on EOF before any LF, and
// with OverlongHeaders if more than MaxLineBytes accumulate without one.
func ReadLine(c *Connection) ([]byte, error) {
	var buf []byte
	chunk := make([]byte, 256)
	for {
		n, err := c.Read(chunk)
		if n > 0 {
			data := chunk[:n]
			if idx := indexByte(data, '\n'); idx >= 0 {
				buf = append(buf, data[:idx]...)
				if len(buf) > MaxLineBytes {
					return nil, herr.New(nil, herr.OverlongHeaders)
				}
				if rest := data[idx+1:]; len(rest) > 0 {
					remainder := make([]byte, len(rest))
					copy(remainder, rest)
					c.Unread(remainder)
				}
				if len(buf) > 0 && buf[len(buf)-1] == '\r' {
					buf = buf[:len(buf)-1]
				}
				return buf, nil
			}
			buf = append(buf, data...)
			if len(buf) > MaxLineBytes {
				return nil, herr.New(nil, herr.OverlongHeaders)
			}
		}
		if err != nil {
			return nil, herr.New(nil, herr.IncompleteHeaders)
		}
		if n == 0 {
			return nil, herr.New(nil, herr.IncompleteHeaders)
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// DropTillBlankLine repeatedly reads lines until an empty line is seen; used
// to discard 1xx informational bodies and to skip a CONNECT tunnel's
// response body (spec §4.2).
func DropTillBlankLine(c *Connection) error {
	for {
		line, err := ReadLine(c)
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
	}
}
