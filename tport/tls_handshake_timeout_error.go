/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package tport

// TLSHandshakeTimeoutError is returned when a TLS handshake does not
// complete within the manager's dial timeout.
type TLSHandshakeTimeoutError struct{}

func (TLSHandshakeTimeoutError) Timeout() bool { return true }

func (TLSHandshakeTimeoutError) Temporary() bool { return true }

func (TLSHandshakeTimeoutError) Error() string {
	return "github.com/iand675/http-client/tport: TLS handshake timeout"
}
