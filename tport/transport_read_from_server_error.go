/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package tport

import "fmt"

// TransportReadFromServerError wraps a read failure observed while waiting
// for a response, distinguishing "we never heard back" from a parse error
// on what we did receive.
type TransportReadFromServerError struct {
	Err error
}

func (e TransportReadFromServerError) Error() string {
	return fmt.Sprintf("github.com/iand675/http-client/tport: failed to read from server: %v", e.Err)
}

func (e TransportReadFromServerError) Unwrap() error { return e.Err }
