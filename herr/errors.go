/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package herr is the error taxonomy for the http client core: a closed set
// of failure kinds, each optionally carrying the request that triggered it.
package herr

import "fmt"

// Kind discriminates the failure cases a request execution can raise.
// Each variant below mirrors one row of the error-handling design; New and
// Wrap build an HttpExceptionRequest carrying a Kind, and Is tests for one.
type Kind int

const (
	StatusCodeException Kind = iota
	TooManyRedirects
	OverlongHeaders
	ResponseTimeout
	ConnectionTimeout
	ConnectionFailure
	InvalidStatusLine
	InvalidHeader
	InvalidRequestHeader
	InternalException
	ProxyConnectException
	NoResponseDataReceived
	TlsNotSupported
	WrongRequestBodyStreamSize
	ResponseBodyTooShort
	InvalidChunkHeaders
	IncompleteHeaders
	InvalidDestinationHost
	HttpZlibException
	InvalidProxyEnvironmentVariable
	ConnectionClosed
	InvalidProxySettings
)

func (k Kind) String() string {
	switch k {
	case StatusCodeException:
		return "StatusCodeException"
	case TooManyRedirects:
		return "TooManyRedirects"
	case OverlongHeaders:
		return "OverlongHeaders"
	case ResponseTimeout:
		return "ResponseTimeout"
	case ConnectionTimeout:
		return "ConnectionTimeout"
	case ConnectionFailure:
		return "ConnectionFailure"
	case InvalidStatusLine:
		return "InvalidStatusLine"
	case InvalidHeader:
		return "InvalidHeader"
	case InvalidRequestHeader:
		return "InvalidRequestHeader"
	case InternalException:
		return "InternalException"
	case ProxyConnectException:
		return "ProxyConnectException"
	case NoResponseDataReceived:
		return "NoResponseDataReceived"
	case TlsNotSupported:
		return "TlsNotSupported"
	case WrongRequestBodyStreamSize:
		return "WrongRequestBodyStreamSize"
	case ResponseBodyTooShort:
		return "ResponseBodyTooShort"
	case InvalidChunkHeaders:
		return "InvalidChunkHeaders"
	case IncompleteHeaders:
		return "IncompleteHeaders"
	case InvalidDestinationHost:
		return "InvalidDestinationHost"
	case HttpZlibException:
		return "HttpZlibException"
	case InvalidProxyEnvironmentVariable:
		return "InvalidProxyEnvironmentVariable"
	case ConnectionClosed:
		return "ConnectionClosed"
	case InvalidProxySettings:
		return "InvalidProxySettings"
	default:
		return "UnknownKind"
	}
}

// RequestDescriptor is the minimal view of a request an error needs to
// carry; it avoids an import cycle with the root package, which depends on
// herr for its error returns.
type RequestDescriptor interface {
	DescribeMethod() string
	DescribeHostPort() string
	DescribePath() string
}

// HttpExceptionRequest is the sum type carrying a request-scoped failure:
// a Kind tag plus whatever payload that kind needs, and the request that was
// being executed when the failure occurred.
type HttpExceptionRequest struct {
	Request RequestDescriptor
	Kind    Kind

	// Payload fields, populated according to Kind. Unused fields are zero.
	Response        interface{} // StatusCodeException: *Response
	BodyPrefix      []byte      // StatusCodeException
	Responses       []interface{} // TooManyRedirects
	Inner           error       // ConnectionFailure, InternalException, HttpZlibException
	Raw             string      // InvalidStatusLine, InvalidHeader, InvalidRequestHeader
	Host            string      // ProxyConnectException, InvalidDestinationHost
	Port            string      // ProxyConnectException
	Status          int         // ProxyConnectException
	Expected        int64       // WrongRequestBodyStreamSize, ResponseBodyTooShort
	Actual          int64       // WrongRequestBodyStreamSize, ResponseBodyTooShort
	EnvVarName      string      // InvalidProxyEnvironmentVariable
	EnvVarValue     string      // InvalidProxyEnvironmentVariable
	Text            string      // InvalidProxySettings
}

func (e *HttpExceptionRequest) Error() string {
	where := ""
	if e.Request != nil {
		where = fmt.Sprintf(" (%s %s%s)", e.Request.DescribeMethod(), e.Request.DescribeHostPort(), e.Request.DescribePath())
	}
	switch e.Kind {
	case ProxyConnectException:
		return fmt.Sprintf("http: CONNECT to %s:%s failed with status %d%s", e.Host, e.Port, e.Status, where)
	case WrongRequestBodyStreamSize:
		return fmt.Sprintf("http: wrong request body stream size, expected %d got %d%s", e.Expected, e.Actual, where)
	case ResponseBodyTooShort:
		return fmt.Sprintf("http: response body too short, expected %d got %d%s", e.Expected, e.Actual, where)
	case InvalidDestinationHost:
		return fmt.Sprintf("http: invalid destination host %q%s", e.Host, where)
	case InvalidProxyEnvironmentVariable:
		return fmt.Sprintf("http: invalid proxy environment variable %s=%q%s", e.EnvVarName, e.EnvVarValue, where)
	case InvalidProxySettings:
		return fmt.Sprintf("http: invalid proxy settings: %s%s", e.Text, where)
	case InvalidStatusLine, InvalidHeader, InvalidRequestHeader:
		return fmt.Sprintf("http: %s: %q%s", e.Kind, e.Raw, where)
	case ConnectionFailure, InternalException, HttpZlibException:
		if e.Inner != nil {
			return fmt.Sprintf("http: %s: %v%s", e.Kind, e.Inner, where)
		}
		return fmt.Sprintf("http: %s%s", e.Kind, where)
	default:
		return fmt.Sprintf("http: %s%s", e.Kind, where)
	}
}

func (e *HttpExceptionRequest) Unwrap() error { return e.Inner }

// Is reports whether err is a *HttpExceptionRequest of the given kind,
// for idiomatic `errors.Is`/`if herr.Is(err, herr.ConnectionClosed)` checks.
func Is(err error, kind Kind) bool {
	he, ok := err.(*HttpExceptionRequest)
	return ok && he.Kind == kind
}

// New constructs a HttpExceptionRequest of the given kind for req.
func New(req RequestDescriptor, kind Kind) *HttpExceptionRequest {
	return &HttpExceptionRequest{Request: req, Kind: kind}
}

// Wrap constructs a HttpExceptionRequest of the given kind for req, wrapping
// inner.
func Wrap(req RequestDescriptor, kind Kind, inner error) *HttpExceptionRequest {
	return &HttpExceptionRequest{Request: req, Kind: kind, Inner: inner}
}

// InvalidURLException is raised without any request context, when URL
// parsing itself fails before a Request could be constructed.
type InvalidURLException struct {
	URL    string
	Reason string
}

func (e *InvalidURLException) Error() string {
	return fmt.Sprintf("http: invalid URL %q: %s", e.URL, e.Reason)
}

// ErrDeferredNotComposable is returned by reqbody.Concat when either operand
// is a Deferred body: the source spec leaves Deferred composition as a
// programmer error rather than defining well-typed semantics (spec §9 open
// question), and this implementation preserves that rather than guessing.
var ErrDeferredNotComposable = fmt.Errorf("http: Deferred request bodies cannot participate in composition")
