// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds HTTP response body reads for the JSON APIs the
// relay talks to (Matrix client-server API, completion provider).
package netutil

import "io"

// MaxResponseSize caps JSON API response reads at 64 MB. Room history
// pages and completion responses are orders of magnitude smaller; the
// cap only stops a misbehaving server from exhausting memory.
const MaxResponseSize int64 = 64 << 20

// maxErrorBody caps how much of an error response ends up in an error
// message.
const maxErrorBody int64 = 4096

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ErrorBody reads the head of an error response for diagnostics. Read
// errors are ignored: a partial body is still useful in a log line.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return string(data)
}
