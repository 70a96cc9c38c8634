// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated, immutable value types for the Matrix
// identifiers the relay handles: user IDs, room IDs, and event IDs.
//
// Identifiers arrive as strings from the homeserver (sync responses,
// room history) and from configuration (the bot's own user ID, the
// authorized sender list). They are parsed into these types at the
// boundary so that the rest of the code never compares or routes on
// unvalidated strings.
//
// All three types implement encoding.TextMarshaler and
// encoding.TextUnmarshaler, so they can be used directly as JSON
// fields and as JSON object keys. An empty JSON string decodes to the
// zero value; use IsZero to detect it.
package ref
