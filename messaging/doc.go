// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the subset of the Matrix client-server API the
// relay needs.
//
// [Client] is unauthenticated: it holds the homeserver base URL and the
// HTTP transport, and turns a username/password into a [DirectSession]
// via Login. [DiscoverHomeserver] resolves the base URL from a user ID's
// server name through /.well-known/matrix/client.
//
// [DirectSession] carries the access token (in a secret.Buffer) and
// performs the authenticated calls: /sync long-polling, joining rooms,
// read receipts, typing notifications, paginated room history and
// message sends with idempotent transaction IDs. [Session] is the
// interface over those calls, so callers can substitute fakes.
//
// [MembershipTracker] folds /sync responses into a per-room membership
// view (invited, joined, left). It is what answers "is the bot in this
// room" without an extra request.
//
// All API errors are returned as [*MatrixError] with the Matrix error
// code (M_FORBIDDEN, M_NOT_FOUND, ...) and HTTP status. [IsMatrixError]
// tests for a specific code. Request URLs are built by concatenation
// with url.PathEscape'd segments rather than url.URL to avoid
// double-encoding room and event IDs.
package messaging
