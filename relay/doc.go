// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay answers Matrix room messages with replies from a
// text-completion provider and accepts the room invites that arrive
// along the way.
//
// Two notification streams come out of each /sync response and are
// handled independently:
//
//   - Invites addressed to the bot go to [InviteJoiner], which joins
//     the room on a detached goroutine and retries failed joins with
//     [BackoffPolicy] until the delay passes its ceiling. At most one
//     retry goroutine runs per room.
//
//   - Timeline messages go to [Dispatcher], which filters them (own
//     messages, unauthorized senders, rooms not joined, non-text
//     content), rebuilds the conversation with [ContextBuilder], asks
//     the [CompletionProvider] for a reply and posts it as markdown.
//
// Messages are handled one at a time on the sync goroutine, so a slow
// completion delays later events. No handler error is ever reported
// into a room: the room sees a reply or nothing, and the reason goes
// to the log.
//
// [Relay] ties the pieces to the sync loop in lib/service. The Matrix
// and provider dependencies are narrow interfaces ([Session],
// [CompletionProvider]) with production adapters ([MatrixSession],
// [ProviderCompleter]) so the control flow is testable without a
// homeserver.
package relay
