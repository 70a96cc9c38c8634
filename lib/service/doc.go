// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the process scaffolding a long-running
// Matrix bot needs, independent of what the bot does with events:
//
//   - Logging: a slog logger that writes text to a terminal and JSON
//     everywhere else.
//   - Session setup: homeserver discovery, password login, and a
//     whoami check of the resulting session.
//   - Sync loop: the initial /sync snapshot followed by the incremental
//     long-poll loop with backoff, delivering each response to a
//     caller-provided handler.
//   - HTTP server: a TCP listener with graceful shutdown, used to
//     expose metrics.
//
// Binaries compose these in their own main() rather than subclassing
// a framework. The package provides building blocks, not a runtime.
package service
