// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/relay/lib/clock"
	"github.com/bureau-foundation/relay/messaging"
)

// SyncConfig configures the Matrix /sync long-poll loop.
type SyncConfig struct {
	// Filter is the inline JSON filter restricting which event types
	// the homeserver returns.
	Filter string

	// Timeout is the long-poll timeout in milliseconds. The homeserver
	// holds the connection open for this duration when no events are
	// available, then returns an empty response. Default: 30000 (30s).
	Timeout int

	// MaxBackoff is the maximum duration between retry attempts on
	// transient /sync errors. The loop uses exponential backoff
	// starting at 1 second. Default: 30 seconds.
	MaxBackoff time.Duration
}

// SyncHandler is called for each /sync response. The next /sync poll
// starts after the handler returns, so a slow handler delays every
// later event.
type SyncHandler func(ctx context.Context, response *messaging.SyncResponse)

// InitialSync performs the first Matrix /sync with no since token to
// obtain a full state snapshot. Returns the next_batch token for the
// incremental loop and the full response for the caller to build
// initial state from.
//
// Unlike incremental sync, this returns immediately: the homeserver
// sends the current state without waiting for new events.
func InitialSync(ctx context.Context, session messaging.Session, filter string) (string, *messaging.SyncResponse, error) {
	response, err := session.Sync(ctx, messaging.SyncOptions{
		Filter: filter,
	})
	if err != nil {
		return "", nil, fmt.Errorf("initial sync: %w", err)
	}
	return response.NextBatch, response, nil
}

// RunSyncLoop runs the incremental Matrix /sync long-poll loop. It
// polls the homeserver with the given since token and calls handler
// for each response. The loop continues until ctx is cancelled, and
// then returns nil.
//
// On transient errors the loop drops pooled connections and retries
// with exponential backoff (1 second to config.MaxBackoff). An
// M_UNKNOWN_TOKEN response means the session was logged out; retrying
// cannot succeed, so the loop returns that error.
//
// The caller is responsible for performing the initial sync (via
// InitialSync) and processing that response before starting this
// loop.
func RunSyncLoop(ctx context.Context, session messaging.Session, config SyncConfig, sinceToken string, handler SyncHandler, clk clock.Clock, logger *slog.Logger) error {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30000
	}
	maxBackoff := config.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = 30 * time.Second
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		options := messaging.SyncOptions{
			Since:      sinceToken,
			Timeout:    timeout,
			SetTimeout: true,
			Filter:     config.Filter,
		}

		response, err := session.Sync(ctx, options)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if messaging.IsMatrixError(err, messaging.ErrCodeUnknownToken) {
				return fmt.Errorf("sync: session no longer valid: %w", err)
			}
			logger.Error("sync failed, retrying", "error", err, "backoff", backoff)
			session.CloseIdleConnections()
			select {
			case <-ctx.Done():
				return nil
			case <-clk.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = time.Second
		sinceToken = response.NextBatch

		handler(ctx, response)
	}
}
