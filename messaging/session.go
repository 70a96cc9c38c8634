// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"time"

	"github.com/bureau-foundation/relay/lib/ref"
)

// Session is the set of Matrix operations the relay performs.
// *DirectSession implements it against a real homeserver; tests
// substitute in-memory fakes.
type Session interface {
	// UserID returns the fully-qualified Matrix user ID of the session.
	UserID() ref.UserID

	// Close releases any resources held by the session. Idempotent.
	Close() error

	// WhoAmI validates the session and returns the user ID.
	WhoAmI(ctx context.Context) (ref.UserID, error)

	// JoinRoom accepts an invite (or joins a public room). Returns the
	// room ID.
	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)

	// SendMessage sends an m.room.message event. Returns the event ID.
	SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (ref.EventID, error)

	// SendEvent sends an event of any type to a room. Returns the event ID.
	SendEvent(ctx context.Context, roomID ref.RoomID, eventType string, content any) (ref.EventID, error)

	// SendReadReceipt marks an event as read.
	SendReadReceipt(ctx context.Context, roomID ref.RoomID, eventID ref.EventID) error

	// SetTyping sets or clears the typing indicator.
	SetTyping(ctx context.Context, roomID ref.RoomID, typing bool, timeout time.Duration) error

	// RoomMessages fetches paginated messages from a room.
	RoomMessages(ctx context.Context, roomID ref.RoomID, options RoomMessagesOptions) (*RoomMessagesResponse, error)

	// Sync performs a sync with the homeserver.
	Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error)

	// CloseIdleConnections drops pooled connections after a transport
	// error so the next request dials fresh.
	CloseIdleConnections()
}

var _ Session = (*DirectSession)(nil)
