// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/bureau-foundation/relay/lib/ref"
	"github.com/bureau-foundation/relay/messaging"
)

// Session is the subset of a Matrix session the invite and message
// handlers act through. Implementations must be safe for concurrent
// use: invite retry goroutines call it while the sync goroutine
// dispatches messages.
type Session interface {
	// UserID is the bot's own identity.
	UserID() ref.UserID

	// RoomStatus reports the bot's membership of a room as last seen
	// in /sync.
	RoomStatus(roomID ref.RoomID) messaging.Membership

	// JoinRoom accepts the pending invite to roomID.
	JoinRoom(ctx context.Context, roomID ref.RoomID) error

	// SendReadReceipt marks eventID read.
	SendReadReceipt(ctx context.Context, roomID ref.RoomID, eventID ref.EventID) error

	// SetTyping shows or clears the composing indicator.
	SetTyping(ctx context.Context, roomID ref.RoomID, typing bool) error

	// RoomHistory returns up to limit timeline events, newest first.
	// The caller owns the returned slice.
	RoomHistory(ctx context.Context, roomID ref.RoomID, limit int) ([]messaging.Event, error)

	// SendMessage posts an m.room.message event.
	SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) error
}

// DefaultTypingTimeout is how long the homeserver shows the composing
// indicator unless it is cleared first. Completion calls rarely take
// longer; if one does, the indicator lapses early, which is harmless.
const DefaultTypingTimeout = 30 * time.Second

// MatrixSession adapts a messaging.Session and the membership tracker
// fed by the sync loop to [Session].
type MatrixSession struct {
	session       messaging.Session
	tracker       *messaging.MembershipTracker
	typingTimeout time.Duration
}

var _ Session = (*MatrixSession)(nil)

// NewMatrixSession wraps session. The tracker must be the one the sync
// handler updates, or every room will read as unknown.
func NewMatrixSession(session messaging.Session, tracker *messaging.MembershipTracker) *MatrixSession {
	return &MatrixSession{
		session:       session,
		tracker:       tracker,
		typingTimeout: DefaultTypingTimeout,
	}
}

func (s *MatrixSession) UserID() ref.UserID {
	return s.session.UserID()
}

func (s *MatrixSession) RoomStatus(roomID ref.RoomID) messaging.Membership {
	return s.tracker.Status(roomID)
}

// JoinRoom joins roomID and records it as joined right away, so
// messages arriving before the next sync confirms the join are not
// dropped as coming from a room we are not in.
func (s *MatrixSession) JoinRoom(ctx context.Context, roomID ref.RoomID) error {
	if _, err := s.session.JoinRoom(ctx, roomID); err != nil {
		return err
	}
	s.tracker.Set(roomID, messaging.MembershipJoined)
	return nil
}

func (s *MatrixSession) SendReadReceipt(ctx context.Context, roomID ref.RoomID, eventID ref.EventID) error {
	return s.session.SendReadReceipt(ctx, roomID, eventID)
}

func (s *MatrixSession) SetTyping(ctx context.Context, roomID ref.RoomID, typing bool) error {
	return s.session.SetTyping(ctx, roomID, typing, s.typingTimeout)
}

func (s *MatrixSession) RoomHistory(ctx context.Context, roomID ref.RoomID, limit int) ([]messaging.Event, error) {
	response, err := s.session.RoomMessages(ctx, roomID, messaging.RoomMessagesOptions{
		Direction: messaging.DirectionBackward,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, fmt.Errorf("relay: empty history response for %s", roomID)
	}
	return response.Chunk, nil
}

func (s *MatrixSession) SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) error {
	_, err := s.session.SendMessage(ctx, roomID, content)
	return err
}
