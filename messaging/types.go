// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"

	"github.com/bureau-foundation/relay/lib/ref"
	"github.com/bureau-foundation/relay/lib/secret"
)

// LoginRequest holds parameters for password login. The caller retains
// ownership of Password; Login reads it but does not close it.
type LoginRequest struct {
	UserID            ref.UserID
	Password          *secret.Buffer
	DeviceDisplayName string
}

// loginWireRequest is the JSON body for POST /login.
type loginWireRequest struct {
	Type                     string          `json:"type"`
	Identifier               loginIdentifier `json:"identifier"`
	Password                 string          `json:"password"`
	InitialDeviceDisplayName string          `json:"initial_device_display_name,omitempty"`
}

type loginIdentifier struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// AuthResponse is returned by login.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
}

// Event is a Matrix event as delivered by /sync and /messages. Content
// is kept raw: callers decode it into the shape the event type implies
// with [DecodeContent], so a malformed event surfaces as an error at
// the point it is used rather than failing the whole page.
type Event struct {
	EventID        ref.EventID     `json:"event_id,omitempty"`
	Type           string          `json:"type"`
	Sender         ref.UserID      `json:"sender"`
	OriginServerTS int64           `json:"origin_server_ts,omitempty"`
	Content        json.RawMessage `json:"content"`
	StateKey       *string         `json:"state_key,omitempty"`
	Unsigned       *EventUnsigned  `json:"unsigned,omitempty"`
}

// EventUnsigned holds unsigned data attached to events.
type EventUnsigned struct {
	Age             int64           `json:"age,omitempty"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	RedactedBecause json.RawMessage `json:"redacted_because,omitempty"`
}

// RoomMessagesOptions controls pagination for room history fetching.
type RoomMessagesOptions struct {
	From      string // pagination token; empty means "from the live end"
	Direction string // DirectionBackward (newest first) or DirectionForward
	Limit     int    // max events to return; 0 uses server default
	Filter    string // optional inline RoomEventFilter JSON
}

// Pagination directions for /messages.
const (
	DirectionBackward = "b"
	DirectionForward  = "f"
)

// RoomMessagesResponse is returned by RoomMessages. With
// DirectionBackward, Chunk is ordered newest first.
type RoomMessagesResponse struct {
	Start string  `json:"start"`
	End   string  `json:"end,omitempty"`
	Chunk []Event `json:"chunk"`
}

// SyncOptions controls the behavior of the /sync endpoint.
type SyncOptions struct {
	Since      string // next_batch token from previous sync; empty for initial sync
	Timeout    int    // long-poll timeout in milliseconds
	SetTimeout bool   // send the timeout parameter (distinguishes "unset" from 0)
	Filter     string // filter ID or inline JSON filter
}

// SyncResponse is the top-level response from /sync.
type SyncResponse struct {
	NextBatch string       `json:"next_batch"`
	Rooms     RoomsSection `json:"rooms"`
}

// RoomsSection contains per-room sync data grouped by membership.
// Map keys decode through ref.RoomID's TextUnmarshaler.
type RoomsSection struct {
	Join   map[ref.RoomID]JoinedRoom  `json:"join,omitempty"`
	Invite map[ref.RoomID]InvitedRoom `json:"invite,omitempty"`
	Leave  map[ref.RoomID]LeftRoom    `json:"leave,omitempty"`
}

// JoinedRoom contains sync data for a room the user has joined.
type JoinedRoom struct {
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// InvitedRoom contains the stripped state shared with an invitee.
type InvitedRoom struct {
	InviteState StateSection `json:"invite_state"`
}

// LeftRoom contains sync data for a room the user has left.
type LeftRoom struct {
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// TimelineSection contains timeline events from a sync response.
type TimelineSection struct {
	Events    []Event `json:"events"`
	PrevBatch string  `json:"prev_batch,omitempty"`
	Limited   bool    `json:"limited,omitempty"`
}

// StateSection contains state events from a sync response.
type StateSection struct {
	Events []Event `json:"events"`
}

// SendEventResponse is returned by the send endpoints.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// WhoAmIResponse is returned by WhoAmI.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id,omitempty"`
}

// typingRequest is the body for PUT /rooms/{roomId}/typing/{userId}.
type typingRequest struct {
	Typing  bool  `json:"typing"`
	Timeout int64 `json:"timeout,omitempty"`
}
