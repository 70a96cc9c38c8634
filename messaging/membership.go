// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"sync"

	"github.com/bureau-foundation/relay/lib/ref"
)

// Membership is this session's relationship to a room, as last
// reported by /sync.
type Membership int

const (
	// MembershipUnknown means the room has not appeared in any sync.
	MembershipUnknown Membership = iota
	// MembershipInvited means an invite is pending.
	MembershipInvited
	// MembershipJoined means the session is an active member.
	MembershipJoined
	// MembershipLeft covers leave, kick, ban, and rescinded invites.
	MembershipLeft
)

func (m Membership) String() string {
	switch m {
	case MembershipInvited:
		return "invited"
	case MembershipJoined:
		return "joined"
	case MembershipLeft:
		return "left"
	default:
		return "unknown"
	}
}

// MembershipTracker records the membership of every room seen in sync
// responses. It is safe for concurrent use: the sync goroutine writes
// while invite retry goroutines read.
type MembershipTracker struct {
	mu    sync.RWMutex
	rooms map[ref.RoomID]Membership
}

// NewMembershipTracker returns an empty tracker.
func NewMembershipTracker() *MembershipTracker {
	return &MembershipTracker{rooms: make(map[ref.RoomID]Membership)}
}

// Observe applies the room sections of a sync response. A room listed
// in several sections within one response (invited, joined and left in
// the same window) resolves in the order invite, join, leave, which is
// the order those transitions can legally happen in.
func (t *MembershipTracker) Observe(response *SyncResponse) {
	if response == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for roomID := range response.Rooms.Invite {
		t.rooms[roomID] = MembershipInvited
	}
	for roomID := range response.Rooms.Join {
		t.rooms[roomID] = MembershipJoined
	}
	for roomID := range response.Rooms.Leave {
		t.rooms[roomID] = MembershipLeft
	}
}

// Set overrides the recorded membership for one room. Used after a
// successful join so the room counts as joined before the next sync
// confirms it.
func (t *MembershipTracker) Set(roomID ref.RoomID, membership Membership) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rooms[roomID] = membership
}

// Status returns the recorded membership for roomID.
func (t *MembershipTracker) Status(roomID ref.RoomID) Membership {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rooms[roomID]
}
