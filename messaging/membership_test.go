// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"testing"

	"github.com/bureau-foundation/relay/lib/ref"
)

func TestMembershipTrackerObserve(t *testing.T) {
	t.Parallel()

	invited := ref.MustParseRoomID("!invited:local")
	joined := ref.MustParseRoomID("!joined:local")
	left := ref.MustParseRoomID("!left:local")
	unseen := ref.MustParseRoomID("!unseen:local")

	tracker := NewMembershipTracker()
	tracker.Observe(&SyncResponse{Rooms: RoomsSection{
		Invite: map[ref.RoomID]InvitedRoom{invited: {}, joined: {}},
		Join:   map[ref.RoomID]JoinedRoom{joined: {}},
		Leave:  map[ref.RoomID]LeftRoom{left: {}},
	}})

	tests := []struct {
		room ref.RoomID
		want Membership
	}{
		{invited, MembershipInvited},
		{joined, MembershipJoined},
		{left, MembershipLeft},
		{unseen, MembershipUnknown},
	}
	for _, test := range tests {
		if got := tracker.Status(test.room); got != test.want {
			t.Errorf("Status(%s) = %s, want %s", test.room, got, test.want)
		}
	}

	// A later sync moves the invited room to joined and the joined
	// room to left.
	tracker.Observe(&SyncResponse{Rooms: RoomsSection{
		Join:  map[ref.RoomID]JoinedRoom{invited: {}},
		Leave: map[ref.RoomID]LeftRoom{joined: {}},
	}})
	if got := tracker.Status(invited); got != MembershipJoined {
		t.Errorf("Status(invited) after join = %s", got)
	}
	if got := tracker.Status(joined); got != MembershipLeft {
		t.Errorf("Status(joined) after leave = %s", got)
	}
	if got := tracker.Status(left); got != MembershipLeft {
		t.Errorf("rooms absent from a sync keep their status, got %s", got)
	}
}

func TestMembershipTrackerSet(t *testing.T) {
	t.Parallel()

	room := ref.MustParseRoomID("!room:local")
	tracker := NewMembershipTracker()
	tracker.Observe(nil)
	tracker.Set(room, MembershipJoined)
	if got := tracker.Status(room); got != MembershipJoined {
		t.Errorf("Status = %s, want joined", got)
	}
}

func TestMembershipString(t *testing.T) {
	t.Parallel()

	for membership, want := range map[Membership]string{
		MembershipUnknown: "unknown",
		MembershipInvited: "invited",
		MembershipJoined:  "joined",
		MembershipLeft:    "left",
	} {
		if got := membership.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", membership, got, want)
		}
	}
}
