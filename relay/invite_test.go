// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	prometheustest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bureau-foundation/relay/lib/clock"
	"github.com/bureau-foundation/relay/lib/ref"
	"github.com/bureau-foundation/relay/messaging"
)

func newTestJoiner(session *fakeSession, fakeClock *clock.FakeClock) (*InviteJoiner, *syncBuffer) {
	logger, buffer := captureLogger()
	return NewInviteJoiner(InviteJoinerConfig{
		Session: session,
		Clock:   fakeClock,
		Logger:  logger,
	}), buffer
}

func TestInviteForAnotherUserIsIgnored(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.setStatus(roomID, messaging.MembershipInvited)
	joiner, _ := newTestJoiner(session, clock.Fake(time.Unix(0, 0)))

	if joiner.HandleInvite(context.Background(), roomID, aliceID) {
		t.Fatal("invite for @alice started a join")
	}
	joiner.Wait()
	if session.joinAttempts != 0 {
		t.Errorf("join attempts = %d, want 0", session.joinAttempts)
	}
}

func TestInviteIgnoredUnlessRoomIsInvited(t *testing.T) {
	t.Parallel()

	for _, status := range []messaging.Membership{
		messaging.MembershipUnknown,
		messaging.MembershipJoined,
		messaging.MembershipLeft,
	} {
		t.Run(status.String(), func(t *testing.T) {
			t.Parallel()
			session := newFakeSession()
			session.setStatus(roomID, status)
			joiner, _ := newTestJoiner(session, clock.Fake(time.Unix(0, 0)))

			if joiner.HandleInvite(context.Background(), roomID, botID) {
				t.Fatalf("invite in %s room started a join", status)
			}
			joiner.Wait()
			if session.joinAttempts != 0 {
				t.Errorf("join attempts = %d, want 0", session.joinAttempts)
			}
		})
	}
}

func TestInviteJoinsOnFirstAttempt(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.setStatus(roomID, messaging.MembershipInvited)
	fakeClock := clock.Fake(time.Unix(0, 0))
	joiner, logs := newTestJoiner(session, fakeClock)

	if !joiner.HandleInvite(context.Background(), roomID, botID) {
		t.Fatal("invite did not start a join")
	}
	joiner.Wait()

	if session.joinAttempts != 1 {
		t.Errorf("join attempts = %d, want 1", session.joinAttempts)
	}
	if fakeClock.PendingCount() != 0 {
		t.Error("a successful first join must not sleep")
	}
	if records := logRecords(t, logs, "joined room"); len(records) != 1 {
		t.Errorf("got %d success records, want 1", len(records))
	}
}

func TestInviteRetriesWithDoublingDelays(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.setStatus(roomID, messaging.MembershipInvited)
	session.joinErrors = []error{
		errors.New("M_FORBIDDEN: not invited yet"),
		errors.New("M_FORBIDDEN: not invited yet"),
		errors.New("M_FORBIDDEN: not invited yet"),
	}
	fakeClock := clock.Fake(time.Unix(0, 0))
	joiner, logs := newTestJoiner(session, fakeClock)

	if !joiner.HandleInvite(context.Background(), roomID, botID) {
		t.Fatal("invite did not start a join")
	}
	for _, delay := range []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second} {
		fakeClock.WaitForTimers(1)
		fakeClock.Advance(delay)
	}
	joiner.Wait()

	if session.joinAttempts != 4 {
		t.Errorf("join attempts = %d, want 4", session.joinAttempts)
	}
	retries := logRecords(t, logs, "failed to join room, retrying")
	if len(retries) != 3 {
		t.Fatalf("got %d retry records, want 3", len(retries))
	}
	for index, want := range []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second} {
		got := time.Duration(retries[index]["delay"].(float64))
		if got != want {
			t.Errorf("retry %d delay = %v, want %v", index, got, want)
		}
		if retries[index]["room_id"] != roomID.String() {
			t.Errorf("retry %d room_id = %v", index, retries[index]["room_id"])
		}
	}
	if records := logRecords(t, logs, "joined room"); len(records) != 1 {
		t.Errorf("got %d success records, want 1", len(records))
	}
	if records := logRecords(t, logs, "giving up on room invite"); len(records) != 0 {
		t.Errorf("unexpected give-up record: %v", records)
	}
	if session.RoomStatus(roomID) != messaging.MembershipJoined {
		t.Errorf("room status = %s, want joined", session.RoomStatus(roomID))
	}
}

func TestInviteGivesUpPastCeiling(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.setStatus(roomID, messaging.MembershipInvited)
	for range 20 {
		session.joinErrors = append(session.joinErrors, errors.New("homeserver unavailable"))
	}
	fakeClock := clock.Fake(time.Unix(0, 0))
	logger, logs := captureLogger()
	metrics := NewMetrics(prometheus.NewRegistry())
	joiner := NewInviteJoiner(InviteJoinerConfig{
		Session: session,
		Clock:   fakeClock,
		Logger:  logger,
		Metrics: metrics,
	})

	joiner.HandleInvite(context.Background(), roomID, botID)
	for attempt := range 11 {
		fakeClock.WaitForTimers(1)
		fakeClock.Advance(DefaultBackoff.Delay(attempt))
	}
	joiner.Wait()

	if session.joinAttempts != 11 {
		t.Errorf("join attempts = %d, want 11", session.joinAttempts)
	}
	if records := logRecords(t, logs, "giving up on room invite"); len(records) != 1 {
		t.Errorf("got %d give-up records, want 1", len(records))
	}
	if got := prometheustest.ToFloat64(metrics.invites.WithLabelValues(inviteGaveUp)); got != 1 {
		t.Errorf("gave_up invites = %v, want 1", got)
	}
	if got := prometheustest.ToFloat64(metrics.joinAttempts.WithLabelValues("failure")); got != 11 {
		t.Errorf("failed join attempts = %v, want 11", got)
	}
}

func TestInviteDuplicateWhileRetrying(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.setStatus(roomID, messaging.MembershipInvited)
	session.joinErrors = []error{errors.New("not yet")}
	fakeClock := clock.Fake(time.Unix(0, 0))
	joiner, _ := newTestJoiner(session, fakeClock)

	if !joiner.HandleInvite(context.Background(), roomID, botID) {
		t.Fatal("first invite did not start a join")
	}
	fakeClock.WaitForTimers(1)

	if joiner.HandleInvite(context.Background(), roomID, botID) {
		t.Error("second invite for the same room started another join")
	}
	other := ref.MustParseRoomID("!other:example")
	session.setStatus(other, messaging.MembershipInvited)
	if !joiner.HandleInvite(context.Background(), other, botID) {
		t.Error("invite for a different room was suppressed")
	}

	fakeClock.Advance(2 * time.Second)
	joiner.Wait()

	// The claim is released once the join finishes, so a later
	// invite to the same room is handled again.
	session.setStatus(roomID, messaging.MembershipInvited)
	if !joiner.HandleInvite(context.Background(), roomID, botID) {
		t.Error("invite after the previous join finished was suppressed")
	}
	joiner.Wait()
}

func TestInviteStopsWhenNoLongerInvited(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.setStatus(roomID, messaging.MembershipInvited)
	session.joinErrors = []error{errors.New("not yet"), errors.New("not yet")}
	fakeClock := clock.Fake(time.Unix(0, 0))
	joiner, logs := newTestJoiner(session, fakeClock)

	joiner.HandleInvite(context.Background(), roomID, botID)
	fakeClock.WaitForTimers(1)
	session.setStatus(roomID, messaging.MembershipLeft)
	fakeClock.Advance(2 * time.Second)
	joiner.Wait()

	if session.joinAttempts != 1 {
		t.Errorf("join attempts = %d, want 1", session.joinAttempts)
	}
	if records := logRecords(t, logs, "invite no longer pending, stopping join retries"); len(records) != 1 {
		t.Errorf("got %d withdrawal records, want 1", len(records))
	}
}

func TestInviteRetrySurvivesCallerCancellation(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.setStatus(roomID, messaging.MembershipInvited)
	session.joinErrors = []error{errors.New("not yet")}
	fakeClock := clock.Fake(time.Unix(0, 0))
	joiner, _ := newTestJoiner(session, fakeClock)

	ctx, cancel := context.WithCancel(context.Background())
	joiner.HandleInvite(ctx, roomID, botID)
	fakeClock.WaitForTimers(1)
	cancel()
	fakeClock.Advance(2 * time.Second)
	joiner.Wait()

	if session.RoomStatus(roomID) != messaging.MembershipJoined {
		t.Errorf("room status = %s, want joined", session.RoomStatus(roomID))
	}
}
