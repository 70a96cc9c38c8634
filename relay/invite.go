// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/relay/lib/clock"
	"github.com/bureau-foundation/relay/lib/ref"
	"github.com/bureau-foundation/relay/messaging"
)

// InviteJoinerConfig holds the dependencies of an [InviteJoiner].
type InviteJoinerConfig struct {
	Session Session

	// Backoff paces join retries. The zero value means DefaultBackoff.
	Backoff BackoffPolicy

	// Clock drives retry sleeps. Nil means clock.Real().
	Clock clock.Clock

	Logger  *slog.Logger
	Metrics *Metrics
}

// InviteJoiner accepts invites addressed to the bot. Each accepted
// invite gets its own goroutine that keeps retrying the join until it
// succeeds or the backoff runs out. A synapse homeserver can deliver
// an invite before the invitee is allowed to join, so the first
// attempts failing is normal.
type InviteJoiner struct {
	session Session
	backoff BackoffPolicy
	clock   clock.Clock
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	claimed map[ref.RoomID]struct{}

	tasks sync.WaitGroup
}

// NewInviteJoiner creates a joiner. Session is required.
func NewInviteJoiner(config InviteJoinerConfig) *InviteJoiner {
	if config.Session == nil {
		panic("relay: InviteJoinerConfig.Session is required")
	}
	backoff := config.Backoff
	if backoff == (BackoffPolicy{}) {
		backoff = DefaultBackoff
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &InviteJoiner{
		session: config.Session,
		backoff: backoff,
		clock:   clk,
		logger:  logger,
		metrics: config.Metrics,
		claimed: make(map[ref.RoomID]struct{}),
	}
}

// retryState belongs to one join goroutine and is never shared.
type retryState struct {
	roomID  ref.RoomID
	attempt int
}

// HandleInvite starts joining roomID when the invite targets the bot
// and the room is still in the invited state. It returns without
// waiting for the join, reporting whether a join goroutine was
// started. Invites for other users, rooms not in the invited state,
// and rooms that already have a join in progress are ignored.
//
// The join goroutine outlives ctx's cancellation: it keeps ctx's
// values but runs until it joins or gives up. Shutdown abandons it.
func (j *InviteJoiner) HandleInvite(ctx context.Context, roomID ref.RoomID, invitee ref.UserID) bool {
	if invitee != j.session.UserID() {
		j.logger.Debug("ignoring invite for another user", "room_id", roomID, "invitee", invitee)
		j.metrics.invite(inviteIgnored)
		return false
	}
	if status := j.session.RoomStatus(roomID); status != messaging.MembershipInvited {
		j.logger.Debug("ignoring invite, room is not in invited state", "room_id", roomID, "status", status.String())
		j.metrics.invite(inviteIgnored)
		return false
	}
	if !j.claim(roomID) {
		j.logger.Debug("join already in progress", "room_id", roomID)
		j.metrics.invite(inviteDuplicate)
		return false
	}

	j.logger.Info("accepting room invite", "room_id", roomID)
	j.tasks.Add(1)
	go j.join(context.WithoutCancel(ctx), &retryState{roomID: roomID})
	return true
}

// Wait blocks until every join goroutine started so far has finished.
func (j *InviteJoiner) Wait() {
	j.tasks.Wait()
}

func (j *InviteJoiner) claim(roomID ref.RoomID) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, busy := j.claimed[roomID]; busy {
		return false
	}
	j.claimed[roomID] = struct{}{}
	return true
}

func (j *InviteJoiner) release(roomID ref.RoomID) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.claimed, roomID)
}

func (j *InviteJoiner) join(ctx context.Context, state *retryState) {
	defer j.tasks.Done()
	defer j.release(state.roomID)

	for {
		err := j.session.JoinRoom(ctx, state.roomID)
		j.metrics.joinAttempt(err)
		if err == nil {
			j.logger.Info("joined room", "room_id", state.roomID, "attempts", state.attempt+1)
			j.metrics.invite(inviteJoined)
			return
		}

		delay := j.backoff.Delay(state.attempt)
		j.logger.Warn("failed to join room, retrying",
			"room_id", state.roomID,
			"attempt", state.attempt+1,
			"delay", delay,
			"error", err,
		)
		j.clock.Sleep(delay)

		if j.backoff.Exhausted(state.attempt) {
			j.logger.Error("giving up on room invite",
				"room_id", state.roomID,
				"attempts", state.attempt+1,
				"error", err,
			)
			j.metrics.invite(inviteGaveUp)
			return
		}
		state.attempt++

		// A rescinded invite, a kick, or a join made by another
		// client all move the room out of the invited state while
		// we sleep.
		if status := j.session.RoomStatus(state.roomID); status != messaging.MembershipInvited {
			j.logger.Info("invite no longer pending, stopping join retries",
				"room_id", state.roomID,
				"status", status.String(),
			)
			j.metrics.invite(inviteWithdrawn)
			return
		}
	}
}
