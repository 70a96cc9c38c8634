// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/bureau-foundation/relay/lib/clock"
	"github.com/bureau-foundation/relay/lib/ref"
	"github.com/bureau-foundation/relay/lib/service"
	"github.com/bureau-foundation/relay/messaging"
)

// syncFilter keeps /sync responses to what the relay reads: membership
// sections, invite state, and message events in room timelines.
const syncFilter = `{"presence":{"types":[]},"account_data":{"types":[]},` +
	`"room":{"timeline":{"types":["m.room.message"]},"ephemeral":{"types":[]},"account_data":{"types":[]}}}`

// Config holds everything a [Relay] needs. Session and Completer are
// required.
type Config struct {
	Session   messaging.Session
	Completer CompletionProvider

	// Authorized restricts who gets replies. Empty allows everyone.
	Authorized AuthorizationSet

	// HistoryPageSize is the number of timeline events read to build
	// each conversation. Zero means DefaultHistoryPageSize.
	HistoryPageSize int

	// SyncTimeout is the /sync long-poll timeout. Zero uses the sync
	// loop's default.
	SyncTimeout time.Duration

	// Backoff paces invite join retries. Zero means DefaultBackoff.
	Backoff BackoffPolicy

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *Metrics
}

// Relay runs the sync loop and routes invites to an [InviteJoiner] and
// room messages to a [Dispatcher].
type Relay struct {
	session     messaging.Session
	tracker     *messaging.MembershipTracker
	joiner      *InviteJoiner
	dispatcher  *Dispatcher
	syncTimeout time.Duration
	clock       clock.Clock
	logger      *slog.Logger
}

// New assembles a relay.
func New(config Config) *Relay {
	if config.Session == nil {
		panic("relay: Config.Session is required")
	}
	if config.Completer == nil {
		panic("relay: Config.Completer is required")
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracker := messaging.NewMembershipTracker()
	matrix := NewMatrixSession(config.Session, tracker)
	return &Relay{
		session: config.Session,
		tracker: tracker,
		joiner: NewInviteJoiner(InviteJoinerConfig{
			Session: matrix,
			Backoff: config.Backoff,
			Clock:   clk,
			Logger:  logger,
			Metrics: config.Metrics,
		}),
		dispatcher: NewDispatcher(DispatcherConfig{
			Session:    matrix,
			Builder:    NewContextBuilder(matrix, config.HistoryPageSize),
			Completer:  config.Completer,
			Authorized: config.Authorized,
			Clock:      clk,
			Logger:     logger,
			Metrics:    config.Metrics,
		}),
		syncTimeout: config.SyncTimeout,
		clock:       clk,
		logger:      logger,
	}
}

// Run performs the initial sync and then long-polls until ctx is
// cancelled. Invites already pending at startup are accepted; messages
// that arrived before startup are not answered. Run returns nil on
// cancellation, and an error if the initial sync fails or the session
// is invalidated.
//
// Join goroutines still retrying when Run returns are left running;
// use Wait to block on them.
func (r *Relay) Run(ctx context.Context) error {
	since, initial, err := service.InitialSync(ctx, r.session, syncFilter)
	if err != nil {
		return fmt.Errorf("relay: %w", err)
	}
	r.tracker.Observe(initial)
	r.handleInvites(ctx, initial)
	r.logger.Info("initial sync complete",
		"joined_rooms", len(initial.Rooms.Join),
		"pending_invites", len(initial.Rooms.Invite),
	)

	return service.RunSyncLoop(ctx, r.session, service.SyncConfig{
		Filter:  syncFilter,
		Timeout: int(r.syncTimeout.Milliseconds()),
	}, since, r.handleSync, r.clock, r.logger)
}

// Wait blocks until every invite join goroutine has finished.
func (r *Relay) Wait() {
	r.joiner.Wait()
}

func (r *Relay) handleSync(ctx context.Context, response *messaging.SyncResponse) {
	r.tracker.Observe(response)
	r.handleInvites(ctx, response)

	for _, roomID := range sortedRooms(response.Rooms.Join) {
		for _, event := range response.Rooms.Join[roomID].Timeline.Events {
			if event.Type != messaging.EventTypeMessage {
				continue
			}
			r.dispatcher.HandleMessage(ctx, roomID, event)
		}
	}
}

// handleInvites passes every invite member event in the response's
// invite state to the joiner. The joiner decides whether it is ours.
func (r *Relay) handleInvites(ctx context.Context, response *messaging.SyncResponse) {
	for _, roomID := range sortedRooms(response.Rooms.Invite) {
		for _, event := range response.Rooms.Invite[roomID].InviteState.Events {
			invitee, ok := inviteTarget(event)
			if !ok {
				continue
			}
			r.joiner.HandleInvite(ctx, roomID, invitee)
		}
	}
}

// inviteTarget returns the invited user of an m.room.member invite
// event. ok is false for any other event.
func inviteTarget(event messaging.Event) (ref.UserID, bool) {
	if event.Type != messaging.EventTypeMember || event.StateKey == nil {
		return ref.UserID{}, false
	}
	member, err := messaging.DecodeContent[messaging.MemberContent](event)
	if err != nil || member.Membership != messaging.MembershipInvite {
		return ref.UserID{}, false
	}
	invitee, err := ref.ParseUserID(*event.StateKey)
	if err != nil {
		return ref.UserID{}, false
	}
	return invitee, true
}

// sortedRooms orders a sync section's rooms so handling is
// deterministic across runs.
func sortedRooms[V any](rooms map[ref.RoomID]V) []ref.RoomID {
	roomIDs := lo.Keys(rooms)
	slices.SortFunc(roomIDs, func(a, b ref.RoomID) int {
		return strings.Compare(a.String(), b.String())
	})
	return roomIDs
}
