// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/relay/lib/clock"
	"github.com/bureau-foundation/relay/lib/markdown"
	"github.com/bureau-foundation/relay/lib/ref"
	"github.com/bureau-foundation/relay/messaging"
)

// Outcome is what became of one room message.
type Outcome string

const (
	OutcomeOwnMessage   Outcome = "own_message"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeNotJoined    Outcome = "not_joined"
	OutcomeNotText      Outcome = "not_text"
	OutcomeReplied      Outcome = "replied"

	// The turn was admitted but abandoned: history, completion or the
	// reply post failed.
	OutcomeContextFailed    Outcome = "context_failed"
	OutcomeCompletionFailed Outcome = "completion_failed"
	OutcomeSendFailed       Outcome = "send_failed"
)

// DispatcherConfig holds the dependencies of a [Dispatcher].
type DispatcherConfig struct {
	Session    Session
	Builder    *ContextBuilder
	Completer  CompletionProvider
	Authorized AuthorizationSet

	// Clock times completion calls. Nil means clock.Real().
	Clock clock.Clock

	Logger  *slog.Logger
	Metrics *Metrics
}

// Dispatcher decides which room messages get a reply and produces it.
type Dispatcher struct {
	session    Session
	builder    *ContextBuilder
	completer  CompletionProvider
	authorized AuthorizationSet
	clock      clock.Clock
	logger     *slog.Logger
	metrics    *Metrics
}

// NewDispatcher creates a dispatcher. Session, Builder and Completer
// are required.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Session == nil {
		panic("relay: DispatcherConfig.Session is required")
	}
	if config.Builder == nil {
		panic("relay: DispatcherConfig.Builder is required")
	}
	if config.Completer == nil {
		panic("relay: DispatcherConfig.Completer is required")
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		session:    config.Session,
		builder:    config.Builder,
		completer:  config.Completer,
		authorized: config.Authorized,
		clock:      clk,
		logger:     logger,
		metrics:    config.Metrics,
	}
}

// HandleMessage handles one timeline event from roomID to completion.
// Events are dropped, in this order, when the bot sent them, when the
// sender is not authorized, when the bot has not joined the room, or
// when the event is not an original text message. Dropped events cause
// no Matrix traffic.
//
// An admitted event is marked read and the typing indicator is shown
// before the completion call; failures of either are only logged. The
// reply is posted after the completion returns, and the indicator is
// cleared last. If building the context, the completion, or the post
// fails, the turn is abandoned and the room sees nothing.
func (d *Dispatcher) HandleMessage(ctx context.Context, roomID ref.RoomID, event messaging.Event) Outcome {
	outcome := d.handle(ctx, roomID, event)
	d.metrics.message(outcome)
	return outcome
}

func (d *Dispatcher) handle(ctx context.Context, roomID ref.RoomID, event messaging.Event) Outcome {
	logger := d.logger.With("room_id", roomID, "event_id", event.EventID, "sender", event.Sender)

	if event.Sender == d.session.UserID() {
		return OutcomeOwnMessage
	}
	if !d.authorized.Allows(event.Sender) {
		logger.Debug("ignoring message from unauthorized sender")
		return OutcomeUnauthorized
	}
	if status := d.session.RoomStatus(roomID); status != messaging.MembershipJoined {
		logger.Debug("ignoring message, room not joined", "status", status.String())
		return OutcomeNotJoined
	}
	body, ok, err := originalText(event)
	if err != nil {
		logger.Debug("ignoring undecodable message", "error", err)
		return OutcomeNotText
	}
	if !ok {
		return OutcomeNotText
	}
	logger.Debug("received message", "body_length", len(body))

	if err := d.session.SendReadReceipt(ctx, roomID, event.EventID); err != nil {
		logger.Warn("failed to send read receipt", "error", err)
	}
	if err := d.session.SetTyping(ctx, roomID, true); err != nil {
		logger.Warn("failed to send typing notification", "error", err)
	}
	defer d.clearTyping(ctx, roomID, logger)

	conversation, err := d.builder.Build(ctx, roomID)
	if err != nil {
		logger.Error("abandoning reply, failed to build conversation", "error", err)
		return OutcomeContextFailed
	}

	started := d.clock.Now()
	reply, err := d.completer.Complete(ctx, conversation)
	d.metrics.completionDuration(d.clock.Now().Sub(started))
	if err != nil {
		logger.Error("abandoning reply, completion failed", "error", err, "turns", len(conversation))
		return OutcomeCompletionFailed
	}

	if err := d.session.SendMessage(ctx, roomID, replyContent(reply, logger)); err != nil {
		logger.Error("failed to send reply", "error", err)
		return OutcomeSendFailed
	}
	logger.Info("sent reply", "turns", len(conversation), "reply_length", len(reply))
	return OutcomeReplied
}

// clearTyping withdraws the indicator once the turn is over, whether
// or not a reply was posted.
func (d *Dispatcher) clearTyping(ctx context.Context, roomID ref.RoomID, logger *slog.Logger) {
	if err := d.session.SetTyping(ctx, roomID, false); err != nil {
		logger.Warn("failed to clear typing notification", "error", err)
	}
}

// replyContent renders reply as markdown. The plain text is always the
// body; formatted_body is added only when the markdown produces more
// than a bare paragraph.
func replyContent(reply string, logger *slog.Logger) messaging.MessageContent {
	html, formatted, err := markdown.Render(reply)
	if err != nil {
		logger.Warn("failed to render reply markdown, sending plain text", "error", err)
		return messaging.NewTextMessage(reply)
	}
	if !formatted {
		return messaging.NewTextMessage(reply)
	}
	return messaging.NewFormattedMessage(reply, html)
}
