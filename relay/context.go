// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/bureau-foundation/relay/lib/ref"
	"github.com/bureau-foundation/relay/messaging"
)

// Role tags who authored a conversation turn.
type Role int

const (
	// RoleUser is any author other than the bot. Every human in a
	// multi-party room shares this role.
	RoleUser Role = iota
	// RoleAssistant is the bot itself.
	RoleAssistant
)

func (r Role) String() string {
	if r == RoleAssistant {
		return "assistant"
	}
	return "user"
}

// ConversationMessage is one turn of the context sent to the
// completion provider.
type ConversationMessage struct {
	Role    Role
	Content string

	// Name would identify the author within the role. The builder
	// leaves it empty: chat-completion endpoints have rejected the
	// Matrix user IDs it would carry.
	Name string
}

// DefaultHistoryPageSize is the number of timeline events fetched for
// one context when the caller does not set a page size.
const DefaultHistoryPageSize = 20

// ContextBuilder turns a room's recent timeline into a conversation.
type ContextBuilder struct {
	session  Session
	pageSize int
}

// NewContextBuilder returns a builder that reads pageSize events of
// history per conversation. A pageSize of zero or less means
// DefaultHistoryPageSize.
func NewContextBuilder(session Session, pageSize int) *ContextBuilder {
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	return &ContextBuilder{session: session, pageSize: pageSize}
}

// Build fetches the latest page of roomID's timeline and returns its
// text messages oldest first. Messages sent by the bot become
// assistant turns and everything else becomes user turns.
//
// Events that are not original text messages (state events, other
// message types, redactions, edits) are skipped. A failed fetch, or
// an m.room.message whose content cannot be decoded, fails the whole
// build.
func (b *ContextBuilder) Build(ctx context.Context, roomID ref.RoomID) ([]ConversationMessage, error) {
	events, err := b.session.RoomHistory(ctx, roomID, b.pageSize)
	if err != nil {
		return nil, fmt.Errorf("relay: fetching history of %s: %w", roomID, err)
	}

	self := b.session.UserID()
	conversation := make([]ConversationMessage, 0, len(events))
	for _, event := range lo.Reverse(events) {
		text, ok, err := originalText(event)
		if err != nil {
			return nil, fmt.Errorf("relay: reading history of %s: %w", roomID, err)
		}
		if !ok {
			continue
		}
		role := RoleUser
		if event.Sender == self {
			role = RoleAssistant
		}
		conversation = append(conversation, ConversationMessage{Role: role, Content: text})
	}
	return conversation, nil
}

// originalText returns the body of an original (not redacted, not
// edited) m.text message. ok is false for any other event.
func originalText(event messaging.Event) (body string, ok bool, err error) {
	if event.Type != messaging.EventTypeMessage || event.IsRedacted() {
		return "", false, nil
	}
	content, err := messaging.DecodeContent[messaging.MessageContent](event)
	if err != nil {
		return "", false, err
	}
	if content.MsgType != messaging.MsgTypeText || content.IsReplacement() {
		return "", false, nil
	}
	return content.Body, true, nil
}
