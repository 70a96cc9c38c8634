// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/relay/lib/ref"
)

// Event types.
const (
	EventTypeMessage = "m.room.message"
	EventTypeMember  = "m.room.member"
)

// Message types (the msgtype field of m.room.message).
const (
	MsgTypeText   = "m.text"
	MsgTypeNotice = "m.notice"
)

// Membership values of m.room.member.
const (
	MembershipInvite = "invite"
	MembershipJoin   = "join"
	MembershipLeave  = "leave"
	MembershipBan    = "ban"
)

// RelTypeReplace marks an edit: the event replaces an earlier one.
const RelTypeReplace = "m.replace"

// FormatHTML is the only formatted_body format Matrix defines.
const FormatHTML = "org.matrix.custom.html"

// MessageContent is the content of an m.room.message event.
type MessageContent struct {
	MsgType       string     `json:"msgtype"`
	Body          string     `json:"body"`
	Format        string     `json:"format,omitempty"`
	FormattedBody string     `json:"formatted_body,omitempty"`
	RelatesTo     *RelatesTo `json:"m.relates_to,omitempty"`
}

// RelatesTo expresses a relationship to another event. The relay only
// inspects RelType to recognize edits.
type RelatesTo struct {
	RelType string      `json:"rel_type,omitempty"`
	EventID ref.EventID `json:"event_id,omitempty"`
}

// MemberContent is the content of an m.room.member state event.
type MemberContent struct {
	Membership  string `json:"membership"`
	DisplayName string `json:"displayname,omitempty"`
}

// NewTextMessage creates a plain m.text message.
func NewTextMessage(body string) MessageContent {
	return MessageContent{
		MsgType: MsgTypeText,
		Body:    body,
	}
}

// NewFormattedMessage creates an m.text message with an HTML rendering.
// body is the plain-text fallback shown by clients without HTML support.
func NewFormattedMessage(body, html string) MessageContent {
	return MessageContent{
		MsgType:       MsgTypeText,
		Body:          body,
		Format:        FormatHTML,
		FormattedBody: html,
	}
}

// IsReplacement reports whether the message is an edit of an earlier one.
func (content MessageContent) IsReplacement() bool {
	return content.RelatesTo != nil && content.RelatesTo.RelType == RelTypeReplace
}

// DecodeContent unmarshals an event's raw content into T:
//
//	message, err := messaging.DecodeContent[messaging.MessageContent](event)
func DecodeContent[T any](event Event) (T, error) {
	var result T
	if len(event.Content) == 0 {
		return result, fmt.Errorf("messaging: event %s (%s) has no content", event.EventID, event.Type)
	}
	if err := json.Unmarshal(event.Content, &result); err != nil {
		var zero T
		return zero, fmt.Errorf("messaging: decoding %s content of event %s: %w", event.Type, event.EventID, err)
	}
	return result, nil
}

// IsRedacted reports whether the server has redacted the event. A
// redacted event keeps its type but loses its content keys, and carries
// redacted_because in unsigned.
func (event Event) IsRedacted() bool {
	if event.Unsigned != nil && len(event.Unsigned.RedactedBecause) > 0 {
		return true
	}
	trimmed := string(event.Content)
	return trimmed == "{}" || trimmed == "null"
}
