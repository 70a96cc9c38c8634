// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/relay/lib/ref"
	"github.com/bureau-foundation/relay/messaging"
)

func TestContextBuilderOrdersOldestFirst(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	// Newest first, as /messages with dir=b returns them.
	session.history = []messaging.Event{
		textEvent("$4", botID, "fourth"),
		textEvent("$3", bobID, "third"),
		textEvent("$2", aliceID, "second"),
		textEvent("$1", botID, "first"),
	}

	conversation, err := NewContextBuilder(session, 10).Build(context.Background(), roomID)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []ConversationMessage{
		{Role: RoleAssistant, Content: "first"},
		{Role: RoleUser, Content: "second"},
		{Role: RoleUser, Content: "third"},
		{Role: RoleAssistant, Content: "fourth"},
	}
	if len(conversation) != len(want) {
		t.Fatalf("got %d messages, want %d: %+v", len(conversation), len(want), conversation)
	}
	for index := range want {
		if conversation[index] != want[index] {
			t.Errorf("message %d = %+v, want %+v", index, conversation[index], want[index])
		}
		if conversation[index].Name != "" {
			t.Errorf("message %d carries name %q", index, conversation[index].Name)
		}
	}
	if session.historyLimit != 10 {
		t.Errorf("history limit = %d, want 10", session.historyLimit)
	}
}

func TestContextBuilderSkipsNonOriginalText(t *testing.T) {
	t.Parallel()

	stateKey := botID.String()
	member, _ := json.Marshal(messaging.MemberContent{Membership: messaging.MembershipJoin})
	edit := messaging.NewTextMessage("* corrected")
	edit.RelatesTo = &messaging.RelatesTo{RelType: messaging.RelTypeReplace, EventID: ref.MustParseEventID("$1")}

	redactedByUnsigned := textEvent("$6", aliceID, "secret")
	redactedByUnsigned.Unsigned = &messaging.EventUnsigned{RedactedBecause: json.RawMessage(`{"type":"m.room.redaction"}`)}

	session := newFakeSession()
	session.history = []messaging.Event{
		textEvent("$9", aliceID, "kept newest"),
		messageEvent("$8", aliceID, map[string]string{"msgtype": "m.image", "body": "cat.png", "url": "mxc://example/cat"}),
		messageEvent("$7", botID, messaging.MessageContent{MsgType: messaging.MsgTypeNotice, Body: "notice"}),
		redactedByUnsigned,
		{EventID: ref.MustParseEventID("$5"), Type: messaging.EventTypeMessage, Sender: aliceID, Content: json.RawMessage(`{}`)},
		messageEvent("$4", aliceID, edit),
		{EventID: ref.MustParseEventID("$3"), Type: messaging.EventTypeMember, Sender: botID, StateKey: &stateKey, Content: member},
		{EventID: ref.MustParseEventID("$2"), Type: "m.reaction", Sender: aliceID, Content: json.RawMessage(`{"m.relates_to":{}}`)},
		textEvent("$1", aliceID, "kept oldest"),
	}

	conversation, err := NewContextBuilder(session, 0).Build(context.Background(), roomID)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(conversation) != 2 || conversation[0].Content != "kept oldest" || conversation[1].Content != "kept newest" {
		t.Errorf("conversation = %+v, want only the two original text messages", conversation)
	}
	if session.historyLimit != DefaultHistoryPageSize {
		t.Errorf("history limit = %d, want default %d", session.historyLimit, DefaultHistoryPageSize)
	}
}

func TestContextBuilderEmptyHistory(t *testing.T) {
	t.Parallel()

	conversation, err := NewContextBuilder(newFakeSession(), 5).Build(context.Background(), roomID)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(conversation) != 0 {
		t.Errorf("conversation = %+v, want empty", conversation)
	}
}

func TestContextBuilderPropagatesFailures(t *testing.T) {
	t.Parallel()

	t.Run("history", func(t *testing.T) {
		t.Parallel()
		failure := errors.New("M_FORBIDDEN")
		session := newFakeSession()
		session.historyErr = failure

		_, err := NewContextBuilder(session, 5).Build(context.Background(), roomID)
		if !errors.Is(err, failure) {
			t.Errorf("Build error = %v, want wrapped %v", err, failure)
		}
	})

	t.Run("undecodable message", func(t *testing.T) {
		t.Parallel()
		session := newFakeSession()
		session.history = []messaging.Event{
			textEvent("$2", aliceID, "fine"),
			{EventID: ref.MustParseEventID("$1"), Type: messaging.EventTypeMessage, Sender: aliceID, Content: json.RawMessage(`{"msgtype": 7}`)},
		}

		_, err := NewContextBuilder(session, 5).Build(context.Background(), roomID)
		if err == nil || !strings.Contains(err.Error(), "$1") {
			t.Errorf("Build error = %v, want a decode failure naming $1", err)
		}
	})
}
