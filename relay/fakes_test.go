// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/bureau-foundation/relay/lib/ref"
	"github.com/bureau-foundation/relay/messaging"
)

var (
	botID   = ref.MustParseUserID("@bot:example")
	aliceID = ref.MustParseUserID("@alice:example")
	bobID   = ref.MustParseUserID("@bob:example")
	roomID  = ref.MustParseRoomID("!r:example")
)

// callLog records side effects from the fake session and completer in
// the order they happen, so tests can assert ordering across both.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// fakeSession is an in-memory [Session]. JoinRoom consumes joinErrors
// in order and succeeds once they run out; a successful join marks the
// room joined, as MatrixSession does.
type fakeSession struct {
	log *callLog

	mu           sync.Mutex
	self         ref.UserID
	statuses     map[ref.RoomID]messaging.Membership
	joinErrors   []error
	joinAttempts int
	history      []messaging.Event
	historyLimit int
	historyErr   error
	receiptErr   error
	typingErr    error
	sendErr      error
	sent         []messaging.MessageContent
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		log:      &callLog{},
		self:     botID,
		statuses: make(map[ref.RoomID]messaging.Membership),
	}
}

func (s *fakeSession) setStatus(room ref.RoomID, status messaging.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[room] = status
}

func (s *fakeSession) UserID() ref.UserID { return s.self }

func (s *fakeSession) RoomStatus(room ref.RoomID) messaging.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[room]
}

func (s *fakeSession) JoinRoom(ctx context.Context, room ref.RoomID) error {
	s.log.add("join %s", room)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joinAttempts++
	if len(s.joinErrors) > 0 {
		err := s.joinErrors[0]
		s.joinErrors = s.joinErrors[1:]
		return err
	}
	s.statuses[room] = messaging.MembershipJoined
	return nil
}

func (s *fakeSession) SendReadReceipt(ctx context.Context, room ref.RoomID, eventID ref.EventID) error {
	s.log.add("receipt %s", eventID)
	return s.receiptErr
}

func (s *fakeSession) SetTyping(ctx context.Context, room ref.RoomID, typing bool) error {
	s.log.add("typing %t", typing)
	return s.typingErr
}

func (s *fakeSession) RoomHistory(ctx context.Context, room ref.RoomID, limit int) ([]messaging.Event, error) {
	s.log.add("history %s", room)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyLimit = limit
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return append([]messaging.Event(nil), s.history...), nil
}

func (s *fakeSession) SendMessage(ctx context.Context, room ref.RoomID, content messaging.MessageContent) error {
	s.log.add("send %s", room)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, content)
	return nil
}

func (s *fakeSession) sentMessages() []messaging.MessageContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]messaging.MessageContent(nil), s.sent...)
}

// fakeCompleter records each conversation it is asked to complete.
type fakeCompleter struct {
	log   *callLog
	reply string
	err   error

	mu            sync.Mutex
	conversations [][]ConversationMessage
}

func (c *fakeCompleter) Complete(ctx context.Context, conversation []ConversationMessage) (string, error) {
	if c.log != nil {
		c.log.add("complete")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversations = append(c.conversations, conversation)
	return c.reply, c.err
}

func (c *fakeCompleter) calls() [][]ConversationMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]ConversationMessage(nil), c.conversations...)
}

// textEvent builds an m.text message event.
func textEvent(eventID string, sender ref.UserID, body string) messaging.Event {
	return messageEvent(eventID, sender, messaging.NewTextMessage(body))
}

func messageEvent(eventID string, sender ref.UserID, content any) messaging.Event {
	raw, err := json.Marshal(content)
	if err != nil {
		panic(err)
	}
	return messaging.Event{
		EventID: ref.MustParseEventID(eventID),
		Type:    messaging.EventTypeMessage,
		Sender:  sender,
		Content: raw,
	}
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of log
// handlers on several goroutines.
type syncBuffer struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

// captureLogger returns a debug-level JSON logger and the buffer it
// writes to.
func captureLogger() (*slog.Logger, *syncBuffer) {
	buffer := &syncBuffer{}
	return slog.New(slog.NewJSONHandler(buffer, &slog.HandlerOptions{Level: slog.LevelDebug})), buffer
}

// logRecords decodes the JSON log lines whose message is msg.
func logRecords(t *testing.T, buffer *syncBuffer, msg string) []map[string]any {
	t.Helper()
	var records []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader([]byte(buffer.String())))
	for scanner.Scan() {
		var record map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("log line %q is not JSON: %v", scanner.Text(), err)
		}
		if record["msg"] == msg {
			records = append(records, record)
		}
	}
	return records
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
