// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Name is an optional participant
// name; providers omit it from the wire when empty.
type Message struct {
	Role    Role
	Content string
	Name    string
}

// UserMessage returns a user turn with the given text.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage returns an assistant turn with the given text.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// Request is a provider-agnostic completion request.
type Request struct {
	// Model is the provider's model identifier (e.g., "gpt-3.5-turbo").
	Model string

	// System is an optional system prompt, sent ahead of Messages.
	System string

	// Messages is the conversation, oldest first.
	Messages []Message

	// MaxTokens caps the reply length. Zero leaves it to the provider.
	MaxTokens int

	// Temperature is the sampling temperature. Nil leaves it to the
	// provider.
	Temperature *float64

	// User is an opaque end-user tag some providers use for abuse
	// monitoring.
	User string
}

// StopReason explains why the model stopped producing output.
type StopReason string

const (
	StopReasonEndTurn       StopReason = "end_turn"
	StopReasonMaxTokens     StopReason = "max_tokens"
	StopReasonContentFilter StopReason = "content_filter"
	StopReasonOther         StopReason = "other"
)

// Usage reports token consumption for one request.
type Usage struct {
	InputTokens     int64
	OutputTokens    int64
	CacheReadTokens int64
}

// Response is a completed reply.
type Response struct {
	Model      string
	Text       string
	StopReason StopReason
	Usage      Usage
}
