// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/bureau-foundation/relay/lib/llm"
)

// CompletionProvider produces the reply to a conversation.
type CompletionProvider interface {
	// Complete returns the reply text for conversation, which is
	// ordered oldest first.
	Complete(ctx context.Context, conversation []ConversationMessage) (string, error)
}

// CompletionConfig fixes the request shaping of a [ProviderCompleter].
type CompletionConfig struct {
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  *float64

	// User is the end-user tag sent with every request.
	User string

	// Timeout bounds one provider call. Zero means no bound beyond
	// the caller's context.
	Timeout time.Duration

	Logger *slog.Logger
}

// ProviderCompleter adapts an llm.Provider to [CompletionProvider].
// Model and sampling parameters are configuration, identical for every
// request.
type ProviderCompleter struct {
	provider llm.Provider
	config   CompletionConfig
	logger   *slog.Logger
}

var _ CompletionProvider = (*ProviderCompleter)(nil)

// NewProviderCompleter wraps provider. config.Model is required.
func NewProviderCompleter(provider llm.Provider, config CompletionConfig) *ProviderCompleter {
	if config.Model == "" {
		panic("relay: CompletionConfig.Model is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderCompleter{provider: provider, config: config, logger: logger}
}

// Complete sends conversation to the provider. An empty conversation,
// an empty reply, and a reply cut off by the provider's content filter
// are errors.
func (c *ProviderCompleter) Complete(ctx context.Context, conversation []ConversationMessage) (string, error) {
	if len(conversation) == 0 {
		return "", fmt.Errorf("relay: empty conversation")
	}
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	response, err := c.provider.Complete(ctx, llm.Request{
		Model:       c.config.Model,
		System:      c.config.SystemPrompt,
		Messages:    lo.Map(conversation, toProviderMessage),
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		User:        c.config.User,
	})
	if err != nil {
		return "", fmt.Errorf("relay: completion: %w", err)
	}

	c.logger.Debug("completion finished",
		"model", response.Model,
		"stop_reason", response.StopReason,
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens,
	)
	if response.StopReason == llm.StopReasonContentFilter {
		return "", fmt.Errorf("relay: completion withheld by content filter")
	}
	if strings.TrimSpace(response.Text) == "" {
		return "", fmt.Errorf("relay: completion returned an empty reply")
	}
	return response.Text, nil
}

func toProviderMessage(message ConversationMessage, _ int) llm.Message {
	role := llm.RoleUser
	if message.Role == RoleAssistant {
		role = llm.RoleAssistant
	}
	return llm.Message{Role: role, Content: message.Content, Name: message.Name}
}
