// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bureau-foundation/relay/lib/secret"
)

// DefaultOpenAIBaseURL is the public OpenAI API root.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIConfig configures an [OpenAI] provider.
type OpenAIConfig struct {
	// BaseURL is the API root; "/chat/completions" is appended.
	// Empty means DefaultOpenAIBaseURL.
	BaseURL string

	// APIKey is sent as a bearer token. Nil sends no Authorization
	// header (local servers such as Ollama need none). The caller
	// retains ownership and must keep it open while the provider is
	// in use.
	APIKey *secret.Buffer

	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used. Request timeouts belong here or on the context.
	HTTPClient *http.Client
}

// OpenAI implements [Provider] for the OpenAI Chat Completions API.
// It is compatible with any API that implements the same wire format.
type OpenAI struct {
	httpClient *http.Client
	endpoint   string
	apiKey     *secret.Buffer
}

// NewOpenAI creates an OpenAI-compatible provider.
func NewOpenAI(config OpenAIConfig) *OpenAI {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAI{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:     config.APIKey,
	}
}

// Complete sends a non-streaming request for a single choice and
// returns it.
func (provider *OpenAI) Complete(ctx context.Context, request Request) (*Response, error) {
	if request.Model == "" {
		return nil, fmt.Errorf("llm/openai: model is required")
	}
	if len(request.Messages) == 0 {
		return nil, fmt.Errorf("llm/openai: at least one message is required")
	}

	headers := http.Header{}
	if provider.apiKey != nil {
		headers.Set("Authorization", "Bearer "+provider.apiKey.String())
	}

	httpResponse, err := doProviderRequest(ctx, provider.httpClient,
		provider.endpoint, headers, buildOpenAIRequest(request), "llm/openai")
	if err != nil {
		return nil, err
	}

	return decodeResponse[openaiResponse](httpResponse, "llm/openai")
}

// buildOpenAIRequest converts our types to the OpenAI wire format.
func buildOpenAIRequest(request Request) openaiRequest {
	wireRequest := openaiRequest{
		Model:       request.Model,
		MaxTokens:   request.MaxTokens,
		Temperature: request.Temperature,
		N:           1,
		Stream:      false,
		User:        request.User,
	}

	// System prompt becomes the first message with role "system".
	if request.System != "" {
		wireRequest.Messages = append(wireRequest.Messages, openaiMessage{
			Role:    string(RoleSystem),
			Content: request.System,
		})
	}
	for _, message := range request.Messages {
		wireRequest.Messages = append(wireRequest.Messages, openaiMessage{
			Role:    string(message.Role),
			Content: message.Content,
			Name:    message.Name,
		})
	}
	return wireRequest
}

// --- Wire types ---

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	N           int             `json:"n"`
	Stream      bool            `json:"stream"`
	User        string          `json:"user,omitempty"`
}

// openaiMessage carries text-only content. Name must be omitted rather
// than sent empty: the API rejects "name": "".
type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Index        int                   `json:"index"`
	Message      openaiResponseMessage `json:"message"`
	FinishReason string                `json:"finish_reason"`
}

// openaiResponseMessage differs from openaiMessage in that content may
// be null (refusals, tool calls).
type openaiResponseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
	Refusal *string `json:"refusal,omitempty"`
}

type openaiUsage struct {
	PromptTokens        int64                      `json:"prompt_tokens"`
	CompletionTokens    int64                      `json:"completion_tokens"`
	PromptTokensDetails *openaiPromptTokensDetails `json:"prompt_tokens_details,omitempty"`
}

type openaiPromptTokensDetails struct {
	CachedTokens int64 `json:"cached_tokens"`
}

func (wire *openaiResponse) toResponse() (*Response, error) {
	if len(wire.Choices) == 0 {
		return nil, fmt.Errorf("response %s has no choices", wire.ID)
	}
	choice := wire.Choices[0]
	if choice.Message.Content == nil {
		if choice.Message.Refusal != nil {
			return nil, fmt.Errorf("model refused: %s", *choice.Message.Refusal)
		}
		return nil, fmt.Errorf("response %s has no message content", wire.ID)
	}

	response := &Response{
		Model:      wire.Model,
		Text:       *choice.Message.Content,
		StopReason: mapOpenAIFinishReason(choice.FinishReason),
		Usage: Usage{
			InputTokens:  wire.Usage.PromptTokens,
			OutputTokens: wire.Usage.CompletionTokens,
		},
	}
	if wire.Usage.PromptTokensDetails != nil {
		response.Usage.CacheReadTokens = wire.Usage.PromptTokensDetails.CachedTokens
	}
	return response, nil
}

func mapOpenAIFinishReason(reason string) StopReason {
	switch reason {
	case "stop":
		return StopReasonEndTurn
	case "length":
		return StopReasonMaxTokens
	case "content_filter":
		return StopReasonContentFilter
	default:
		return StopReasonOther
	}
}
