// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bureau-foundation/relay/lib/netutil"
)

// Provider is the interface for completion API backends.
type Provider interface {
	// Complete sends a request and blocks until the full response
	// is available.
	Complete(ctx context.Context, request Request) (*Response, error)
}

// ProviderError is returned when the completion API responds with an error.
type ProviderError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Type is the provider-specific error type string
	// (e.g., "invalid_request_error", "insufficient_quota").
	Type string

	// Message is the human-readable error description.
	Message string
}

func (err *ProviderError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("llm: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsRateLimited returns true if the error is a rate limit response (HTTP 429).
func (err *ProviderError) IsRateLimited() bool {
	return err.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized returns true if the API rejected the credentials.
func (err *ProviderError) IsUnauthorized() bool {
	return err.StatusCode == http.StatusUnauthorized
}

// doProviderRequest marshals wireRequest as JSON, POSTs it to endpoint
// via httpClient with the given extra headers, and returns the HTTP
// response. Returns a ProviderError for non-200 status codes.
//
// On success the caller is responsible for closing the response body.
// On error the body is already closed.
func doProviderRequest(ctx context.Context, httpClient *http.Client, endpoint string, headers http.Header, wireRequest any, prefix string) (*http.Response, error) {
	body, err := json.Marshal(wireRequest)
	if err != nil {
		return nil, fmt.Errorf("%s: marshaling request: %w", prefix, err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", prefix, err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	for key, values := range headers {
		for _, value := range values {
			httpRequest.Header.Add(key, value)
		}
	}

	httpResponse, err := httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("%s: sending request: %w", prefix, err)
	}

	if httpResponse.StatusCode != http.StatusOK {
		defer httpResponse.Body.Close()
		return nil, readProviderError(httpResponse)
	}

	return httpResponse, nil
}

// wireResponse is implemented by pointer-to-struct types that can
// convert themselves from JSON wire format to the common Response.
type wireResponse[T any] interface {
	*T
	toResponse() (*Response, error)
}

// decodeResponse reads an HTTP response body as JSON into a
// provider-specific wire response type and converts it to the common
// Response. The HTTP response body is closed when this function returns.
func decodeResponse[T any, P wireResponse[T]](httpResponse *http.Response, prefix string) (*Response, error) {
	defer httpResponse.Body.Close()

	body, err := netutil.ReadResponse(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", prefix, err)
	}
	wire := P(new(T))
	if err := json.Unmarshal(body, wire); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", prefix, err)
	}

	response, err := wire.toResponse()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	return response, nil
}

// readProviderError parses an error response body in the common
// {"error":{"type":"...","message":"..."}} format. Extra fields in the
// error object (such as OpenAI's "code" and "param") are ignored.
func readProviderError(httpResponse *http.Response) error {
	body := netutil.ErrorBody(httpResponse.Body)

	var wireError struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(body), &wireError) == nil && wireError.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Type:       wireError.Error.Type,
			Message:    wireError.Error.Message,
		}
	}

	return &ProviderError{
		StatusCode: httpResponse.StatusCode,
		Message:    body,
	}
}
