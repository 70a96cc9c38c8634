// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/relay/lib/netutil"
)

// wellKnownClient is the body of /.well-known/matrix/client.
type wellKnownClient struct {
	Homeserver struct {
		BaseURL string `json:"base_url"`
	} `json:"m.homeserver"`
}

// DiscoverHomeserver resolves the client-server API base URL for a
// server name (the part of a user ID after the colon) through
// https://<serverName>/.well-known/matrix/client.
//
// A 404 means the server publishes no delegation, and the server name
// itself is the homeserver: "https://<serverName>" is returned. Any
// other failure (transport error, unexpected status, malformed JSON,
// invalid base_url) is returned as an error, matching the client
// discovery rules, which say to fail rather than guess.
func DiscoverHomeserver(ctx context.Context, httpClient *http.Client, serverName string) (string, error) {
	if serverName == "" {
		return "", fmt.Errorf("messaging: server name is required for discovery")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	base := serverName
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	base = strings.TrimRight(base, "/")

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/.well-known/matrix/client", nil)
	if err != nil {
		return "", fmt.Errorf("messaging: creating well-known request: %w", err)
	}
	response, err := httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("messaging: well-known lookup for %s failed: %w", serverName, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return base, nil
	}
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("messaging: well-known lookup for %s returned %d: %s",
			serverName, response.StatusCode, netutil.ErrorBody(response.Body))
	}

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return "", fmt.Errorf("messaging: reading well-known response: %w", err)
	}
	var document wellKnownClient
	if err := json.Unmarshal(body, &document); err != nil {
		return "", fmt.Errorf("messaging: parsing well-known response for %s: %w", serverName, err)
	}
	if document.Homeserver.BaseURL == "" {
		return "", fmt.Errorf("messaging: well-known response for %s has no m.homeserver.base_url", serverName)
	}
	parsed, err := url.Parse(document.Homeserver.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("messaging: well-known base_url %q for %s is not an absolute URL", document.Homeserver.BaseURL, serverName)
	}
	return strings.TrimRight(document.Homeserver.BaseURL, "/"), nil
}
