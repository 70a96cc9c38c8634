// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bureau-foundation/relay/lib/ref"
	"github.com/bureau-foundation/relay/lib/secret"
	"github.com/bureau-foundation/relay/messaging"
)

// LoginConfig holds what is needed to open a password session.
type LoginConfig struct {
	// HomeserverURL is the client-server API base URL. When empty it
	// is discovered from the user ID's server name through
	// /.well-known/matrix/client.
	HomeserverURL string

	UserID ref.UserID

	// Password is read, not closed; the caller retains ownership.
	Password *secret.Buffer

	// DeviceDisplayName names the device the login creates.
	DeviceDisplayName string

	// HTTPClient is used for discovery and every Matrix request. If
	// nil, http.DefaultClient is used.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Login resolves the homeserver, logs in with a password, and returns
// the client and authenticated session. The caller must call
// Session.Close when the session is no longer needed to release the
// guarded token memory.
func Login(ctx context.Context, config LoginConfig) (*messaging.Client, *messaging.DirectSession, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	homeserverURL := config.HomeserverURL
	if homeserverURL == "" {
		discovered, err := messaging.DiscoverHomeserver(ctx, config.HTTPClient, config.UserID.Server())
		if err != nil {
			return nil, nil, fmt.Errorf("discovering homeserver for %s: %w", config.UserID, err)
		}
		logger.Info("discovered homeserver", "server_name", config.UserID.Server(), "homeserver", discovered)
		homeserverURL = discovered
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: homeserverURL,
		HTTPClient:    config.HTTPClient,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating matrix client: %w", err)
	}

	session, err := client.Login(ctx, messaging.LoginRequest{
		UserID:            config.UserID,
		Password:          config.Password,
		DeviceDisplayName: config.DeviceDisplayName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logging in as %s: %w", config.UserID, err)
	}
	return client, session, nil
}

// ValidateSession checks that the Matrix session is valid by calling
// WhoAmI. Returns the authenticated user ID.
func ValidateSession(ctx context.Context, session messaging.Session) (ref.UserID, error) {
	userID, err := session.WhoAmI(ctx)
	if err != nil {
		return ref.UserID{}, fmt.Errorf("validating matrix session: %w", err)
	}
	return userID, nil
}
