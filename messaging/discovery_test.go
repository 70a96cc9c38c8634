// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiscoverHomeserver(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string // "" with wantErr
		wantErr bool
		selfURL bool // expect the server's own URL
	}{
		{name: "delegated", status: http.StatusOK, body: `{"m.homeserver":{"base_url":"https://matrix.example.org/"}}`, want: "https://matrix.example.org"},
		{name: "no delegation", status: http.StatusNotFound, selfURL: true},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: true},
		{name: "malformed", status: http.StatusOK, body: `{"m.homeserver":`, wantErr: true},
		{name: "missing base_url", status: http.StatusOK, body: `{}`, wantErr: true},
		{name: "relative base_url", status: http.StatusOK, body: `{"m.homeserver":{"base_url":"matrix"}}`, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				if request.URL.Path != "/.well-known/matrix/client" {
					t.Errorf("unexpected path: %s", request.URL.Path)
				}
				writer.WriteHeader(test.status)
				writer.Write([]byte(test.body))
			}))
			defer server.Close()

			got, err := DiscoverHomeserver(context.Background(), server.Client(), server.URL)
			if test.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DiscoverHomeserver failed: %v", err)
			}
			want := test.want
			if test.selfURL {
				want = server.URL
			}
			if got != want {
				t.Errorf("DiscoverHomeserver = %q, want %q", got, want)
			}
		})
	}
}

func TestDiscoverHomeserverRequiresServerName(t *testing.T) {
	if _, err := DiscoverHomeserver(context.Background(), nil, ""); err == nil {
		t.Fatal("expected error for empty server name")
	}
}
